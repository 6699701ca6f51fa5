package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/skinoai/internal/logging"
	"github.com/example/skinoai/internal/metrics"
	"github.com/example/skinoai/internal/predictor"
	"github.com/example/skinoai/internal/recommendation"
)

const (
	// NoImageMessage is shown to the user when no image was submitted.
	NoImageMessage = "No image data provided."

	unknownClass         = "Unknown"
	defaultFailureReason = "Failed to analyze image"
)

// ErrNoImage is returned when Analyze is called without image data.
var ErrNoImage = errors.New("no image data provided")

// AnalysisRecorder counts finished analyses by status.
type AnalysisRecorder interface {
	ObserveAnalysis(status string)
}

// View is what the result screen renders for a successful analysis.
type View struct {
	RequestID         string `json:"request_id"`
	Image             string `json:"image"`
	PredictedClass    string `json:"predicted_class"`
	ConfidencePercent int    `json:"confidence"`
	Recommendation    string `json:"recommendation"`
	Message           string `json:"message,omitempty"`
}

// AnalysisUseCase turns a submitted image into a rendered prediction.
type AnalysisUseCase struct {
	predictor predictor.Predictor
	recorder  AnalysisRecorder
	logger    *zap.Logger
}

type nopRecorder struct{}

func (nopRecorder) ObserveAnalysis(string) {}

// NewAnalysisUseCase constructs a new use case instance. recorder may be nil.
func NewAnalysisUseCase(p predictor.Predictor, recorder AnalysisRecorder, logger *zap.Logger) *AnalysisUseCase {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &AnalysisUseCase{
		predictor: p,
		recorder:  recorder,
		logger:    logger.Named("analysis_usecase"),
	}
}

// Analyze classifies imageBase64. text is accepted alongside the image but
// does not influence the prediction or the advice.
func (uc *AnalysisUseCase) Analyze(ctx context.Context, imageBase64, text string) (*View, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithOperation(uc.logger, "usecase.analyze", requestID)

	if imageBase64 == "" {
		uc.recorder.ObserveAnalysis(metrics.StatusNoImage)
		opLogger.Info("analysis rejected without image")
		return nil, ErrNoImage
	}
	if text != "" {
		opLogger.Debug("analysis context text received", zap.Int("text_length", len(text)))
	}

	resp, err := uc.predictor.Predict(ctx, imageBase64)
	if err != nil {
		uc.recorder.ObserveAnalysis(metrics.StatusFailed)
		wrapped := logging.Wrap("usecase.predict", requestID, err)
		opLogger.Error("prediction failed", logging.Field(wrapped))
		return nil, wrapped
	}

	label := resp.Class
	if label == "" {
		label = unknownClass
	}
	percent := recommendation.ConfidencePercent(resp.Confidence)

	uc.recorder.ObserveAnalysis(metrics.StatusSuccess)
	opLogger.Info("analysis complete", zap.String("class", label), zap.Int("confidence", percent))

	return &View{
		RequestID:         requestID,
		Image:             "data:image/jpeg;base64," + imageBase64,
		PredictedClass:    label,
		ConfidencePercent: percent,
		Recommendation:    recommendation.For(label, percent),
		Message:           resp.Message,
	}, nil
}

// CheckBackend reports the first backend that answers its health probe.
func (uc *AnalysisUseCase) CheckBackend(ctx context.Context) (string, bool) {
	return uc.predictor.Probe(ctx)
}

// FailureReason returns the user-facing text for an Analyze error.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNoImage) {
		return NoImageMessage
	}
	var aggErr *predictor.AggregateError
	if errors.As(err, &aggErr) {
		if msg := aggErr.Error(); msg != "" {
			return msg
		}
	}
	return defaultFailureReason
}
