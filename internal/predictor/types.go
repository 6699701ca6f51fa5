package predictor

import (
	"context"
	"time"
)

// Request is the JSON body posted to a backend's predict endpoint.
type Request struct {
	Image string `json:"image"`
}

// Response contains the classification outcome returned by a backend.
type Response struct {
	Success    bool    `json:"success"`
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	Message    string  `json:"message"`
	Error      string  `json:"error,omitempty"`
}

// Outcome classifies a single endpoint attempt.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeTransportError Outcome = "transport_error"
	OutcomeServerError    Outcome = "server_error"
)

// Attempt describes one request made against one endpoint.
type Attempt struct {
	Endpoint string
	Outcome  Outcome
	Duration time.Duration
	Err      string
}

// Observer receives every predict attempt in the order they were made.
type Observer interface {
	ObserveAttempt(attempt Attempt)
}

type nopObserver struct{}

func (nopObserver) ObserveAttempt(Attempt) {}

// Predictor exposes the subset of functionality used by the analysis flow.
type Predictor interface {
	Predict(ctx context.Context, imageBase64 string) (*Response, error)
	Probe(ctx context.Context) (string, bool)
}
