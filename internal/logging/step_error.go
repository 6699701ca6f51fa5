package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// StepError records which step of an analysis failed.
type StepError struct {
	Step      string
	RequestID string
	Err       error
}

func (e *StepError) Error() string {
	if e.RequestID == "" {
		return fmt.Sprintf("%s: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Step, e.RequestID, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// MarshalLogObject lets zap.Object log the step, request id and cause as
// separate fields.
func (e *StepError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("step", e.Step)
	if e.RequestID != "" {
		enc.AddString("request_id", e.RequestID)
	}
	enc.AddString("cause", e.Err.Error())
	return nil
}

// Wrap returns err annotated with step and requestID, or nil when err is nil.
func Wrap(step, requestID string, err error) error {
	if err == nil {
		return nil
	}
	return &StepError{Step: step, RequestID: requestID, Err: err}
}

// Field logs err as a structured object when it is a *StepError and as a
// plain error otherwise.
func Field(err error) zap.Field {
	if stepErr, ok := err.(*StepError); ok {
		return zap.Object("error", stepErr)
	}
	return zap.Error(err)
}
