package predictor

import "fmt"

const (
	noEndpointsMessage = "no backend endpoints configured"
	networkFailure     = "network connection failed"
)

// AggregateError is returned when every configured endpoint failed.
type AggregateError struct {
	LastError string
	Attempts  int
}

// Error implements the error interface.
func (e *AggregateError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("could not connect to backend server. last error: %s", e.LastError)
}

func serverErrorMessage(resp *Response, status int) string {
	if resp != nil && resp.Error != "" {
		return resp.Error
	}
	return fmt.Sprintf("server error: %d", status)
}
