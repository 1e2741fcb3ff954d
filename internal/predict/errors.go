package predict

import (
	"errors"
	"fmt"
)

// Operation names an API call for error messages.
type Operation string

// Operations.
const (
	OperationPrediction Operation = "prediction"
	OperationComparison Operation = "comparison"
)

// FailedMessage is the fallback used when a non-2xx response carries no detail.
func (o Operation) FailedMessage() string {
	switch o {
	case OperationComparison:
		return "Comparison failed"
	default:
		return "Prediction failed"
	}
}

// ErrorMessage is shown when the call fails without an API response.
func (o Operation) ErrorMessage() string {
	return fmt.Sprintf("An error occurred during %s", o)
}

// Client errors.
var (
	// ErrInvalidBaseURL is returned by NewClient for a URL that is not absolute http(s).
	ErrInvalidBaseURL = errors.New("invalid prediction API base URL")
	// ErrInvalidModel is returned when an unknown model name is requested.
	ErrInvalidModel = errors.New("unknown model name")
	// ErrResponseTooLarge is returned when the response exceeds the body limit.
	ErrResponseTooLarge = errors.New("prediction API response too large")
	// ErrInvalidResponse is returned when a 2xx body cannot be decoded or is incomplete.
	ErrInvalidResponse = errors.New("invalid prediction API response")
)

// APIError is a non-2xx response from the prediction API.
type APIError struct {
	Operation  Operation
	StatusCode int
	// Detail is the API's "detail" string, or the operation fallback.
	Detail string
}

// Error returns Detail so it can be shown to the user as is.
func (e *APIError) Error() string {
	return e.Detail
}

// UserMessage returns the text to show for err: the API detail for an
// *APIError, and the generic operation message otherwise.
func UserMessage(op Operation, err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return op.ErrorMessage()
}

// Status is the result of a health check against the API.
type Status int

const (
	// StatusOK means the API answered and all artifacts are loaded.
	StatusOK Status = iota
	// StatusModelsNotLoaded means the API answered but some artifact is missing.
	StatusModelsNotLoaded
	// StatusCannotConnect means the API could not be reached.
	StatusCannotConnect
	// StatusTimeout means the health check timed out.
	StatusTimeout
	// StatusBadResponse means the API answered with something unexpected.
	StatusBadResponse
)

// String returns a human-readable description of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusModelsNotLoaded:
		return "models not loaded"
	case StatusCannotConnect:
		return "cannot connect"
	case StatusTimeout:
		return "timeout"
	case StatusBadResponse:
		return "bad response"
	default:
		return "unknown"
	}
}
