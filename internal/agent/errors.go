package agent

import (
	"errors"
	"fmt"
)

var (
	ErrInterrupted = errors.New("execution interrupted")
	ErrMaxSteps    = errors.New("max steps reached")
	// ErrModelUnavailable is fatal: the model kept rate limiting after all retries.
	ErrModelUnavailable = errors.New("model unavailable")
)

// UnknownElementError means an action referenced an id that the current
// observation does not contain. The model is told and may pick another id.
type UnknownElementError struct {
	ID int
}

func (e *UnknownElementError) Error() string {
	return fmt.Sprintf("element id %d is not present on the current page", e.ID)
}

func humanizeReason(err error) string {
	switch {
	case err == nil:
		return "model returned a final answer"
	case errors.Is(err, ErrMaxSteps):
		return "step limit reached"
	case errors.Is(err, ErrInterrupted):
		return "execution was interrupted by user (Ctrl+C)"
	case errors.Is(err, ErrModelUnavailable):
		return "model stayed rate limited after retries"
	default:
		return err.Error()
	}
}
