package contract

import (
	"errors"
	"fmt"
)

var (
	ErrModelInvoke     = errors.New("model invoke failed")
	ErrSchemaViolation = errors.New("model response violates schema")
	ErrPromptMissing   = errors.New("required prompt is missing")
	ErrValidation      = errors.New("validation failed")

	// Capability and adapter taxonomy. Adapter errors are always converted to
	// one of these before they reach the router.
	ErrInvalidArgument  = errors.New("invalid capability argument")
	ErrNotFound         = errors.New("record not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrTransientStore   = errors.New("transient store error")
	ErrRoutingExhausted = errors.New("routing rounds exhausted")
	ErrReasoningTimeout = errors.New("reasoning engine timed out")

	// ErrPolicyIndexUnavailable is the similarity-search flavour of
	// ErrStoreUnavailable; errors.Is matches both.
	ErrPolicyIndexUnavailable = fmt.Errorf("policy index: %w", ErrStoreUnavailable)
)

// UserMessage renders err as a sentence that is safe to show to an employee.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrReasoningTimeout):
		return "Sorry, the assistant took too long to respond. Please try again in a moment."
	case errors.Is(err, ErrRoutingExhausted):
		return "Sorry, I could not gather complete information to answer that question."
	case errors.Is(err, ErrTransientStore):
		return "The leave records service had a temporary problem. Please try again."
	case errors.Is(err, ErrPolicyIndexUnavailable):
		return "The HR policy search is currently unavailable."
	case errors.Is(err, ErrStoreUnavailable):
		return "The leave records service is currently unavailable."
	case errors.Is(err, ErrNotFound):
		return "No matching record was found."
	case errors.Is(err, ErrInvalidArgument), errors.Is(err, ErrValidation):
		return "Sorry, I could not understand that request. Please rephrase your question."
	default:
		return "Sorry, something went wrong while processing your request."
	}
}

// Retryable reports whether the caller may reasonably retry the same query.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransientStore) || errors.Is(err, ErrReasoningTimeout)
}
