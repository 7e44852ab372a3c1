package types

import "errors"

// Sentinel errors for the pipeline failure taxonomy. Stages wrap these
// with fmt.Errorf("...: %w", ...) so the orchestrator can classify
// failures for the audit stream without string matching.
var (
	// ErrTransientUnavailable: a data, news, or market-hours provider was
	// unreachable. The cycle aborts; the next scheduled cycle may retry.
	ErrTransientUnavailable = errors.New("provider transiently unavailable")

	// ErrValidation: the language-model response did not match the
	// expected shape. Hard stage failure, never coerced to a default.
	ErrValidation = errors.New("structured response validation failed")

	// ErrReviewUncertain: the reviewer call failed or timed out. The
	// review stage fails closed to REJECT.
	ErrReviewUncertain = errors.New("review outcome uncertain")

	// ErrExecution: a destination reported a terminal order failure
	// after any configured fallback was exhausted.
	ErrExecution = errors.New("order execution failed")
)

// KindOf maps an error chain onto the fixed audit classification.
func KindOf(err error) ErrKind {
	switch {
	case err == nil:
		return ErrKindNone
	case errors.Is(err, ErrValidation):
		return ErrKindValidation
	case errors.Is(err, ErrReviewUncertain):
		return ErrKindReviewUncertain
	case errors.Is(err, ErrExecution):
		return ErrKindExecution
	default:
		return ErrKindTransient
	}
}
