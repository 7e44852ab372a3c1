// Package llmobs wraps a Completer with logging and tracing middleware.
package llmobs

import (
	"context"
	"time"

	"trading-agent/internal/interfaces"
	"trading-agent/internal/logger"
	"trading-agent/internal/trace"
	"trading-agent/internal/types"
)

type observableCompleter struct {
	completer interfaces.Completer
}

var _ interfaces.Completer = (*observableCompleter)(nil)

// Wrap adds a span, timing, and token accounting around every call.
func Wrap(completer interfaces.Completer) interfaces.Completer {
	return &observableCompleter{completer: completer}
}

func (oc *observableCompleter) Complete(ctx context.Context, req types.CompletionRequest) (types.CompletionResult, error) {
	ctx, span := trace.StartSpan(ctx, "llm.Complete")
	defer span.End()

	// Skip(1) so the log source points at the actual caller, not this wrapper
	logger.DebugSkip(ctx, 1, "Requesting completion",
		"prompt_chars", len(req.Prompt),
	)

	start := time.Now()
	res, err := oc.completer.Complete(ctx, req)
	latency := time.Since(start)

	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Completion failed", err,
			"latency_ms", latency.Milliseconds(),
		)
		return types.CompletionResult{}, err
	}

	logger.InfoSkip(ctx, 1, "Completion received",
		"latency_ms", latency.Milliseconds(),
		"prompt_tokens", res.PromptTokens,
		"completion_tokens", res.CompletionTokens,
	)
	return res, nil
}
