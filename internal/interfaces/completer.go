package interfaces

import (
	"context"

	"trading-agent/internal/types"
)

// Completer is the opaque language-model capability. The caller supplies
// the full structured request and the JSON schema the response must
// satisfy; the implementation returns raw content plus token accounting.
// Response parsing and validation stay with the caller.
type Completer interface {
	Complete(ctx context.Context, req types.CompletionRequest) (types.CompletionResult, error)
}
