package interfaces

import (
	"context"

	"trading-agent/internal/types"
)

// NewsProvider returns recent headlines for a free-text query.
type NewsProvider interface {
	RecentHeadlines(ctx context.Context, query string, limit int) ([]types.NewsItem, error)
}

// EarningsProvider reports the next scheduled earnings event. A provider
// that has no date returns EarningsInfo{Known: false}, not an error.
type EarningsProvider interface {
	NextEarnings(ctx context.Context, symbol string) (types.EarningsInfo, error)
}
