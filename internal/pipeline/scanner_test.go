package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-agent/internal/types"
)

func TestParseTickers(t *testing.T) {
	got := parseTickers(`Here you go: ["AAPL", "tcs.ns", "SPY", "RELIANCE.NS", "AAPL", "not a ticker!!"]`)
	assert.Equal(t, []string{"AAPL", "TCS.NS", "RELIANCE.NS"}, got)
}

func TestParseTickersNoArray(t *testing.T) {
	assert.Nil(t, parseTickers("I could not find any tickers."))
	assert.Nil(t, parseTickers(`{"tickers": true`))
}

func TestScanDegradesOnCompletionFailure(t *testing.T) {
	s := NewScanner(&fakeNews{}, &stagedCompleter{analyzeErr: assert.AnError, reviewErr: assert.AnError}, 5)
	assert.Nil(t, s.Scan(context.Background()))
}

func TestScanExtractsFromHeadlines(t *testing.T) {
	completer := &scanCompleter{content: `["NVDA", "TATASTEEL.BO", "NIFTY"]`}
	s := NewScanner(&fakeNews{}, completer, 5)

	got := s.Scan(context.Background())
	require.Equal(t, []string{"NVDA", "TATASTEEL.BO"}, got)
	assert.Contains(t, completer.lastPrompt, "markets steady ahead of data")
}

type scanCompleter struct {
	content    string
	lastPrompt string
}

func (c *scanCompleter) Complete(ctx context.Context, req types.CompletionRequest) (types.CompletionResult, error) {
	c.lastPrompt = req.Prompt
	return types.CompletionResult{Content: c.content}, nil
}
