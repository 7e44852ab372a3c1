package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-agent/internal/audit"
	"trading-agent/internal/correlation"
	"trading-agent/internal/decision"
	"trading-agent/internal/risk"
	"trading-agent/internal/router"
	"trading-agent/internal/signalcache"
	"trading-agent/internal/types"
)

// ---- fakes ----

type fakeMarket struct {
	price    float64
	priceErr error
	histLen  int
}

func (f *fakeMarket) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	if f.priceErr != nil {
		return 0, f.priceErr
	}
	return f.price, nil
}

func (f *fakeMarket) History(ctx context.Context, symbol string, days int) ([]types.Candle, error) {
	n := f.histLen
	if n == 0 {
		n = 60
	}
	out := make([]types.Candle, n)
	p := f.price * 0.9
	for i := range out {
		p *= 1.001
		out[i] = types.Candle{Close: p, High: p * 1.01, Low: p * 0.99, Open: p}
	}
	return out, nil
}

func (f *fakeMarket) OptionChain(ctx context.Context, symbol string) ([]types.OptionQuote, error) {
	return []types.OptionQuote{
		{Type: "call", Strike: f.price * 1.02, Expiry: "2026-10-16", LastPrice: 3.2, Volume: 900, OpenInterest: 4000, ImpliedVol: 0.3},
		{Type: "put", Strike: f.price * 0.98, Expiry: "2026-10-16", LastPrice: 2.9, Volume: 700, OpenInterest: 3500, ImpliedVol: 0.32},
	}, nil
}

type fakeNews struct{ err error }

func (f *fakeNews) RecentHeadlines(ctx context.Context, query string, limit int) ([]types.NewsItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []types.NewsItem{{Title: "markets steady ahead of data", Source: "wire"}}, nil
}

type fakeEarnings struct{ info types.EarningsInfo }

func (f *fakeEarnings) NextEarnings(ctx context.Context, symbol string) (types.EarningsInfo, error) {
	return f.info, nil
}

type fakeHours struct{ open bool }

func (f *fakeHours) IsOpen(symbol string, at time.Time) bool           { return f.open }
func (f *fakeHours) InAnalysisWindow(symbol string, at time.Time) bool { return f.open }
func (f *fakeHours) SessionInfo(symbol string, date time.Time) types.SessionInfo {
	return types.SessionInfo{Exchange: "XNYS", IsHoliday: !f.open, HolidayName: "Market Holiday"}
}

// stagedCompleter answers by schema: decision requests get analyze,
// review requests get review.
type stagedCompleter struct {
	analyze    string
	analyzeErr error
	review     string
	reviewErr  error
	mu         sync.Mutex
	calls      []string
	lastPrompt string
}

func (s *stagedCompleter) Complete(ctx context.Context, req types.CompletionRequest) (types.CompletionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.Contains(req.Schema, `"verdict"`) {
		s.calls = append(s.calls, "review")
		if s.reviewErr != nil {
			return types.CompletionResult{}, s.reviewErr
		}
		return types.CompletionResult{Content: s.review, PromptTokens: 80, CompletionTokens: 20}, nil
	}
	s.calls = append(s.calls, "analyze")
	s.lastPrompt = req.Prompt
	if s.analyzeErr != nil {
		return types.CompletionResult{}, s.analyzeErr
	}
	return types.CompletionResult{Content: s.analyze, PromptTokens: 150, CompletionTokens: 60}, nil
}

type memorySink struct {
	mu     sync.Mutex
	events []types.AuditEvent
	trades []types.TradeRecord
}

func (m *memorySink) Event(ctx context.Context, e types.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memorySink) Trade(ctx context.Context, r types.TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, r)
	return nil
}

func (m *memorySink) Close() error { return nil }

func (m *memorySink) states() []types.PipelineState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.PipelineState, len(m.events))
	for i, e := range m.events {
		out[i] = e.State
	}
	return out
}

type stubDest struct {
	name  string
	err   error
	calls int
}

func (s *stubDest) Name() string { return s.name }

func (s *stubDest) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderConfirmation, error) {
	s.calls++
	if s.err != nil {
		return types.OrderConfirmation{}, s.err
	}
	return types.OrderConfirmation{OrderID: s.name + "-42", Status: "COMPLETE"}, nil
}

// ---- harness ----

type harness struct {
	orch     *Orchestrator
	sink     *memorySink
	earnings *fakeEarnings
	zerodha  *stubDest
	icici    *stubDest
	rh       *stubDest
}

func newHarness(t *testing.T, market *fakeMarket, completer *stagedCompleter, open bool) *harness {
	t.Helper()

	engine := decision.NewEngine(completer, signalcache.New(time.Minute, 32))
	book := risk.NewBook(
		risk.NewLedger(types.RegionUS, risk.Limits{MaxCapital: 100000}),
		risk.NewLedger(types.RegionIN, risk.Limits{MaxCapital: 1000000}),
	)

	rt := router.New(router.Routes{
		USPrimary: "robinhood", IndiaPrimary: "zerodha", IndiaFallback: "icici",
	})
	h := &harness{
		sink:    &memorySink{},
		zerodha: &stubDest{name: "zerodha"},
		icici:   &stubDest{name: "icici"},
		rh:      &stubDest{name: "robinhood"},
	}
	rt.Register(h.zerodha)
	rt.Register(h.icici)
	rt.Register(h.rh)

	h.earnings = &fakeEarnings{}
	peers := correlation.NewAnalyzer(market, h.earnings, nil, nil, correlation.Options{})

	h.orch = New(market, &fakeNews{}, h.earnings, &fakeHours{open: open}, engine, peers, book, rt, h.sink, Options{
		LiveMode:      false,
		MinConfidence: 0.6,
	})
	return h
}

var _ audit.Sink = (*memorySink)(nil)

// ---- tests ----

func TestHoldRunsEndToEndWithoutSizingOrExecution(t *testing.T) {
	completer := &stagedCompleter{
		analyze: `{"action":"HOLD","confidence":0.6,"rationale":"earnings in 2 days, staying flat"}`,
	}
	h := newHarness(t, &fakeMarket{price: 190.0}, completer, true)

	record, err := h.orch.Run(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, types.StateDone, record.Outcome)
	require.NotNil(t, record.Decision)
	assert.Equal(t, types.ActionHold, record.Decision.Action)
	assert.Nil(t, record.Order)
	assert.Nil(t, record.Execution)
	assert.Equal(t, 0, h.rh.calls)

	// HOLD short-circuits the reviewer
	assert.Equal(t, []string{"analyze"}, completer.calls)
	require.NotNil(t, record.Verdict)
	assert.True(t, record.Verdict.Approved)

	states := h.sink.states()
	assert.Contains(t, states, types.StateFetching)
	assert.Contains(t, states, types.StateAnalyzing)
}

func TestIndiaFallbackExecution(t *testing.T) {
	completer := &stagedCompleter{
		analyze: `{"action":"BUY_STOCK","confidence":0.8,"rationale":"breakout with sector tailwind"}`,
		review:  `{"verdict":"APPROVE","rationale":"risk bounded"}`,
	}
	h := newHarness(t, &fakeMarket{price: 4100.0}, completer, true)
	h.zerodha.err = errors.New("order rejected: rms limit")

	record, err := h.orch.Run(context.Background(), "TCS.NS")
	require.NoError(t, err)
	assert.Equal(t, types.StateDone, record.Outcome)
	require.NotNil(t, record.Execution)
	assert.Equal(t, "icici", record.Execution.Destination)
	require.Len(t, record.Execution.Attempts, 2)
	assert.Equal(t, "zerodha", record.Execution.Attempts[0].Destination)
	assert.False(t, record.Execution.Attempts[0].Success)
	assert.Equal(t, "icici", record.Execution.Attempts[1].Destination)
	assert.True(t, record.Execution.Attempts[1].Success)
	assert.Equal(t, types.RegionIN, record.Region)
	assert.Equal(t, "INR", record.Order.Currency)
}

func TestReviewRejectStopsBeforeSizing(t *testing.T) {
	completer := &stagedCompleter{
		analyze: `{"action":"BUY_STOCK","confidence":0.9,"rationale":"momentum"}`,
		review:  `{"verdict":"REJECT","rationale":"RSI overbought, chasing"}`,
	}
	h := newHarness(t, &fakeMarket{price: 250.0}, completer, true)

	record, err := h.orch.Run(context.Background(), "NVDA")
	require.NoError(t, err)
	assert.Equal(t, types.StateDone, record.Outcome)
	require.NotNil(t, record.Verdict)
	assert.False(t, record.Verdict.Approved)
	assert.Nil(t, record.Order)
	assert.Equal(t, 0, h.rh.calls)
	assert.Contains(t, record.Reason, "review rejected")
}

func TestReviewerFailureFailsClosed(t *testing.T) {
	completer := &stagedCompleter{
		analyze:   `{"action":"BUY_STOCK","confidence":0.9,"rationale":"momentum"}`,
		reviewErr: errors.New("deadline exceeded"),
	}
	h := newHarness(t, &fakeMarket{price: 250.0}, completer, true)

	record, err := h.orch.Run(context.Background(), "NVDA")
	require.NoError(t, err)
	require.NotNil(t, record.Verdict)
	assert.False(t, record.Verdict.Approved)
	assert.Equal(t, "REJECT", record.Verdict.Verdict)
	assert.Nil(t, record.Order)
	assert.Equal(t, 0, h.rh.calls)

	var reviewEvent *types.AuditEvent
	for i := range h.sink.events {
		if h.sink.events[i].State == types.StateReviewing {
			reviewEvent = &h.sink.events[i]
		}
	}
	require.NotNil(t, reviewEvent)
	assert.Equal(t, types.ErrKindReviewUncertain, reviewEvent.ErrKind)
}

func TestValidationFailureRecordsHoldAndFails(t *testing.T) {
	completer := &stagedCompleter{analyze: `{"action":"PANIC","confidence":2}`}
	h := newHarness(t, &fakeMarket{price: 100.0}, completer, true)

	record, err := h.orch.Run(context.Background(), "MSFT")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrValidation)
	assert.Equal(t, types.StateFailed, record.Outcome)
	require.NotNil(t, record.Decision)
	assert.Equal(t, types.ActionHold, record.Decision.Action)
	assert.Equal(t, 0, h.rh.calls)
}

func TestLowConfidenceHoldsWithoutReview(t *testing.T) {
	completer := &stagedCompleter{
		analyze: `{"action":"BUY_STOCK","confidence":0.35,"rationale":"weak setup"}`,
	}
	h := newHarness(t, &fakeMarket{price: 100.0}, completer, true)

	record, err := h.orch.Run(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.Equal(t, types.StateDone, record.Outcome)
	assert.Contains(t, record.Reason, "BUY_STOCK confidence 0.35")
	require.NotNil(t, record.Decision)
	assert.Equal(t, types.ActionHold, record.Decision.Action)
	assert.InDelta(t, 0.35, record.Decision.Confidence, 1e-9)
	assert.Nil(t, record.Order)
	assert.Equal(t, []string{"analyze"}, completer.calls)
}

func TestEarningsProximityHintReachesPrompt(t *testing.T) {
	completer := &stagedCompleter{
		analyze: `{"action":"HOLD","confidence":0.6,"rationale":"earnings risk"}`,
	}
	h := newHarness(t, &fakeMarket{price: 190.0}, completer, true)
	h.earnings.info = types.EarningsInfo{
		Symbol: "AAPL", Known: true, Date: "2026-08-31", DaysUntil: 2,
	}

	record, err := h.orch.Run(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, types.StateDone, record.Outcome)
	assert.Contains(t, completer.lastPrompt, "EARNINGS ALERT")
	assert.Contains(t, completer.lastPrompt, "Days Until Earnings: 2")
	assert.Contains(t, completer.lastPrompt, "within 3 days, prefer HOLD")
}

func TestEarningsBeyondWarningWindowOmitted(t *testing.T) {
	completer := &stagedCompleter{
		analyze: `{"action":"HOLD","confidence":0.6,"rationale":"flat"}`,
	}
	h := newHarness(t, &fakeMarket{price: 190.0}, completer, true)
	h.earnings.info = types.EarningsInfo{
		Symbol: "AAPL", Known: true, Date: "2026-09-28", DaysUntil: 30,
	}

	_, err := h.orch.Run(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.NotContains(t, completer.lastPrompt, "EARNINGS ALERT")
}

func TestFetchFailureFailsCycle(t *testing.T) {
	completer := &stagedCompleter{analyze: `{"action":"HOLD","confidence":0.5,"rationale":"x"}`}
	market := &fakeMarket{price: 100.0, priceErr: types.ErrTransientUnavailable}
	h := newHarness(t, market, completer, true)

	record, err := h.orch.Run(context.Background(), "AAPL")
	require.Error(t, err)
	assert.Equal(t, types.StateFailed, record.Outcome)
	assert.Empty(t, completer.calls, "no model call on partial data")
}

func TestLiveModeSkipsOutsideAnalysisWindow(t *testing.T) {
	completer := &stagedCompleter{}
	h := newHarness(t, &fakeMarket{price: 100.0}, completer, false)
	h.orch.opts.LiveMode = true

	record, err := h.orch.Run(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, types.StateSkipped, record.Outcome)
	assert.Empty(t, completer.calls)
	require.NotEmpty(t, h.sink.events)
	assert.Equal(t, types.StateSkipped, h.sink.events[0].State)
}

func TestExecutionFailureReleasesReservedCapital(t *testing.T) {
	completer := &stagedCompleter{
		analyze: `{"action":"BUY_STOCK","confidence":0.85,"rationale":"setup"}`,
		review:  `{"verdict":"APPROVE","rationale":"fine"}`,
	}
	h := newHarness(t, &fakeMarket{price: 100.0}, completer, true)
	h.rh.err = errors.New("rejected")

	record, err := h.orch.Run(context.Background(), "AAPL")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrExecution)
	assert.Equal(t, types.StateFailed, record.Outcome)
	// reserved notional came back
	assert.InDelta(t, 100000, h.orch.book.For(types.RegionUS).Headroom(), 1e-6)
}

func TestRunAllSurvivesIndividualFailures(t *testing.T) {
	completer := &stagedCompleter{
		analyze: `{"action":"HOLD","confidence":0.5,"rationale":"flat"}`,
	}
	h := newHarness(t, &fakeMarket{price: 100.0}, completer, true)

	h.orch.RunAll(context.Background(), []string{"AAPL", "MSFT", "TCS.NS"})
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	assert.Len(t, h.sink.trades, 3)
}
