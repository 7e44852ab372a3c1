// Package pipeline sequences one full trade cycle per instrument:
// FETCHING -> ANALYZING -> REVIEWING -> SIZING -> ROUTING -> DONE, with
// terminal SKIPPED and FAILED states. Transitions are strictly forward
// and every transition lands on the audit stream.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"trading-agent/internal/audit"
	"trading-agent/internal/correlation"
	"trading-agent/internal/decision"
	"trading-agent/internal/interfaces"
	"trading-agent/internal/logger"
	"trading-agent/internal/risk"
	"trading-agent/internal/router"
	"trading-agent/internal/ta"
	"trading-agent/internal/trace"
	"trading-agent/internal/types"
)

// Options tunes one orchestrator instance.
type Options struct {
	LiveMode        bool // gate cycles on the analysis window
	MinConfidence   float64
	MaxHeadlines    int
	HistoryDays     int
	EarningsWarnDay     int // earnings hint included within this many days
	EarningsImminentDay int // inside this window the prompt prefers HOLD
	MaxParallel     int64
	FetchTimeout    time.Duration
	ExecuteTimeout  time.Duration
	MacroQuery      string
}

func (o *Options) normalize() {
	if o.MinConfidence <= 0 {
		o.MinConfidence = 0.6
	}
	if o.MaxHeadlines <= 0 {
		o.MaxHeadlines = 5
	}
	if o.HistoryDays <= 0 {
		o.HistoryDays = 250
	}
	if o.EarningsWarnDay <= 0 {
		o.EarningsWarnDay = 7
	}
	if o.EarningsImminentDay <= 0 {
		o.EarningsImminentDay = 3
	}
	if o.MaxParallel <= 0 {
		o.MaxParallel = 4
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 30 * time.Second
	}
	if o.ExecuteTimeout <= 0 {
		o.ExecuteTimeout = 20 * time.Second
	}
	if o.MacroQuery == "" {
		o.MacroQuery = "stock market today"
	}
}

// Orchestrator wires the stages together. All collaborators are consumed
// through interfaces; the orchestrator owns no provider logic.
type Orchestrator struct {
	market   interfaces.MarketData
	news     interfaces.NewsProvider
	earnings interfaces.EarningsProvider
	hours    interfaces.HoursOracle
	engine   *decision.Engine
	peers    *correlation.Analyzer
	book     *risk.Book
	router   *router.Router
	sink     audit.Sink
	opts     Options
}

var _ interfaces.Pipeline = (*Orchestrator)(nil)

func New(
	market interfaces.MarketData,
	news interfaces.NewsProvider,
	earnings interfaces.EarningsProvider,
	hoursOracle interfaces.HoursOracle,
	engine *decision.Engine,
	peers *correlation.Analyzer,
	book *risk.Book,
	rt *router.Router,
	sink audit.Sink,
	opts Options,
) *Orchestrator {
	opts.normalize()
	return &Orchestrator{
		market:   market,
		news:     news,
		earnings: earnings,
		hours:    hoursOracle,
		engine:   engine,
		peers:    peers,
		book:     book,
		router:   rt,
		sink:     sink,
		opts:     opts,
	}
}

// fetched is everything the FETCHING stage gathers.
type fetched struct {
	price    float64
	history  []types.Candle
	options  []types.OptionQuote
	news     []types.NewsItem
	earnings types.EarningsInfo
}

// Run executes one cycle for one instrument. The returned TradeRecord is
// always non-nil and already persisted; the error reports terminal
// failures for the caller's accounting, never partial state.
func (o *Orchestrator) Run(ctx context.Context, symbol string) (*types.TradeRecord, error) {
	return o.run(ctx, symbol, nil)
}

func (o *Orchestrator) run(ctx context.Context, symbol string, macroNews []types.NewsItem) (*types.TradeRecord, error) {
	ctx, span := trace.StartSpan(ctx, "pipeline.Run")
	defer span.End()

	region := router.DetectRegion(symbol)
	record := &types.TradeRecord{Symbol: symbol, Region: region}

	if o.opts.LiveMode && !o.hours.InAnalysisWindow(symbol, time.Now()) {
		info := o.hours.SessionInfo(symbol, time.Now())
		detail := "market closed"
		if info.IsHoliday {
			detail = "market closed: " + info.HolidayName
		}
		logger.Info(ctx, "skipping cycle outside analysis window", "symbol", symbol, "region", region)
		o.event(ctx, symbol, region, types.StateSkipped, "hours", 0, nil, detail)
		return o.finish(ctx, record, types.StateSkipped, detail), nil
	}

	// FETCHING
	start := time.Now()
	data, err := o.fetch(ctx, symbol)
	if err != nil {
		o.event(ctx, symbol, region, types.StateFetching, "fetch", time.Since(start), err, "")
		return o.finish(ctx, record, types.StateFailed, err.Error()), err
	}
	o.event(ctx, symbol, region, types.StateFetching, "fetch", time.Since(start), nil, "")

	// ANALYZING
	req := o.buildRequest(ctx, symbol, data, macroNews)
	dec, outcome, err := o.engine.Analyze(ctx, req)
	o.eventLLM(ctx, symbol, region, types.StateAnalyzing, "analyze", outcome, err)
	if err != nil {
		// never coerced into a tradable default: the cycle fails and the
		// record reads HOLD with the error attached
		record.Decision = &types.Decision{Action: types.ActionHold, Rationale: "analysis failed"}
		return o.finish(ctx, record, types.StateFailed, err.Error()), err
	}
	record.Decision = &dec
	logger.Decision(ctx, symbol, dec.Action, dec.Confidence, dec.Rationale, "cache_hit", outcome.CacheHit)

	if dec.Action != types.ActionHold && dec.Confidence < o.opts.MinConfidence {
		detail := fmt.Sprintf("%s confidence %.2f below threshold %.2f, holding",
			dec.Action, dec.Confidence, o.opts.MinConfidence)
		logger.Info(ctx, "decision below confidence threshold, holding", "symbol", symbol)
		record.Decision = &types.Decision{
			Action:     types.ActionHold,
			Confidence: dec.Confidence,
			Rationale:  "Low confidence: " + dec.Rationale,
		}
		return o.finish(ctx, record, types.StateDone, detail), nil
	}

	// REVIEWING
	verdict, outcome, err := o.engine.Review(ctx, req, dec)
	o.eventLLM(ctx, symbol, region, types.StateReviewing, "review", outcome, err)
	record.Verdict = &verdict
	if !verdict.Approved {
		return o.finish(ctx, record, types.StateDone, "review rejected: "+verdict.Rationale), nil
	}
	if dec.Action == types.ActionHold {
		return o.finish(ctx, record, types.StateDone, ""), nil
	}

	// SIZING
	ledger := o.book.For(region)
	start = time.Now()
	order, reject := ledger.Size(ctx, symbol, dec, data.price, req.Indicators.ATR)
	if reject != risk.RejectNone {
		o.sizeRejectedEvent(ctx, symbol, region, time.Since(start), reject)
		return o.finish(ctx, record, types.StateDone, "sizing rejected: "+string(reject)), nil
	}
	o.event(ctx, symbol, region, types.StateSizing, "size", time.Since(start), nil, "")
	record.Order = order

	// ROUTING
	execCtx, cancel := context.WithTimeout(ctx, o.opts.ExecuteTimeout)
	defer cancel()
	start = time.Now()
	result, err := o.router.Execute(execCtx, order)
	record.Execution = result
	if err != nil {
		ledger.Release(order)
		o.event(ctx, symbol, region, types.StateRouting, "execute", time.Since(start), err, "")
		return o.finish(ctx, record, types.StateFailed, err.Error()), err
	}
	o.event(ctx, symbol, region, types.StateRouting, "execute", time.Since(start), nil, result.Destination)
	ledger.RecordFill(ctx, order)

	return o.finish(ctx, record, types.StateDone, ""), nil
}

// fetch runs the four data pulls concurrently; any single failure fails
// the stage so no decision is ever made on partial data. The earnings
// lookup is best-effort and degrades to unknown.
func (o *Orchestrator) fetch(ctx context.Context, symbol string) (*fetched, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.FetchTimeout)
	defer cancel()

	data := &fetched{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		price, err := o.market.CurrentPrice(gctx, symbol)
		if err != nil {
			return fmt.Errorf("current price for %s: %w", symbol, err)
		}
		data.price = price
		return nil
	})
	g.Go(func() error {
		hist, err := o.market.History(gctx, symbol, o.opts.HistoryDays)
		if err != nil {
			return fmt.Errorf("history for %s: %w", symbol, err)
		}
		data.history = hist
		return nil
	})
	g.Go(func() error {
		chain, err := o.market.OptionChain(gctx, symbol)
		if err != nil {
			return fmt.Errorf("option chain for %s: %w", symbol, err)
		}
		data.options = chain
		return nil
	})
	g.Go(func() error {
		items, err := o.news.RecentHeadlines(gctx, symbol+" stock news", o.opts.MaxHeadlines)
		if err != nil {
			return fmt.Errorf("news for %s: %w", symbol, err)
		}
		data.news = items
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if o.earnings != nil {
		if info, err := o.earnings.NextEarnings(ctx, symbol); err == nil {
			data.earnings = info
		}
	}
	return data, nil
}

func (o *Orchestrator) buildRequest(ctx context.Context, symbol string, data *fetched, macroNews []types.NewsItem) types.DecisionRequest {
	req := types.DecisionRequest{
		Symbol:     symbol,
		Price:      data.price,
		Indicators: ta.Compute(data.history),
		Options:    data.options,
	}

	news := append([]types.NewsItem{}, data.news...)
	news = append(news, macroNews...)
	if len(news) > o.opts.MaxHeadlines {
		news = news[:o.opts.MaxHeadlines]
	}
	req.News = news

	if data.earnings.Known && data.earnings.DaysUntil >= 0 && data.earnings.DaysUntil <= o.opts.EarningsWarnDay {
		info := data.earnings
		info.WithinWarning = true
		info.ImminentDays = o.opts.EarningsImminentDay
		req.Earnings = &info
	}

	if o.peers != nil {
		if pc := o.peers.Context(ctx, symbol); pc.Summary != "" {
			req.PeerContext = pc.Summary
		}
	}
	return req
}

// finish persists the TradeRecord and returns it.
func (o *Orchestrator) finish(ctx context.Context, record *types.TradeRecord, outcome types.PipelineState, reason string) *types.TradeRecord {
	record.Time = time.Now().UTC()
	record.Outcome = outcome
	record.Reason = reason
	if err := o.sink.Trade(ctx, *record); err != nil {
		logger.ErrorWithErr(ctx, "trade record persist failed", err, "symbol", record.Symbol)
	}
	return record
}

func (o *Orchestrator) event(ctx context.Context, symbol string, region types.Region, state types.PipelineState, stage string, elapsed time.Duration, err error, detail string) {
	e := types.AuditEvent{
		Time:      time.Now().UTC(),
		Symbol:    symbol,
		Region:    region,
		State:     state,
		Stage:     stage,
		Success:   err == nil,
		LatencyMS: elapsed.Milliseconds(),
		Detail:    detail,
	}
	if err != nil {
		e.ErrKind = types.KindOf(err)
		e.Detail = err.Error()
	}
	if serr := o.sink.Event(ctx, e); serr != nil {
		logger.ErrorWithErr(ctx, "audit event persist failed", serr, "symbol", symbol)
	}
}

func (o *Orchestrator) eventLLM(ctx context.Context, symbol string, region types.Region, state types.PipelineState, stage string, outcome decision.Outcome, err error) {
	e := types.AuditEvent{
		Time:             time.Now().UTC(),
		Symbol:           symbol,
		Region:           region,
		State:            state,
		Stage:            stage,
		Success:          err == nil,
		LatencyMS:        outcome.LatencyMS,
		CacheHit:         outcome.CacheHit,
		PromptTokens:     outcome.PromptTokens,
		CompletionTokens: outcome.CompletionTokens,
	}
	if err != nil {
		e.ErrKind = types.KindOf(err)
		e.Detail = err.Error()
	}
	if serr := o.sink.Event(ctx, e); serr != nil {
		logger.ErrorWithErr(ctx, "audit event persist failed", serr, "symbol", symbol)
	}
}

// sizeRejectedEvent records the distinct non-error sizing outcome.
func (o *Orchestrator) sizeRejectedEvent(ctx context.Context, symbol string, region types.Region, elapsed time.Duration, reject risk.RejectReason) {
	e := types.AuditEvent{
		Time:      time.Now().UTC(),
		Symbol:    symbol,
		Region:    region,
		State:     types.StateSizing,
		Stage:     "size",
		Success:   true,
		LatencyMS: elapsed.Milliseconds(),
		ErrKind:   types.ErrKindSizeRejected,
		Detail:    string(reject),
	}
	if serr := o.sink.Event(ctx, e); serr != nil {
		logger.ErrorWithErr(ctx, "audit event persist failed", serr, "symbol", symbol)
	}
}

// RunAll evaluates the universe with bounded concurrency. Macro
// headlines are fetched once and shared read-only across instruments.
// Individual cycle failures are logged and never stop the sweep.
func (o *Orchestrator) RunAll(ctx context.Context, symbols []string) {
	ctx, span := trace.StartSpan(ctx, "pipeline.RunAll")
	defer span.End()

	var macroNews []types.NewsItem
	if items, err := o.news.RecentHeadlines(ctx, o.opts.MacroQuery, o.opts.MaxHeadlines); err == nil {
		macroNews = items
	} else {
		logger.Warn(ctx, "macro news fetch failed, continuing without", "error", err)
	}

	sem := semaphore.NewWeighted(o.opts.MaxParallel)
	for _, symbol := range symbols {
		if err := sem.Acquire(ctx, 1); err != nil {
			return
		}
		go func(sym string) {
			defer sem.Release(1)
			if _, err := o.run(ctx, sym, macroNews); err != nil {
				logger.ErrorWithErr(ctx, "cycle failed", err, "symbol", sym)
			}
		}(symbol)
	}
	// drain: wait for the in-flight cycles
	if err := sem.Acquire(ctx, o.opts.MaxParallel); err == nil {
		sem.Release(o.opts.MaxParallel)
	}
}
