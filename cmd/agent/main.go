package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"trading-agent/internal/correlation"
	"trading-agent/internal/decision"
	"trading-agent/internal/fx"
	"trading-agent/internal/hours"
	"trading-agent/internal/logger"
	"trading-agent/internal/pipeline"
	"trading-agent/internal/risk"
	"trading-agent/internal/signalcache"
	"trading-agent/internal/trace"
	"trading-agent/internal/types"
)

func main() {
	if err := initializeSystem(); err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig(ctx)
	if err != nil {
		os.Exit(1)
	}

	sim, market := initializeMarketData(ctx, cfg)
	completer := initializeCompleter(ctx, cfg)
	sink, fileSink := initializeSink(ctx, cfg)
	book := initializeBook(cfg)
	rt := initializeRouter(cfg)
	hoursOracle := hours.NewOracle()

	cache := signalcache.New(
		time.Duration(cfg.Cache.TTLMinutes)*time.Minute,
		cfg.Cache.MaxEntries,
	)
	engine := decision.NewEngine(completer, cache)

	peers := correlation.NewAnalyzer(market, sim, nil, cfg.AllSymbols(), correlation.Options{
		EarningsAheadDays:  cfg.Correlation.EarningsAheadDays,
		EarningsBehindDays: cfg.Correlation.EarningsBehindDays,
		MoveThresholdPct:   cfg.Correlation.MoveThresholdPct,
		MaxPeers:           cfg.Correlation.MaxPeers,
	})

	orch := pipeline.New(market, sim, sim, hoursOracle, engine, peers, book, rt, sink, pipelineOptions(cfg))
	scanner := pipeline.NewScanner(sim, completer, cfg.News.MaxHeadlines*3)
	converter := fx.NewConverter(nil)

	compressOldLogs(ctx, fileSink, cfg.Audit.RetentionDays)

	watch := newWatchlist(cfg.AllSymbols())

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	poll := time.NewTicker(time.Duration(cfg.PollSeconds) * time.Second)
	defer poll.Stop()
	scanTick := time.NewTicker(time.Duration(cfg.Scanner.IntervalMinutes) * time.Minute)
	defer scanTick.Stop()
	retention := time.NewTicker(24 * time.Hour)
	defer retention.Stop()

	logger.Info(ctx, "Agent started",
		"mode", cfg.Mode, "universe", len(watch.symbols()), "poll_seconds", cfg.PollSeconds)

	for {
		select {
		case <-poll.C:
			orch.RunAll(ctx, watch.symbols())
			logCapitalSnapshot(ctx, book, converter)
			logCacheStats(ctx, engine)

		case <-scanTick.C:
			if !cfg.Scanner.Enabled {
				continue
			}
			if trending := scanner.Scan(ctx); len(trending) > 0 {
				added := watch.merge(trending)
				if added > 0 {
					logger.Info(ctx, "watchlist extended from market scan",
						"added", added, "total", len(watch.symbols()))
				}
			}

		case <-retention.C:
			compressOldLogs(ctx, fileSink, cfg.Audit.RetentionDays)

		case <-sigc:
			logger.Info(ctx, "Shutting down...")
			cancel()
			if err := sink.Close(); err != nil {
				logger.Warn(ctx, "audit sink close failed", "error", err)
			}
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			_ = trace.Shutdown(shutdownCtx)
			done()
			return

		case <-ctx.Done():
			return
		}
	}
}

// watchlist is the mutable trading universe: the configured symbols plus
// anything the market scanner surfaces. Capped so a noisy scan cannot
// balloon the poll cycle.
type watchlist struct {
	mu   sync.Mutex
	list []string
	seen map[string]struct{}
}

const maxWatchlist = 50

func newWatchlist(initial []string) *watchlist {
	w := &watchlist{seen: make(map[string]struct{})}
	w.merge(initial)
	return w
}

func (w *watchlist) symbols() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.list))
	copy(out, w.list)
	return out
}

func (w *watchlist) merge(symbols []string) (added int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, s := range symbols {
		if len(w.list) >= maxWatchlist {
			break
		}
		if _, dup := w.seen[s]; dup {
			continue
		}
		w.seen[s] = struct{}{}
		w.list = append(w.list, s)
		added++
	}
	return added
}

// logCapitalSnapshot reports per-region headroom, with the India book
// also expressed in USD equivalents.
func logCapitalSnapshot(ctx context.Context, book *risk.Book, converter *fx.Converter) {
	usHeadroom := book.For(types.RegionUS).Headroom()
	inHeadroom := book.For(types.RegionIN).Headroom()
	logger.Info(ctx, "capital snapshot",
		"us_headroom_usd", usHeadroom,
		"india_headroom_inr", inHeadroom,
		"india_headroom_usd", converter.ToUSD(ctx, inHeadroom))
}

func logCacheStats(ctx context.Context, engine *decision.Engine) {
	stats := engine.CacheStats()
	logger.Info(ctx, "signal cache stats",
		"hits", stats.Hits, "misses", stats.Misses,
		"hit_rate", stats.HitRate, "entries", stats.Entries)
}
