package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"trading-agent/internal/audit"
	"trading-agent/internal/broker"
	"trading-agent/internal/interfaces"
	"trading-agent/internal/llm/llmobs"
	"trading-agent/internal/llm/noop"
	"trading-agent/internal/llm/openai"
	"trading-agent/internal/logger"
	"trading-agent/internal/marketdata"
	"trading-agent/internal/pipeline"
	"trading-agent/internal/risk"
	"trading-agent/internal/router"
	"trading-agent/internal/store"
	"trading-agent/internal/trace"
	"trading-agent/internal/types"

	"github.com/joho/godotenv"
)

// initializeSystem initializes the logger and tracer.
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}
	return nil
}

func loadConfig(ctx context.Context) (*store.Config, error) {
	cfg, err := store.LoadConfig("config.yaml")
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err)
		return nil, err
	}
	return cfg, nil
}

// initializeMarketData returns the market data source wrapped with a
// rate limiter. The simulated source is deterministic per symbol so dry
// runs are reproducible.
func initializeMarketData(ctx context.Context, cfg *store.Config) (*marketdata.Sim, interfaces.MarketData) {
	sim := marketdata.NewSim()
	if cfg.Mode == "DRY_RUN" {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	}
	return sim, marketdata.RateLimit(sim, 5, 10)
}

// initializeCompleter initializes the LLM completer with observability.
func initializeCompleter(ctx context.Context, cfg *store.Config) interfaces.Completer {
	var completer interfaces.Completer

	switch cfg.LLM.Provider {
	case "OPENAI":
		completer = openai.New(openai.Config{
			Endpoint:    cfg.LLM.Endpoint,
			Model:       cfg.LLM.Model,
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: float64(cfg.LLM.Temperature),
			Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		})
	default:
		completer = noop.New()
		logger.Warn(ctx, "No LLM provider configured - using noop completer (always HOLD)")
	}

	return llmobs.Wrap(completer)
}

// initializeSink assembles the audit fan-out: JSONL files always, Kafka
// and Postgres when enabled. A sink that fails to start is skipped with
// a warning rather than blocking the agent.
func initializeSink(ctx context.Context, cfg *store.Config) (audit.Sink, *audit.FileSink) {
	fileSink := audit.NewFileSink(cfg.Audit.Dir)
	sinks := []audit.Sink{fileSink}

	if cfg.Audit.Kafka.Enabled {
		ks, err := audit.NewKafkaSink(audit.KafkaConfig{
			Brokers:    cfg.Audit.Kafka.Brokers,
			EventTopic: cfg.Audit.Kafka.EventTopic,
			TradeTopic: cfg.Audit.Kafka.TradeTopic,
			ClientID:   cfg.Audit.Kafka.ClientID,
			MaxRetries: cfg.Audit.Kafka.MaxRetries,
		})
		if err != nil {
			logger.Warn(ctx, "Kafka audit sink unavailable, continuing without", "error", err)
		} else {
			sinks = append(sinks, ks)
			logger.Info(ctx, "Kafka audit sink enabled", "brokers", cfg.Audit.Kafka.Brokers)
		}
	}

	if cfg.Audit.Postgres.Enabled {
		ps, err := audit.NewPostgresSink(cfg.Audit.Postgres.DSN)
		if err != nil {
			logger.Warn(ctx, "Postgres audit sink unavailable, continuing without", "error", err)
		} else {
			sinks = append(sinks, ps)
			logger.Info(ctx, "Postgres audit sink enabled")
		}
	}

	return audit.NewMultiSink(sinks...), fileSink
}

// initializeBook creates the per-region capital ledgers.
func initializeBook(cfg *store.Config) *risk.Book {
	shared := risk.Limits{
		MaxRiskPerTrade: cfg.Risk.MaxRiskPerTrade,
		CapitalFloor:    cfg.Risk.CapitalFloor,
		ATRStopMult:     cfg.Risk.ATRStopMult,
		MaxDailyLossPct: cfg.Risk.MaxDailyLossPct,
		MaxDailyTrades:  cfg.Risk.MaxDailyTrades,
	}

	us := shared
	us.MaxCapital = cfg.Risk.US.MaxCapital
	us.MaxPerTrade = cfg.Risk.US.MaxPerTrade

	india := shared
	india.MaxCapital = cfg.Risk.India.MaxCapital
	india.MaxPerTrade = cfg.Risk.India.MaxPerTrade

	return risk.NewBook(
		risk.NewLedger(types.RegionUS, us),
		risk.NewLedger(types.RegionIN, india),
	)
}

// initializeRouter registers a paper venue under each configured
// destination name.
func initializeRouter(cfg *store.Config) *router.Router {
	rt := router.New(router.Routes{
		USPrimary:     cfg.Routing.USPrimary,
		IndiaPrimary:  cfg.Routing.IndiaPrimary,
		IndiaFallback: cfg.Routing.IndiaFallback,
	})

	seen := make(map[string]struct{})
	for _, name := range []string{cfg.Routing.USPrimary, cfg.Routing.IndiaPrimary, cfg.Routing.IndiaFallback} {
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		rt.Register(broker.NewPaper(name))
	}
	return rt
}

func pipelineOptions(cfg *store.Config) pipeline.Options {
	return pipeline.Options{
		LiveMode:        cfg.Mode == "LIVE",
		MinConfidence:   cfg.LLM.MinConfidence,
		MaxHeadlines:    cfg.News.MaxHeadlines,
		EarningsWarnDay:     cfg.Earnings.WarningDays,
		EarningsImminentDay: cfg.Earnings.ImminentDays,
		MaxParallel:     int64(cfg.Concurrency.MaxParallel),
		FetchTimeout:    time.Duration(cfg.Concurrency.FetchTimeoutSec) * time.Second,
		ExecuteTimeout:  time.Duration(cfg.Concurrency.ExecuteTimeoutSec) * time.Second,
		MacroQuery:      cfg.News.MacroQuery,
	}
}

// compressOldLogs gzips audit files past the configured retention.
func compressOldLogs(ctx context.Context, sink *audit.FileSink, retentionDays int) {
	if retentionDays <= 0 {
		return
	}
	if err := sink.CompressOlder(retentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old audit logs", "error", err)
	}
}
