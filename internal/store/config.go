package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode        string `yaml:"mode"` // DRY_RUN or LIVE
	PollSeconds int    `yaml:"poll_seconds"`

	Universe struct {
		US    []string `yaml:"us"`
		India []string `yaml:"india"`
	} `yaml:"universe"`

	LLM struct {
		Provider      string  `yaml:"provider"` // OPENAI or NOOP
		Model         string  `yaml:"model"`
		Endpoint      string  `yaml:"endpoint"`
		MaxTokens     int     `yaml:"max_tokens"`
		Temperature   float32 `yaml:"temperature"`
		MinConfidence float64 `yaml:"min_confidence"`
		TimeoutSec    int     `yaml:"timeout_seconds"`
	} `yaml:"llm"`

	Cache struct {
		TTLMinutes int `yaml:"ttl_minutes"`
		MaxEntries int `yaml:"max_entries"`
	} `yaml:"cache"`

	News struct {
		MaxHeadlines int    `yaml:"max_headlines"`
		MacroQuery   string `yaml:"macro_query"`
	} `yaml:"news"`

	Earnings struct {
		WarningDays  int `yaml:"warning_days"`
		ImminentDays int `yaml:"imminent_days"`
	} `yaml:"earnings"`

	Correlation struct {
		EarningsAheadDays  int     `yaml:"earnings_ahead_days"`
		EarningsBehindDays int     `yaml:"earnings_behind_days"`
		MoveThresholdPct   float64 `yaml:"move_threshold_pct"`
		MaxPeers           int     `yaml:"max_peers"`
	} `yaml:"correlation"`

	Risk struct {
		MaxRiskPerTrade float64      `yaml:"max_risk_per_trade"`
		CapitalFloor    float64      `yaml:"capital_floor"`
		ATRStopMult     float64      `yaml:"atr_stop_mult"`
		MaxDailyLossPct float64      `yaml:"max_daily_loss_pct"`
		MaxDailyTrades  int          `yaml:"max_daily_trades"`
		US              RegionLimits `yaml:"us"`
		India           RegionLimits `yaml:"india"`
	} `yaml:"risk"`

	Routing struct {
		USPrimary     string `yaml:"us_primary"`
		IndiaPrimary  string `yaml:"india_primary"`
		IndiaFallback string `yaml:"india_fallback"`
	} `yaml:"routing"`

	Concurrency struct {
		MaxParallel       int `yaml:"max_parallel"`
		FetchTimeoutSec   int `yaml:"fetch_timeout_seconds"`
		ExecuteTimeoutSec int `yaml:"execute_timeout_seconds"`
	} `yaml:"concurrency"`

	Scanner struct {
		Enabled         bool `yaml:"enabled"`
		IntervalMinutes int  `yaml:"interval_minutes"`
	} `yaml:"scanner"`

	Audit struct {
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days"`
		Kafka         struct {
			Enabled    bool     `yaml:"enabled"`
			Brokers    []string `yaml:"brokers"`
			EventTopic string   `yaml:"event_topic"`
			TradeTopic string   `yaml:"trade_topic"`
			ClientID   string   `yaml:"client_id"`
			MaxRetries int      `yaml:"max_retries"`
		} `yaml:"kafka"`
		Postgres struct {
			Enabled bool   `yaml:"enabled"`
			DSN     string `yaml:"dsn"`
		} `yaml:"postgres"`
	} `yaml:"audit"`
}

// RegionLimits is the capital configuration for one region's ledger.
type RegionLimits struct {
	MaxCapital  float64 `yaml:"max_capital"`
	MaxPerTrade float64 `yaml:"max_per_trade"` // 0 means 20% of max_capital
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if len(c.Universe.US) == 0 && len(c.Universe.India) == 0 {
		return errors.New("universe cannot be empty")
	}
	if c.Risk.MaxRiskPerTrade <= 0 || c.Risk.MaxRiskPerTrade >= 1 {
		return fmt.Errorf("risk.max_risk_per_trade must be in (0,1), got %.4f", c.Risk.MaxRiskPerTrade)
	}
	if c.Risk.US.MaxCapital <= 0 && c.Risk.India.MaxCapital <= 0 {
		return errors.New("at least one region needs max_capital > 0")
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.Routing.IndiaPrimary != "" && c.Routing.IndiaPrimary == c.Routing.IndiaFallback {
		return errors.New("routing.india_fallback must differ from routing.india_primary")
	}
	return nil
}

// Universe returns the combined watchlist, US first.
func (c *Config) AllSymbols() []string {
	out := make([]string, 0, len(c.Universe.US)+len(c.Universe.India))
	out = append(out, c.Universe.US...)
	out = append(out, c.Universe.India...)
	return out
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.PollSeconds == 0 {
		c.PollSeconds = 300
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "NOOP"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1024
	}
	if c.LLM.MinConfidence == 0 {
		c.LLM.MinConfidence = 0.6
	}
	if c.LLM.TimeoutSec == 0 {
		c.LLM.TimeoutSec = 60
	}
	if c.Cache.TTLMinutes == 0 {
		c.Cache.TTLMinutes = 15
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = 200
	}
	if c.News.MaxHeadlines == 0 {
		c.News.MaxHeadlines = 5
	}
	if c.News.MacroQuery == "" {
		c.News.MacroQuery = "Global Economy War Geopolitics Bonds"
	}
	if c.Earnings.WarningDays == 0 {
		c.Earnings.WarningDays = 7
	}
	if c.Earnings.ImminentDays == 0 {
		c.Earnings.ImminentDays = 3
	}
	if c.Correlation.EarningsAheadDays == 0 {
		c.Correlation.EarningsAheadDays = 14
	}
	if c.Correlation.EarningsBehindDays == 0 {
		c.Correlation.EarningsBehindDays = 3
	}
	if c.Correlation.MoveThresholdPct == 0 {
		c.Correlation.MoveThresholdPct = 3.0
	}
	if c.Correlation.MaxPeers == 0 {
		c.Correlation.MaxPeers = 6
	}
	if c.Risk.MaxRiskPerTrade == 0 {
		c.Risk.MaxRiskPerTrade = 0.02
	}
	if c.Risk.CapitalFloor == 0 {
		c.Risk.CapitalFloor = 100.0
	}
	if c.Risk.ATRStopMult == 0 {
		c.Risk.ATRStopMult = 2.0
	}
	if c.Risk.MaxDailyLossPct == 0 {
		c.Risk.MaxDailyLossPct = 0.05
	}
	if c.Risk.MaxDailyTrades == 0 {
		c.Risk.MaxDailyTrades = 50
	}
	if c.Routing.USPrimary == "" {
		c.Routing.USPrimary = "robinhood"
	}
	if c.Routing.IndiaPrimary == "" {
		c.Routing.IndiaPrimary = "zerodha"
	}
	if c.Routing.IndiaFallback == "" {
		c.Routing.IndiaFallback = "icici"
	}
	if c.Concurrency.MaxParallel == 0 {
		c.Concurrency.MaxParallel = 4
	}
	if c.Concurrency.FetchTimeoutSec == 0 {
		c.Concurrency.FetchTimeoutSec = 30
	}
	if c.Concurrency.ExecuteTimeoutSec == 0 {
		c.Concurrency.ExecuteTimeoutSec = 20
	}
	if c.Scanner.IntervalMinutes == 0 {
		c.Scanner.IntervalMinutes = 60
	}
	if c.Audit.Dir == "" {
		c.Audit.Dir = "logs"
	}
	if c.Audit.Kafka.EventTopic == "" {
		c.Audit.Kafka.EventTopic = "trading.audit"
	}
	if c.Audit.Kafka.TradeTopic == "" {
		c.Audit.Kafka.TradeTopic = "trading.trades"
	}
	if c.Audit.Kafka.ClientID == "" {
		c.Audit.Kafka.ClientID = "trading-agent"
	}
	if c.Audit.Kafka.MaxRetries == 0 {
		c.Audit.Kafka.MaxRetries = 3
	}
}
