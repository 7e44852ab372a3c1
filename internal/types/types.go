package types

import "time"

// Region classifies an instrument's home market. Suffix convention:
// .NS / .BO tickers trade in India, everything else in the US.
type Region string

const (
	RegionUS Region = "US"
	RegionIN Region = "IN"
)

// Currency returns the trading currency for the region.
func (r Region) Currency() string {
	if r == RegionIN {
		return "INR"
	}
	return "USD"
}

// Action is the trade decision produced by the analysis stage.
type Action string

const (
	ActionBuyCall  Action = "BUY_CALL"
	ActionBuyPut   Action = "BUY_PUT"
	ActionBuyStock Action = "BUY_STOCK"
	ActionSell     Action = "SELL"
	ActionHold     Action = "HOLD"
)

// Valid reports whether a is one of the five recognised actions.
func (a Action) Valid() bool {
	switch a {
	case ActionBuyCall, ActionBuyPut, ActionBuyStock, ActionSell, ActionHold:
		return true
	}
	return false
}

// IsDerivative reports whether the action implies an option contract.
func (a Action) IsDerivative() bool {
	return a == ActionBuyCall || a == ActionBuyPut
}

// IsBuy reports whether the action opens or adds to a position.
func (a Action) IsBuy() bool {
	return a == ActionBuyCall || a == ActionBuyPut || a == ActionBuyStock
}

type Candle struct {
	Ts                          int64
	Open, High, Low, Close, Vol float64
}

type Indicators struct {
	RSI        float64  `json:"rsi"`
	MACD       float64  `json:"macd"`
	MACDSignal float64  `json:"macd_signal"`
	BBUpper    float64  `json:"bb_upper"`
	BBLower    float64  `json:"bb_lower"`
	ATR        float64  `json:"atr"`
	SMA50      *float64 `json:"sma_50,omitempty"`
	SMA200     *float64 `json:"sma_200,omitempty"`
}

// OptionQuote is one contract from a chain snapshot.
type OptionQuote struct {
	Type         string  `json:"type"` // "call" or "put"
	Strike       float64 `json:"strike"`
	Expiry       string  `json:"expiry"` // ISO date
	LastPrice    float64 `json:"last_price"`
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	Volume       int64   `json:"volume"`
	OpenInterest int64   `json:"open_interest"`
	ImpliedVol   float64 `json:"implied_volatility"`
	Delta        float64 `json:"delta,omitempty"`
}

type NewsItem struct {
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
	Date   string `json:"date,omitempty"`
	Source string `json:"source,omitempty"`
}

// EarningsInfo is the next scheduled earnings event for an instrument.
// Known is false when the provider has no upcoming date.
type EarningsInfo struct {
	Symbol          string   `json:"symbol"`
	Known           bool     `json:"known"`
	Date            string   `json:"date,omitempty"` // ISO date
	DaysUntil       int      `json:"days_until,omitempty"`
	EPSEstimate     *float64 `json:"eps_estimate,omitempty"`
	RevenueEstimate *float64 `json:"revenue_estimate,omitempty"`
	WithinWarning   bool     `json:"within_warning_window,omitempty"`
	// ImminentDays is the window inside which the prompt steers toward
	// HOLD. Serialized so a window change also changes the cache digest.
	ImminentDays int `json:"imminent_days,omitempty"`
}

// PeerEarnings flags a correlated peer with earnings inside the
// cross-impact window (upcoming or just reported).
type PeerEarnings struct {
	Peer         string   `json:"peer"`
	Relationship string   `json:"relationship"`
	Date         string   `json:"date"`
	Timing       string   `json:"timing"` // "just reported" or "in N days"
	EPSEstimate  *float64 `json:"eps_estimate,omitempty"`
	ImpactWeight float64  `json:"impact_weight"`
}

// PeerMove flags a correlated peer whose last session move crossed the
// materiality threshold.
type PeerMove struct {
	Peer         string  `json:"peer"`
	Relationship string  `json:"relationship"`
	ChangePct    float64 `json:"change_pct"`
	Direction    string  `json:"direction"`
	ImpactWeight float64 `json:"impact_weight"`
}

// PeerContext is the cross-impact block embedded verbatim into the
// decision request.
type PeerContext struct {
	Symbol      string         `json:"symbol"`
	Earnings    []PeerEarnings `json:"earnings,omitempty"`
	Moves       []PeerMove     `json:"moves,omitempty"`
	MacroThemes []string       `json:"macro_themes,omitempty"`
	Summary     string         `json:"summary,omitempty"`
}

// DecisionRequest is the canonical, order-preserving payload sent to the
// language model. The same bytes that render the prompt also feed the
// cache digest, so any field change invalidates the cached response.
type DecisionRequest struct {
	Symbol      string        `json:"symbol"`
	Price       float64       `json:"price"`
	Indicators  Indicators    `json:"indicators"`
	News        []NewsItem    `json:"news,omitempty"`
	Options     []OptionQuote `json:"options,omitempty"`
	Earnings    *EarningsInfo `json:"earnings,omitempty"`
	PeerContext string        `json:"peer_context,omitempty"`
}

// Decision is the structured output of the analysis stage. Action and
// Confidence are always set; the option fields only when the action is a
// derivative.
type Decision struct {
	Action            Action   `json:"action"`
	Confidence        float64  `json:"confidence"`
	Rationale         string   `json:"rationale"`
	RecommendedOption string   `json:"recommended_option,omitempty"`
	StopLoss          *float64 `json:"stop_loss,omitempty"`
	TakeProfit        *float64 `json:"take_profit,omitempty"`
}

// ReviewVerdict is the adversarial second opinion. When Approved is false
// the cycle must not reach sizing or execution.
type ReviewVerdict struct {
	Approved  bool   `json:"approved"`
	Verdict   string `json:"verdict"` // APPROVE or REJECT
	Rationale string `json:"rationale"`
}

// SizedOrder is an approved decision translated into a bounded quantity.
type SizedOrder struct {
	Symbol   string  `json:"symbol"`
	Action   Action  `json:"action"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Notional float64 `json:"notional"`
	Region   Region  `json:"region"`
	Currency string  `json:"currency"`
}

type OrderRequest struct {
	Symbol   string
	Action   Action
	Quantity int
	Price    float64
	Tag      string
}

type OrderConfirmation struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// ExecutionAttempt records one destination attempt, success or failure.
type ExecutionAttempt struct {
	Destination string `json:"destination"`
	Success     bool   `json:"success"`
	OrderID     string `json:"order_id,omitempty"`
	Error       string `json:"error,omitempty"`
	LatencyMS   int64  `json:"latency_ms"`
}

type ExecutionResult struct {
	Destination string             `json:"destination"`
	OrderID     string             `json:"order_id"`
	Attempts    []ExecutionAttempt `json:"attempts"`
}

// PipelineState is the orchestrator state machine position. Transitions
// are strictly forward; SKIPPED and FAILED are terminal.
type PipelineState string

const (
	StateFetching  PipelineState = "FETCHING"
	StateAnalyzing PipelineState = "ANALYZING"
	StateReviewing PipelineState = "REVIEWING"
	StateSizing    PipelineState = "SIZING"
	StateRouting   PipelineState = "ROUTING"
	StateDone      PipelineState = "DONE"
	StateSkipped   PipelineState = "SKIPPED"
	StateFailed    PipelineState = "FAILED"
)

// ErrKind is the fixed failure classification surfaced on audit events.
type ErrKind string

const (
	ErrKindNone            ErrKind = ""
	ErrKindTransient       ErrKind = "TRANSIENT_UNAVAILABLE"
	ErrKindValidation      ErrKind = "VALIDATION_FAILURE"
	ErrKindReviewUncertain ErrKind = "REVIEW_UNCERTAIN"
	ErrKindSizeRejected    ErrKind = "SIZE_REJECTED"
	ErrKindExecution       ErrKind = "EXECUTION_FAILURE"
)

// AuditEvent is one append-only entry in the high-volume operational
// record set. Never mutated after creation.
type AuditEvent struct {
	Time             time.Time     `json:"time"`
	Symbol           string        `json:"symbol"`
	Region           Region        `json:"region"`
	State            PipelineState `json:"state"`
	Stage            string        `json:"stage,omitempty"`
	Success          bool          `json:"success"`
	LatencyMS        int64         `json:"latency_ms"`
	CacheHit         bool          `json:"cache_hit,omitempty"`
	PromptTokens     int           `json:"prompt_tokens,omitempty"`
	CompletionTokens int           `json:"completion_tokens,omitempty"`
	ErrKind          ErrKind       `json:"err_kind,omitempty"`
	Detail           string        `json:"detail,omitempty"`
}

// TradeRecord is the low-volume durable record of one pipeline run.
// Created once at the end of the cycle, never mutated.
type TradeRecord struct {
	Time      time.Time        `json:"time"`
	Symbol    string           `json:"symbol"`
	Region    Region           `json:"region"`
	Outcome   PipelineState    `json:"outcome"`
	Decision  *Decision        `json:"decision,omitempty"`
	Verdict   *ReviewVerdict   `json:"verdict,omitempty"`
	Order     *SizedOrder      `json:"order,omitempty"`
	Execution *ExecutionResult `json:"execution,omitempty"`
	Reason    string           `json:"reason,omitempty"`
}

// CacheStats is the observability surface of the signal cache.
type CacheStats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Entries int     `json:"entries"`
}

// SessionInfo describes one exchange session day for an instrument.
type SessionInfo struct {
	Exchange    string `json:"exchange"`
	Date        string `json:"date"`
	IsHoliday   bool   `json:"is_holiday"`
	HolidayName string `json:"holiday_name,omitempty"`
	OpenTime    string `json:"open_time,omitempty"`
	CloseTime   string `json:"close_time,omitempty"`
	EarlyClose  bool   `json:"early_close,omitempty"`
}

// CompletionRequest is a structured prompt plus the JSON schema the
// response must satisfy.
type CompletionRequest struct {
	System string
	Prompt string
	Schema string
}

// CompletionResult carries the raw model output and token accounting.
type CompletionResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}
