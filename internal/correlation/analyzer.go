package correlation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"trading-agent/internal/interfaces"
	"trading-agent/internal/logger"
	"trading-agent/internal/types"
)

// Options bounds the cross-impact scan.
type Options struct {
	EarningsAheadDays  int     // peer earnings this many days ahead count
	EarningsBehindDays int     // and this many days behind ("just reported")
	MoveThresholdPct   float64 // ignore peer moves smaller than this
	MaxPeers           int     // cap for sector-fallback discovery
}

func (o *Options) normalize() {
	if o.EarningsAheadDays <= 0 {
		o.EarningsAheadDays = 14
	}
	if o.EarningsBehindDays <= 0 {
		o.EarningsBehindDays = 3
	}
	if o.MoveThresholdPct <= 0 {
		o.MoveThresholdPct = 3.0
	}
	if o.MaxPeers <= 0 {
		o.MaxPeers = 6
	}
}

// Analyzer builds the peer/macro context block for a target instrument.
// Peer fetch failures degrade the context rather than failing it.
type Analyzer struct {
	market   interfaces.MarketData
	earnings interfaces.EarningsProvider
	sectors  SectorLookup
	universe []string
	opts     Options
}

func NewAnalyzer(market interfaces.MarketData, earnings interfaces.EarningsProvider, sectors SectorLookup, universe []string, opts Options) *Analyzer {
	opts.normalize()
	return &Analyzer{
		market:   market,
		earnings: earnings,
		sectors:  sectors,
		universe: universe,
		opts:     opts,
	}
}

// Context scans the symbol's peers for earnings activity and significant
// price moves, and attaches the symbol's macro sensitivities. It never
// returns an error: a peer that cannot be fetched is simply absent.
func (a *Analyzer) Context(ctx context.Context, symbol string) types.PeerContext {
	pc := types.PeerContext{Symbol: symbol}
	related := a.Related(symbol)

	for _, rel := range related {
		if ea, ok := a.peerEarnings(ctx, rel); ok {
			pc.Earnings = append(pc.Earnings, ea)
		}
		if mv, ok := a.peerMove(ctx, rel); ok {
			pc.Moves = append(pc.Moves, mv)
		}
	}

	sort.Slice(pc.Earnings, func(i, j int) bool {
		return pc.Earnings[i].ImpactWeight > pc.Earnings[j].ImpactWeight
	})
	sort.Slice(pc.Moves, func(i, j int) bool {
		return math.Abs(pc.Moves[i].ChangePct) > math.Abs(pc.Moves[j].ChangePct)
	})

	pc.MacroThemes = MacroThemes(symbol)
	pc.Summary = renderSummary(pc)

	logger.Info(ctx, "cross impact analyzed",
		"symbol", symbol,
		"peers", len(related),
		"earnings_alerts", len(pc.Earnings),
		"price_moves", len(pc.Moves),
		"macro_themes", len(pc.MacroThemes))
	return pc
}

func (a *Analyzer) peerEarnings(ctx context.Context, rel Relation) (types.PeerEarnings, bool) {
	if a.earnings == nil {
		return types.PeerEarnings{}, false
	}
	info, err := a.earnings.NextEarnings(ctx, rel.Symbol)
	if err != nil || !info.Known {
		return types.PeerEarnings{}, false
	}
	if info.DaysUntil < -a.opts.EarningsBehindDays || info.DaysUntil > a.opts.EarningsAheadDays {
		return types.PeerEarnings{}, false
	}
	timing := fmt.Sprintf("in %d days", info.DaysUntil)
	if info.DaysUntil < 0 {
		timing = "just reported"
	}
	return types.PeerEarnings{
		Peer:         rel.Symbol,
		Relationship: rel.Relationship,
		Date:         info.Date,
		Timing:       timing,
		EPSEstimate:  info.EPSEstimate,
		ImpactWeight: rel.Weight,
	}, true
}

func (a *Analyzer) peerMove(ctx context.Context, rel Relation) (types.PeerMove, bool) {
	if a.market == nil {
		return types.PeerMove{}, false
	}
	hist, err := a.market.History(ctx, rel.Symbol, 5)
	if err != nil || len(hist) < 2 {
		return types.PeerMove{}, false
	}
	latest := hist[len(hist)-1].Close
	prev := hist[len(hist)-2].Close
	if prev == 0 {
		return types.PeerMove{}, false
	}
	pct := (latest - prev) / prev * 100
	if math.Abs(pct) <= a.opts.MoveThresholdPct {
		return types.PeerMove{}, false
	}
	direction := "up"
	if pct < 0 {
		direction = "down"
	}
	return types.PeerMove{
		Peer:         rel.Symbol,
		Relationship: rel.Relationship,
		ChangePct:    math.Round(pct*100) / 100,
		Direction:    direction,
		ImpactWeight: rel.Weight,
	}, true
}

func renderSummary(pc types.PeerContext) string {
	var b strings.Builder

	if len(pc.Earnings) > 0 {
		b.WriteString("Peer Earnings Activity:\n")
		for _, ea := range pc.Earnings {
			eps := "N/A"
			if ea.EPSEstimate != nil {
				eps = fmt.Sprintf("%.2f", *ea.EPSEstimate)
			}
			fmt.Fprintf(&b, "  - %s (%s) has earnings %s (EPS est: %s)\n",
				ea.Peer, ea.Relationship, ea.Timing, eps)
		}
	}
	if len(pc.Moves) > 0 {
		b.WriteString("Significant Peer Price Moves:\n")
		for _, mv := range pc.Moves {
			fmt.Fprintf(&b, "  - %s (%s) moved %+.1f%% (%s) in last session\n",
				mv.Peer, mv.Relationship, mv.ChangePct, mv.Direction)
		}
	}
	if len(pc.MacroThemes) > 0 {
		b.WriteString("Macro/Political Sensitivities (scan news for these):\n")
		for _, theme := range pc.MacroThemes {
			fmt.Fprintf(&b, "  - %s\n", theme)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
