package decision

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"trading-agent/internal/types"
)

const analystSystem = "You are a professional algorithmic trader. Respond only in valid JSON."

const reviewerSystem = "You are a conservative Risk Manager. Output JSON only."

// analysisSchema is embedded in the prompt and sent as the structured
// response contract. Field names match types.Decision json tags so the
// model output unmarshals directly.
const analysisSchema = `{
  "action": "BUY_CALL" | "BUY_PUT" | "BUY_STOCK" | "SELL" | "HOLD",
  "confidence": float (0.0-1.0),
  "rationale": "string explanation",
  "recommended_option": "string (e.g. CALL 150 EXP 2026-10-30) or null",
  "stop_loss": float or null,
  "take_profit": float or null
}`

const reviewSchema = `{
  "verdict": "APPROVE" | "REJECT",
  "rationale": "Brief explanation of risks found or why it's clean."
}`

// analysisPrompt renders the canonical request into the analyst prompt.
// The request is marshalled once by the caller; the rendered text is a
// human-readable view of the same data.
func analysisPrompt(req types.DecisionRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are an expert autonomous stock trader. Analyze the following data for %s and provide a trading decision.\n\n", req.Symbol)
	fmt.Fprintf(&b, "Current Price: %g\n\n", req.Price)

	ind, _ := json.MarshalIndent(req.Indicators, "", "  ")
	fmt.Fprintf(&b, "Technical Indicators:\n%s\n\n", ind)

	b.WriteString("Recent News:\n")
	b.WriteString(newsSummary(req.News, 5, true))
	b.WriteString("\n\n")

	b.WriteString("Options Chain Analysis:\n")
	b.WriteString(optionsTable(req.Options))
	b.WriteString("\n")

	if sec := earningsSection(req.Earnings); sec != "" {
		b.WriteString(sec)
		b.WriteString("\n")
	}

	if req.PeerContext != "" {
		fmt.Fprintf(&b, "Cross-Impact Context:\n%s\n\n", req.PeerContext)
	}

	b.WriteString("Goal: Optimal Profit with Managed Risk. Prefer high probability setups.\n")
	b.WriteString("If recommending BUY_CALL or BUY_PUT, YOU MUST SELECT the best specific contract from the Options Chain table above and populate 'recommended_option'.\n\n")
	fmt.Fprintf(&b, "Output JSON format ONLY:\n%s\n", analysisSchema)

	return b.String()
}

// reviewPrompt asks for an adversarial critique of an already-made call.
func reviewPrompt(req types.DecisionRequest, dec types.Decision) string {
	var b strings.Builder

	b.WriteString("ROLE: Strict Risk Manager.\n")
	fmt.Fprintf(&b, "TASK: Critique this proposed trade for %s.\n\n", req.Symbol)

	fmt.Fprintf(&b, "Proposed Trade: %s @ %g\n", dec.Action, req.Price)
	fmt.Fprintf(&b, "Reasoning: %s\n", dec.Rationale)
	fmt.Fprintf(&b, "Confidence: %.2f\n\n", dec.Confidence)

	ind, _ := json.MarshalIndent(req.Indicators, "", "  ")
	fmt.Fprintf(&b, "Context:\n- Tech Indicators: %s\n- Recent News:\n%s\n\n", ind, newsSummary(req.News, 3, false))

	b.WriteString("YOUR JOB:\n")
	b.WriteString("Find potential flaws, risks, or reasons WHY COMPLIANCE SHOULD REJECT THIS TRADE.\n")
	b.WriteString("Be skeptical. Look for conflicting signals (e.g. Buying Calls when RSI is 80, or Buying Puts when Support is near).\n\n")
	fmt.Fprintf(&b, "Output JSON ONLY:\n%s\n", reviewSchema)

	return b.String()
}

func newsSummary(items []types.NewsItem, limit int, withSource bool) string {
	if len(items) == 0 {
		return "- No recent headlines."
	}
	if len(items) > limit {
		items = items[:limit]
	}
	lines := make([]string, 0, len(items))
	for _, n := range items {
		if withSource && n.Source != "" {
			lines = append(lines, fmt.Sprintf("- %s (%s)", n.Title, n.Source))
		} else {
			lines = append(lines, "- "+n.Title)
		}
	}
	return strings.Join(lines, "\n")
}

// optionsTable renders the top five calls and puts by volume.
func optionsTable(options []types.OptionQuote) string {
	if len(options) == 0 {
		return "No options data available."
	}

	var calls, puts []types.OptionQuote
	for _, o := range options {
		if o.Type == "put" {
			puts = append(puts, o)
		} else {
			calls = append(calls, o)
		}
	}
	byVolume := func(s []types.OptionQuote) []types.OptionQuote {
		sort.SliceStable(s, func(i, j int) bool { return s[i].Volume > s[j].Volume })
		if len(s) > 5 {
			s = s[:5]
		}
		return s
	}

	var b strings.Builder
	writeRows := func(title string, rows []types.OptionQuote) {
		fmt.Fprintf(&b, "%s:\n", title)
		fmt.Fprintf(&b, "| %-8s | %-10s | %-6s | %-6s | %-6s | %-5s |\n", "Strike", "Expiry", "Last", "Vol", "OI", "IV")
		b.WriteString(strings.Repeat("-", 60) + "\n")
		for _, o := range rows {
			fmt.Fprintf(&b, "| %-8g | %-10s | %-6g | %-6d | %-6d | %.2f |\n",
				o.Strike, o.Expiry, o.LastPrice, o.Volume, o.OpenInterest, o.ImpliedVol)
		}
	}
	writeRows("Top Liquid Options (Calls)", byVolume(calls))
	b.WriteString("\n")
	writeRows("Top Liquid Options (Puts)", byVolume(puts))
	return b.String()
}

// earningsSection renders the volatility warning when an earnings date is
// known. Inside the imminent window the prompt steers toward HOLD; the
// model still makes the call.
func earningsSection(info *types.EarningsInfo) string {
	if info == nil || !info.Known {
		return ""
	}
	imminent := info.ImminentDays
	if imminent <= 0 {
		imminent = 3
	}
	var b strings.Builder
	b.WriteString("EARNINGS ALERT:\n")
	fmt.Fprintf(&b, "- Next Earnings Date: %s\n", info.Date)
	fmt.Fprintf(&b, "- Days Until Earnings: %d\n", info.DaysUntil)
	fmt.Fprintf(&b, "- EPS Estimate: %s\n", floatOrNA(info.EPSEstimate))
	fmt.Fprintf(&b, "- Revenue Estimate: %s\n", floatOrNA(info.RevenueEstimate))
	b.WriteString("\nIMPORTANT: Earnings announcements can cause significant volatility. Factor this into your risk assessment.\n")
	fmt.Fprintf(&b, "If earnings are within %d days, prefer HOLD unless the setup is very strong.\n", imminent)
	return b.String()
}

func floatOrNA(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf("%g", *v)
}
