package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"trading-agent/internal/interfaces"
	"trading-agent/internal/logger"
	"trading-agent/internal/trace"
	"trading-agent/internal/types"
)

const scannerSchema = `["TICKER", ...]`

var scanQueries = []string{
	"top gaining stocks today",
	"most active stocks",
	"stocks in the news",
}

// indices the scanner must never surface as tradable instruments
var ignoredSymbols = map[string]struct{}{
	"SPY": {}, "QQQ": {}, "DIA": {}, "NDAQ": {}, "DOW": {},
	"SENSEX": {}, "NIFTY": {},
}

var tickerPattern = regexp.MustCompile(`^[A-Z][A-Z0-9&-]{0,14}(\.NS|\.BO)?$`)

// Scanner is the low-frequency market-wide sweep: it collects general
// market headlines and asks the model to extract trending tickers. It
// shares no mutable state with per-instrument pipelines.
type Scanner struct {
	news      interfaces.NewsProvider
	completer interfaces.Completer
	limit     int
}

func NewScanner(news interfaces.NewsProvider, completer interfaces.Completer, headlineLimit int) *Scanner {
	if headlineLimit <= 0 {
		headlineLimit = 15
	}
	return &Scanner{news: news, completer: completer, limit: headlineLimit}
}

// Scan returns trending tickers in suffix-convention format. Failures
// degrade to an empty result; the scanner never blocks trading cycles.
func (s *Scanner) Scan(ctx context.Context) []string {
	ctx, span := trace.StartSpan(ctx, "scanner.Scan")
	defer span.End()

	seen := make(map[string]struct{})
	var headlines []string
	for _, q := range scanQueries {
		items, err := s.news.RecentHeadlines(ctx, q, s.limit)
		if err != nil {
			logger.Warn(ctx, "scanner news fetch failed", "query", q, "error", err)
			continue
		}
		for _, n := range items {
			if _, dup := seen[n.Title]; dup {
				continue
			}
			seen[n.Title] = struct{}{}
			headlines = append(headlines, "- "+n.Title)
		}
	}
	if len(headlines) == 0 {
		logger.Warn(ctx, "scanner found no market news")
		return nil
	}
	if len(headlines) > s.limit {
		headlines = headlines[:s.limit]
	}

	res, err := s.completer.Complete(ctx, types.CompletionRequest{
		System: "You extract stock tickers from news. Return ONLY a JSON list of strings.",
		Prompt: scanPrompt(headlines),
		Schema: scannerSchema,
	})
	if err != nil {
		logger.ErrorWithErr(ctx, "scanner completion failed", err)
		return nil
	}

	tickers := parseTickers(res.Content)
	logger.Info(ctx, "market scan complete", "tickers", tickers)
	return tickers
}

func scanPrompt(headlines []string) string {
	var b strings.Builder
	b.WriteString("Analyze these news headlines and extract a list of stock tickers (symbols) that are being positively discussed or have significant activity.\n\n")
	b.WriteString("CRITICAL INSTRUCTION:\n")
	b.WriteString("- Return tickers in suffix-convention format.\n")
	b.WriteString(`- For US stocks: "AAPL", "TSLA", "NVDA"` + "\n")
	b.WriteString(`- For Indian stocks (NSE): append ".NS", e.g. "RELIANCE.NS", "TCS.NS"` + "\n")
	b.WriteString("- Ignore general market indices like SPY, NDAQ, DOW, SENSEX, NIFTY.\n\n")
	fmt.Fprintf(&b, "Headlines:\n%s\n\nReturn ONLY a JSON list of strings.\n", strings.Join(headlines, "\n"))
	return b.String()
}

// parseTickers pulls the first JSON array out of the response and keeps
// entries that look like real tickers.
func parseTickers(content string) []string {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil
	}

	var raw []string
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil
	}

	var out []string
	dedup := make(map[string]struct{})
	for _, t := range raw {
		t = strings.ToUpper(strings.TrimSpace(t))
		if !tickerPattern.MatchString(t) {
			continue
		}
		if _, skip := ignoredSymbols[t]; skip {
			continue
		}
		if _, dup := dedup[t]; dup {
			continue
		}
		dedup[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
