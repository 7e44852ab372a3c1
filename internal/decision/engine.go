// Package decision runs the two model stages of a trade cycle: the
// analyst call that produces a structured Decision, and the adversarial
// review that can veto it. Both stages are memoized through the signal
// cache keyed by the canonical request payload.
package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"trading-agent/internal/interfaces"
	"trading-agent/internal/logger"
	"trading-agent/internal/signalcache"
	"trading-agent/internal/types"
)

const (
	stageAnalyze = "analyze"
	stageReview  = "review"
)

// Outcome is the per-call accounting attached to audit events.
type Outcome struct {
	CacheHit         bool
	LatencyMS        int64
	PromptTokens     int
	CompletionTokens int
}

// Engine wraps a Completer with caching and strict response validation.
type Engine struct {
	completer interfaces.Completer
	cache     *signalcache.Cache
}

func NewEngine(completer interfaces.Completer, cache *signalcache.Cache) *Engine {
	return &Engine{completer: completer, cache: cache}
}

// Analyze produces a trading decision for the canonical request. A
// response that does not satisfy the schema is a hard failure wrapped in
// types.ErrValidation; it is never coerced into a usable decision.
func (e *Engine) Analyze(ctx context.Context, req types.DecisionRequest) (types.Decision, Outcome, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return types.Decision{}, Outcome{}, fmt.Errorf("marshal request: %w", err)
	}
	key := signalcache.Digest(payload, stageAnalyze)

	if cached, ok := e.cache.Get(key); ok {
		var dec types.Decision
		if err := json.Unmarshal([]byte(cached), &dec); err == nil {
			logger.Info(ctx, "analysis cache hit", "symbol", req.Symbol, "action", dec.Action)
			return dec, Outcome{CacheHit: true}, nil
		}
	}

	start := time.Now()
	res, err := e.completer.Complete(ctx, types.CompletionRequest{
		System: analystSystem,
		Prompt: analysisPrompt(req),
		Schema: analysisSchema,
	})
	out := Outcome{
		LatencyMS:        time.Since(start).Milliseconds(),
		PromptTokens:     res.PromptTokens,
		CompletionTokens: res.CompletionTokens,
	}
	if err != nil {
		return types.Decision{}, out, fmt.Errorf("analysis completion for %s: %w", req.Symbol, err)
	}

	dec, err := parseDecision(res.Content)
	if err != nil {
		logger.ErrorWithErr(ctx, "analysis response rejected", err,
			"symbol", req.Symbol, "content_preview", preview(res.Content))
		return types.Decision{}, out, err
	}

	// cache the validated form, not the raw model text
	if buf, err := json.Marshal(dec); err == nil {
		e.cache.Put(key, string(buf))
	}
	return dec, out, nil
}

// Review critiques an already-made decision. HOLD approves without a
// model call. Any failure of the reviewer fails closed: the returned
// verdict is a usable REJECT, and the error carries
// types.ErrReviewUncertain for audit classification.
func (e *Engine) Review(ctx context.Context, req types.DecisionRequest, dec types.Decision) (types.ReviewVerdict, Outcome, error) {
	if dec.Action == types.ActionHold {
		return types.ReviewVerdict{
			Approved:  true,
			Verdict:   "APPROVE",
			Rationale: "HOLD signal, no review needed.",
		}, Outcome{}, nil
	}

	payload, err := json.Marshal(struct {
		Request  types.DecisionRequest `json:"request"`
		Decision types.Decision        `json:"decision"`
	}{req, dec})
	if err != nil {
		return rejectUncertain(err.Error()), Outcome{}, fmt.Errorf("marshal review payload: %w", types.ErrReviewUncertain)
	}
	key := signalcache.Digest(payload, stageReview)

	if cached, ok := e.cache.Get(key); ok {
		var v types.ReviewVerdict
		if err := json.Unmarshal([]byte(cached), &v); err == nil {
			logger.Info(ctx, "review cache hit", "symbol", req.Symbol, "verdict", v.Verdict)
			return v, Outcome{CacheHit: true}, nil
		}
	}

	start := time.Now()
	res, err := e.completer.Complete(ctx, types.CompletionRequest{
		System: reviewerSystem,
		Prompt: reviewPrompt(req, dec),
		Schema: reviewSchema,
	})
	out := Outcome{
		LatencyMS:        time.Since(start).Milliseconds(),
		PromptTokens:     res.PromptTokens,
		CompletionTokens: res.CompletionTokens,
	}
	if err != nil {
		logger.ErrorWithErr(ctx, "review completion failed, rejecting", err, "symbol", req.Symbol)
		return rejectUncertain("reviewer unavailable"), out,
			fmt.Errorf("review completion for %s: %w", req.Symbol, types.ErrReviewUncertain)
	}

	v, err := parseVerdict(res.Content)
	if err != nil {
		logger.ErrorWithErr(ctx, "review response rejected", err,
			"symbol", req.Symbol, "content_preview", preview(res.Content))
		return rejectUncertain("reviewer response unreadable"), out,
			fmt.Errorf("review parse for %s: %w", req.Symbol, types.ErrReviewUncertain)
	}

	if buf, err := json.Marshal(v); err == nil {
		e.cache.Put(key, string(buf))
	}
	return v, out, nil
}

// CacheStats exposes the shared cache counters.
func (e *Engine) CacheStats() types.CacheStats {
	return e.cache.Stats()
}

func rejectUncertain(why string) types.ReviewVerdict {
	return types.ReviewVerdict{
		Approved:  false,
		Verdict:   "REJECT",
		Rationale: "Review could not be completed: " + why,
	}
}

func parseDecision(content string) (types.Decision, error) {
	var dec types.Decision
	if err := json.Unmarshal([]byte(stripFences(content)), &dec); err != nil {
		return types.Decision{}, fmt.Errorf("decode decision: %v: %w", err, types.ErrValidation)
	}
	if !dec.Action.Valid() {
		return types.Decision{}, fmt.Errorf("unknown action %q: %w", dec.Action, types.ErrValidation)
	}
	if dec.Confidence < 0 || dec.Confidence > 1 {
		return types.Decision{}, fmt.Errorf("confidence %v out of range: %w", dec.Confidence, types.ErrValidation)
	}
	if dec.Action.IsDerivative() && dec.RecommendedOption == "" {
		return types.Decision{}, fmt.Errorf("%s without recommended option: %w", dec.Action, types.ErrValidation)
	}
	return dec, nil
}

func parseVerdict(content string) (types.ReviewVerdict, error) {
	var wire struct {
		Verdict   string `json:"verdict"`
		Rationale string `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(stripFences(content)), &wire); err != nil {
		return types.ReviewVerdict{}, fmt.Errorf("decode verdict: %v: %w", err, types.ErrValidation)
	}
	switch wire.Verdict {
	case "APPROVE":
		return types.ReviewVerdict{Approved: true, Verdict: "APPROVE", Rationale: wire.Rationale}, nil
	case "REJECT":
		return types.ReviewVerdict{Approved: false, Verdict: "REJECT", Rationale: wire.Rationale}, nil
	default:
		return types.ReviewVerdict{}, fmt.Errorf("unknown verdict %q: %w", wire.Verdict, types.ErrValidation)
	}
}

// stripFences tolerates models that wrap JSON in markdown code fences.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func preview(s string) string {
	if len(s) > 100 {
		return s[:100]
	}
	return s
}
