// Package audit persists the two append-only record sets the pipeline
// produces: high-volume operational events (one per stage transition)
// and low-volume trade records (one per completed cycle). Sinks never
// mutate records and failures to persist never fail a cycle.
package audit

import (
	"context"

	"trading-agent/internal/logger"
	"trading-agent/internal/types"
)

// Sink receives pipeline records. Implementations must be safe for
// concurrent use.
type Sink interface {
	Event(ctx context.Context, e types.AuditEvent) error
	Trade(ctx context.Context, r types.TradeRecord) error
	Close() error
}

// MultiSink fans out to every configured sink. A failing sink is logged
// and skipped; the remaining sinks still receive the record.
type MultiSink struct {
	sinks []Sink
}

func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) Event(ctx context.Context, e types.AuditEvent) error {
	for _, s := range m.sinks {
		if err := s.Event(ctx, e); err != nil {
			logger.ErrorWithErr(ctx, "audit event sink failed", err, "symbol", e.Symbol)
		}
	}
	return nil
}

func (m *MultiSink) Trade(ctx context.Context, r types.TradeRecord) error {
	for _, s := range m.sinks {
		if err := s.Trade(ctx, r); err != nil {
			logger.ErrorWithErr(ctx, "audit trade sink failed", err, "symbol", r.Symbol)
		}
	}
	return nil
}

func (m *MultiSink) Close() error {
	var first error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
