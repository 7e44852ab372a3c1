package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"trading-agent/internal/types"
)

// auditEventRow mirrors types.AuditEvent for the operational table. High
// volume; the owning database is expected to partition or prune it.
type auditEventRow struct {
	ID               uint      `gorm:"primaryKey"`
	Time             time.Time `gorm:"index"`
	Symbol           string    `gorm:"index;size:32"`
	Region           string    `gorm:"size:4"`
	State            string    `gorm:"size:16"`
	Stage            string    `gorm:"size:32"`
	Success          bool
	LatencyMS        int64
	CacheHit         bool
	PromptTokens     int
	CompletionTokens int
	ErrKind          string `gorm:"size:32"`
	Detail           string
}

func (auditEventRow) TableName() string { return "audit_events" }

// tradeRecordRow is the durable row per completed cycle. Nested stage
// outputs are stored as JSON documents.
type tradeRecordRow struct {
	ID        uint      `gorm:"primaryKey"`
	Time      time.Time `gorm:"index"`
	Symbol    string    `gorm:"index;size:32"`
	Region    string    `gorm:"size:4"`
	Outcome   string    `gorm:"size:16"`
	Decision  []byte    `gorm:"type:jsonb"`
	Verdict   []byte    `gorm:"type:jsonb"`
	OrderJSON []byte    `gorm:"column:order_json;type:jsonb"`
	Execution []byte    `gorm:"type:jsonb"`
	Reason    string
}

func (tradeRecordRow) TableName() string { return "trade_records" }

// PostgresSink stores both record sets in Postgres via gorm.
type PostgresSink struct {
	db *gorm.DB
}

func NewPostgresSink(dsn string) (*PostgresSink, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.AutoMigrate(&auditEventRow{}, &tradeRecordRow{}); err != nil {
		return nil, fmt.Errorf("migrate audit tables: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

func (s *PostgresSink) Event(ctx context.Context, e types.AuditEvent) error {
	row := auditEventRow{
		Time:             e.Time,
		Symbol:           e.Symbol,
		Region:           string(e.Region),
		State:            string(e.State),
		Stage:            e.Stage,
		Success:          e.Success,
		LatencyMS:        e.LatencyMS,
		CacheHit:         e.CacheHit,
		PromptTokens:     e.PromptTokens,
		CompletionTokens: e.CompletionTokens,
		ErrKind:          string(e.ErrKind),
		Detail:           e.Detail,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *PostgresSink) Trade(ctx context.Context, r types.TradeRecord) error {
	row := tradeRecordRow{
		Time:      r.Time,
		Symbol:    r.Symbol,
		Region:    string(r.Region),
		Outcome:   string(r.Outcome),
		Decision:  marshalOrNil(r.Decision),
		Verdict:   marshalOrNil(r.Verdict),
		OrderJSON: marshalOrNil(r.Order),
		Execution: marshalOrNil(r.Execution),
		Reason:    r.Reason,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *PostgresSink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func marshalOrNil[T any](v *T) []byte {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
