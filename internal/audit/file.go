package audit

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"trading-agent/internal/types"
)

// FileSink appends JSONL records to daily files: events/ holds the
// high-volume stream, trades/ the durable one. Rotation is by date in
// the file name; CompressOlder gzips files past the retention window.
type FileSink struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

func NewFileSink(dir string) *FileSink {
	if dir == "" {
		dir = "logs"
	}
	return &FileSink{dir: dir, now: time.Now}
}

func (s *FileSink) Event(ctx context.Context, e types.AuditEvent) error {
	return s.append(filepath.Join(s.dir, "events"), e)
}

func (s *FileSink) Trade(ctx context.Context, r types.TradeRecord) error {
	return s.append(filepath.Join(s.dir, "trades"), r)
}

func (s *FileSink) Close() error { return nil }

func (s *FileSink) append(dir string, record any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := filepath.Join(dir, s.now().UTC().Format("2006-01-02")+".jsonl")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	b, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// CompressOlder gzips daily files whose modification time predates the
// retention window and removes the originals. Records are never dropped,
// only compressed in place.
func (s *FileSink) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := s.now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(s.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(p) != ".jsonl" {
			return nil
		}
		info, er := os.Stat(p)
		if er != nil || !info.ModTime().Before(cutoff) {
			return nil
		}

		gz := p + ".gz"
		if _, e := os.Stat(gz); e == nil {
			return os.Remove(p)
		}

		in, e := os.Open(p)
		if e != nil {
			return nil
		}
		defer in.Close()

		out, e := os.OpenFile(gz, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if e != nil {
			return nil
		}
		gw := gzip.NewWriter(out)
		if _, e = io.Copy(gw, in); e != nil {
			_ = gw.Close()
			_ = out.Close()
			return nil
		}
		if err := gw.Close(); err != nil {
			_ = out.Close()
			return nil
		}
		if err := out.Close(); err != nil {
			return nil
		}
		return os.Remove(p)
	})
}
