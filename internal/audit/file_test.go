package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading-agent/internal/types"
)

func TestFileSinkAppendsJSONL(t *testing.T) {
	dir := t.TempDir()
	s := NewFileSink(dir)
	ctx := context.Background()

	e := types.AuditEvent{
		Time: time.Now().UTC(), Symbol: "AAPL", Region: types.RegionUS,
		State: types.StateAnalyzing, Success: true, LatencyMS: 830,
	}
	require.NoError(t, s.Event(ctx, e))
	require.NoError(t, s.Event(ctx, e))

	r := types.TradeRecord{
		Time: time.Now().UTC(), Symbol: "AAPL", Region: types.RegionUS,
		Outcome: types.StateDone,
	}
	require.NoError(t, s.Trade(ctx, r))

	day := time.Now().UTC().Format("2006-01-02")
	events := readLines(t, filepath.Join(dir, "events", day+".jsonl"))
	assert.Len(t, events, 2)
	var got types.AuditEvent
	require.NoError(t, json.Unmarshal([]byte(events[0]), &got))
	assert.Equal(t, "AAPL", got.Symbol)
	assert.Equal(t, types.StateAnalyzing, got.State)

	trades := readLines(t, filepath.Join(dir, "trades", day+".jsonl"))
	assert.Len(t, trades, 1)
}

func TestCompressOlderGzipsStaleFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFileSink(dir)

	old := filepath.Join(dir, "events", "2026-01-02.jsonl")
	require.NoError(t, os.MkdirAll(filepath.Dir(old), 0o755))
	require.NoError(t, os.WriteFile(old, []byte(`{"symbol":"AAPL"}`+"\n"), 0o644))
	stale := time.Now().AddDate(0, 0, -30)
	require.NoError(t, os.Chtimes(old, stale, stale))

	fresh := filepath.Join(dir, "events", time.Now().UTC().Format("2006-01-02")+".jsonl")
	require.NoError(t, os.WriteFile(fresh, []byte(`{"symbol":"MSFT"}`+"\n"), 0o644))

	require.NoError(t, s.CompressOlder(7))

	_, err := os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(old + ".gz")
	assert.NoError(t, err)
	_, err = os.Stat(fresh)
	assert.NoError(t, err, "files inside the retention window stay uncompressed")
}

func TestMultiSinkContinuesPastFailure(t *testing.T) {
	dir := t.TempDir()
	good := NewFileSink(dir)
	m := NewMultiSink(failingSink{}, good)

	require.NoError(t, m.Event(context.Background(), types.AuditEvent{
		Time: time.Now().UTC(), Symbol: "TCS.NS", Region: types.RegionIN, State: types.StateDone,
	}))

	day := time.Now().UTC().Format("2006-01-02")
	assert.Len(t, readLines(t, filepath.Join(dir, "events", day+".jsonl")), 1)
}

type failingSink struct{}

func (failingSink) Event(ctx context.Context, e types.AuditEvent) error {
	return os.ErrClosed
}
func (failingSink) Trade(ctx context.Context, r types.TradeRecord) error {
	return os.ErrClosed
}
func (failingSink) Close() error { return nil }

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}
