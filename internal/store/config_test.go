package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

const minimalConfig = `
mode: DRY_RUN
universe:
  us: [AAPL]
  india: [TCS.NS]
risk:
  us:
    max_capital: 100000
  india:
    max_capital: 1000000
`

func TestLoadConfigAppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 300, cfg.PollSeconds)
	assert.Equal(t, "NOOP", cfg.LLM.Provider)
	assert.Equal(t, 15, cfg.Cache.TTLMinutes)
	assert.Equal(t, 200, cfg.Cache.MaxEntries)
	assert.Equal(t, 0.02, cfg.Risk.MaxRiskPerTrade)
	assert.Equal(t, 100.0, cfg.Risk.CapitalFloor)
	assert.Equal(t, 50, cfg.Risk.MaxDailyTrades)
	assert.Equal(t, "robinhood", cfg.Routing.USPrimary)
	assert.Equal(t, "zerodha", cfg.Routing.IndiaPrimary)
	assert.Equal(t, "icici", cfg.Routing.IndiaFallback)
	assert.Equal(t, []string{"AAPL", "TCS.NS"}, cfg.AllSymbols())
}

func TestLoadConfigRejectsBadMode(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
mode: YOLO
universe:
  us: [AAPL]
risk:
  us:
    max_capital: 100000
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid mode")
}

func TestLoadConfigRejectsEmptyUniverse(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
mode: DRY_RUN
risk:
  us:
    max_capital: 100000
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "universe")
}

func TestLoadConfigRejectsSameIndiaPrimaryAndFallback(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, `
mode: DRY_RUN
universe:
  india: [TCS.NS]
risk:
  india:
    max_capital: 1000000
routing:
  india_primary: zerodha
  india_fallback: zerodha
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "india_fallback")
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
