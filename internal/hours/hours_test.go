package hours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func TestNYSERegularSession(t *testing.T) {
	o := NewOracle()
	ny := mustLoc(t, "America/New_York")

	// Tuesday 2026-09-01
	assert.True(t, o.IsOpen("AAPL", time.Date(2026, 9, 1, 10, 0, 0, 0, ny)))
	assert.False(t, o.IsOpen("AAPL", time.Date(2026, 9, 1, 9, 29, 0, 0, ny)))
	assert.False(t, o.IsOpen("AAPL", time.Date(2026, 9, 1, 16, 1, 0, 0, ny)))
}

func TestPreOpenAnalysisWindow(t *testing.T) {
	o := NewOracle()
	ny := mustLoc(t, "America/New_York")

	at := time.Date(2026, 9, 1, 9, 5, 0, 0, ny)
	assert.False(t, o.IsOpen("AAPL", at))
	assert.True(t, o.InAnalysisWindow("AAPL", at))

	// before the 30-minute margin
	assert.False(t, o.InAnalysisWindow("AAPL", time.Date(2026, 9, 1, 8, 55, 0, 0, ny)))
}

func TestIndianSessionHours(t *testing.T) {
	o := NewOracle()
	ist := mustLoc(t, "Asia/Kolkata")

	// Tuesday 2026-09-01
	assert.True(t, o.IsOpen("TCS.NS", time.Date(2026, 9, 1, 9, 15, 0, 0, ist)))
	assert.True(t, o.IsOpen("TATASTEEL.BO", time.Date(2026, 9, 1, 15, 30, 0, 0, ist)))
	assert.False(t, o.IsOpen("TCS.NS", time.Date(2026, 9, 1, 15, 31, 0, 0, ist)))
}

func TestWeekendClosed(t *testing.T) {
	o := NewOracle()
	ny := mustLoc(t, "America/New_York")

	sat := time.Date(2026, 9, 5, 11, 0, 0, 0, ny)
	assert.False(t, o.IsOpen("AAPL", sat))
	assert.False(t, o.InAnalysisWindow("AAPL", sat))

	info := o.SessionInfo("AAPL", sat)
	assert.True(t, info.IsHoliday)
	assert.Equal(t, "Weekend", info.HolidayName)
}

func TestHoliday(t *testing.T) {
	o := NewOracle()
	ny := mustLoc(t, "America/New_York")

	thanksgiving := time.Date(2026, 11, 26, 11, 0, 0, 0, ny)
	assert.False(t, o.IsOpen("AAPL", thanksgiving))

	info := o.SessionInfo("AAPL", thanksgiving)
	assert.True(t, info.IsHoliday)
	assert.Equal(t, "Thanksgiving Day", info.HolidayName)
	assert.Equal(t, "XNYS", info.Exchange)
}

func TestEarlyClose(t *testing.T) {
	o := NewOracle()
	ny := mustLoc(t, "America/New_York")

	// day after Thanksgiving closes at 13:00
	assert.True(t, o.IsOpen("AAPL", time.Date(2026, 11, 27, 12, 30, 0, 0, ny)))
	assert.False(t, o.IsOpen("AAPL", time.Date(2026, 11, 27, 13, 30, 0, 0, ny)))

	info := o.SessionInfo("AAPL", time.Date(2026, 11, 27, 9, 0, 0, 0, ny))
	assert.True(t, info.EarlyClose)
	assert.Equal(t, "13:00", info.CloseTime)
}

func TestExchangeMapping(t *testing.T) {
	o := NewOracle()
	assert.Equal(t, "NSE", o.SessionInfo("RELIANCE.NS", time.Now()).Exchange)
	assert.Equal(t, "BSE", o.SessionInfo("TATASTEEL.BO", time.Now()).Exchange)
	assert.Equal(t, "XNYS", o.SessionInfo("MSFT", time.Now()).Exchange)
}
