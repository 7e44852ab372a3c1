package interfaces

import (
	"time"

	"trading-agent/internal/types"
)

// HoursOracle answers market-session questions for an instrument's home
// exchange, including holidays and early closes.
type HoursOracle interface {
	IsOpen(symbol string, at time.Time) bool
	// InAnalysisWindow is true when the market is open or within the
	// pre-open analysis window.
	InAnalysisWindow(symbol string, at time.Time) bool
	SessionInfo(symbol string, date time.Time) types.SessionInfo
}
