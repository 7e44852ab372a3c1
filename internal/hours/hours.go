// Package hours is a static-table HoursOracle for the three exchanges
// the universe spans: NYSE (XNYS) for US tickers, NSE/BSE for .NS and
// .BO tickers. Weekends, full holidays, and early closes are handled;
// the analysis window opens a fixed margin before the session.
package hours

import (
	"strings"
	"time"

	"trading-agent/internal/types"
)

const preOpenWindow = 30 * time.Minute

type clockTime struct{ hour, minute int }

type exchange struct {
	id          string
	tz          string
	open, close clockTime
	holidays    map[string]string    // "2006-01-02" -> name
	earlyCloses map[string]clockTime // "2006-01-02" -> close
}

var (
	xnys = &exchange{
		id:    "XNYS",
		tz:    "America/New_York",
		open:  clockTime{9, 30},
		close: clockTime{16, 0},
		holidays: map[string]string{
			"2026-01-01": "New Year's Day",
			"2026-01-19": "Martin Luther King Jr. Day",
			"2026-02-16": "Washington's Birthday",
			"2026-04-03": "Good Friday",
			"2026-05-25": "Memorial Day",
			"2026-06-19": "Juneteenth",
			"2026-07-03": "Independence Day (observed)",
			"2026-09-07": "Labor Day",
			"2026-11-26": "Thanksgiving Day",
			"2026-12-25": "Christmas Day",
		},
		earlyCloses: map[string]clockTime{
			"2026-11-27": {13, 0}, // day after Thanksgiving
			"2026-12-24": {13, 0}, // Christmas Eve
		},
	}

	// NSE and BSE share the Indian holiday schedule.
	nse = &exchange{
		id:    "NSE",
		tz:    "Asia/Kolkata",
		open:  clockTime{9, 15},
		close: clockTime{15, 30},
		holidays: map[string]string{
			"2026-01-26": "Republic Day",
			"2026-03-04": "Holi",
			"2026-04-03": "Good Friday",
			"2026-04-14": "Dr. Ambedkar Jayanti",
			"2026-05-01": "Maharashtra Day",
			"2026-08-15": "Independence Day",
			"2026-10-02": "Gandhi Jayanti",
			"2026-11-09": "Diwali Laxmi Pujan",
			"2026-12-25": "Christmas",
		},
		earlyCloses: map[string]clockTime{},
	}

	bse = &exchange{
		id:          "BSE",
		tz:          nse.tz,
		open:        nse.open,
		close:       nse.close,
		holidays:    nse.holidays,
		earlyCloses: nse.earlyCloses,
	}
)

// Oracle answers session questions from the static tables. Stateless and
// safe for concurrent use.
type Oracle struct{}

func NewOracle() *Oracle { return &Oracle{} }

func exchangeFor(symbol string) *exchange {
	s := strings.ToUpper(symbol)
	switch {
	case strings.HasSuffix(s, ".BO"):
		return bse
	case strings.HasSuffix(s, ".NS"):
		return nse
	default:
		return xnys
	}
}

func (ex *exchange) location() *time.Location {
	loc, err := time.LoadLocation(ex.tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// session returns the open and close instants for the exchange-local day
// of t, and false when the market is closed that day.
func (ex *exchange) session(t time.Time) (open, close time.Time, ok bool) {
	loc := ex.location()
	local := t.In(loc)

	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return time.Time{}, time.Time{}, false
	}
	day := local.Format("2006-01-02")
	if _, holiday := ex.holidays[day]; holiday {
		return time.Time{}, time.Time{}, false
	}

	closeAt := ex.close
	if early, isEarly := ex.earlyCloses[day]; isEarly {
		closeAt = early
	}
	y, m, d := local.Date()
	open = time.Date(y, m, d, ex.open.hour, ex.open.minute, 0, 0, loc)
	close = time.Date(y, m, d, closeAt.hour, closeAt.minute, 0, 0, loc)
	return open, close, true
}

func (o *Oracle) IsOpen(symbol string, at time.Time) bool {
	ex := exchangeFor(symbol)
	open, close, ok := ex.session(at)
	if !ok {
		return false
	}
	local := at.In(ex.location())
	return !local.Before(open) && !local.After(close)
}

func (o *Oracle) InAnalysisWindow(symbol string, at time.Time) bool {
	ex := exchangeFor(symbol)
	open, close, ok := ex.session(at)
	if !ok {
		return false
	}
	local := at.In(ex.location())
	return !local.Before(open.Add(-preOpenWindow)) && !local.After(close)
}

func (o *Oracle) SessionInfo(symbol string, date time.Time) types.SessionInfo {
	ex := exchangeFor(symbol)
	loc := ex.location()
	local := date.In(loc)
	day := local.Format("2006-01-02")

	info := types.SessionInfo{Exchange: ex.id, Date: day}

	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		info.IsHoliday = true
		info.HolidayName = "Weekend"
		return info
	}
	if name, ok := ex.holidays[day]; ok {
		info.IsHoliday = true
		info.HolidayName = name
		return info
	}

	open, close, _ := ex.session(date)
	info.OpenTime = open.Format("15:04")
	info.CloseTime = close.Format("15:04")
	if _, ok := ex.earlyCloses[day]; ok {
		info.EarlyClose = true
	}
	return info
}
