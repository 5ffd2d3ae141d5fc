package feed

import "time"

// alwaysOpenCalendar treats the market as open at every instant, useful for
// exercising the frontier loop without calendar noise.
type alwaysOpenCalendar struct{}

func (alwaysOpenCalendar) TradeableDays(_ []string, start, finish time.Time) ([]time.Time, error) {
	var days []time.Time
	for d := start; !d.After(finish); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days, nil
}
func (alwaysOpenCalendar) MarketOpen(string, time.Time) bool         { return true }
func (alwaysOpenCalendar) ExtendedMarketOpen(string, time.Time) bool { return true }

// sessionCalendar models a single regular session per day, e.g. 09:30-16:00,
// with the pre/post windows open only when extended is requested.
type sessionCalendar struct {
	open, close   int // minutes since midnight
	preOpenMins   int
	postCloseMins int
}

func (c sessionCalendar) minutesOf(t time.Time) int { return t.Hour()*60 + t.Minute() }

func (c sessionCalendar) TradeableDays(_ []string, start, finish time.Time) ([]time.Time, error) {
	var days []time.Time
	for d := start; !d.After(finish); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			days = append(days, d)
		}
	}
	return days, nil
}

func (c sessionCalendar) MarketOpen(_ string, t time.Time) bool {
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	m := c.minutesOf(t)
	return m >= c.open && m < c.close
}

func (c sessionCalendar) ExtendedMarketOpen(symbol string, t time.Time) bool {
	if c.MarketOpen(symbol, t) {
		return true
	}
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	m := c.minutesOf(t)
	return m >= c.open-c.preOpenMins && m < c.close+c.postCloseMins
}
