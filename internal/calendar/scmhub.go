package calendar

import (
	"fmt"
	"strings"
	"time"

	scmcal "github.com/scmhub/calendar"

	"github.com/marketreplay/feedhorizon/internal/observability"
)

// extendedOffset is the width of the pre-/post-market extension applied on
// top of a MIC's regular session when no venue-specific extended-hours data
// is available from scmhub/calendar.
const extendedOffset = 4 * time.Hour

// micSuffixes maps common exchange-suffix conventions to ISO 10383 MIC
// codes recognized by github.com/scmhub/calendar.
var micSuffixes = map[string]string{
	".L":  "xlon",
	".PA": "xpar",
	".DE": "xfra",
	".AS": "xams",
	".BR": "xbru",
	".MI": "xmil",
	".MC": "xmad",
	".ST": "xsto",
	".CO": "xcse",
	".HE": "xhel",
	".VI": "xwbo",
	".SW": "xswx",
	".TO": "xtse",
	".V":  "xtsx",
	".T":  "xtks",
	".HK": "xhkg",
	".AX": "xasx",
	".KS": "xkrx",
	".TW": "xtai",
	".SS": "xshg",
	".SZ": "xshe",
}

const defaultMIC = "xnys"

// venueCalendar wraps one symbol's resolved scmhub calendar, falling back to
// a plain Mon-Fri 09:30-16:00 America/New_York session when no MIC-specific
// calendar can be resolved.
type venueCalendar struct {
	cal      *scmcal.Calendar
	fallback bool
	loc      *time.Location
}

// SCMHub is the reference Calendar implementation backed by
// github.com/scmhub/calendar, resolving one venue calendar per symbol by
// suffix-to-MIC mapping.
type SCMHub struct {
	venues map[string]venueCalendar
	logger observability.Logger
}

// NewSCMHub constructs a Calendar. Venues are resolved lazily on first use
// and cached for the lifetime of the instance.
func NewSCMHub(logger observability.Logger) *SCMHub {
	if logger == nil {
		logger = observability.Log()
	}
	return &SCMHub{venues: make(map[string]venueCalendar), logger: logger}
}

func micFor(symbol string) string {
	for suffix, mic := range micSuffixes {
		if strings.HasSuffix(symbol, suffix) {
			return mic
		}
	}
	return defaultMIC
}

func (s *SCMHub) venueFor(symbol string) venueCalendar {
	mic := micFor(symbol)
	if v, ok := s.venues[mic]; ok {
		return v
	}

	cal := scmcal.GetCalendar(mic)
	if cal == nil {
		cal = scmcal.GetCalendar(defaultMIC)
	}
	if cal == nil {
		s.logger.Warn("calendar: no MIC calendar resolved, using fallback session",
			observability.Field{Key: "symbol", Value: symbol},
			observability.Field{Key: "mic", Value: mic},
		)
		loc, err := time.LoadLocation("America/New_York")
		if err != nil || loc == nil {
			loc = time.UTC
		}
		v := venueCalendar{fallback: true, loc: loc}
		s.venues[mic] = v
		return v
	}

	v := venueCalendar{cal: cal, loc: cal.Loc}
	s.venues[mic] = v
	return v
}

func (s *SCMHub) isTradingDay(v venueCalendar, t time.Time) bool {
	if v.loc != nil {
		t = t.In(v.loc)
	}
	if v.fallback {
		weekday := t.Weekday()
		return weekday != time.Saturday && weekday != time.Sunday
	}
	return v.cal.IsBusinessDay(t)
}

// MarketOpen implements Calendar.
func (s *SCMHub) MarketOpen(symbol string, t time.Time) bool {
	v := s.venueFor(symbol)
	if v.loc != nil {
		t = t.In(v.loc)
	}
	if v.fallback {
		if !s.isTradingDay(v, t) {
			return false
		}
		hour, minute := t.Hour(), t.Minute()
		return (hour > 9 || (hour == 9 && minute >= 30)) && hour < 16
	}
	return v.cal.IsOpen(t)
}

// ExtendedMarketOpen implements Calendar.
func (s *SCMHub) ExtendedMarketOpen(symbol string, t time.Time) bool {
	if s.MarketOpen(symbol, t) {
		return true
	}
	v := s.venueFor(symbol)
	if v.loc != nil {
		t = t.In(v.loc)
	}
	if !s.isTradingDay(v, t) {
		return false
	}
	// scmhub/calendar exposes IsOpen for the regular session only; approximate
	// the extended session as a uniform pre/post window around it, probing
	// with IsOpen at the boundary shifted by extendedOffset.
	shiftedEarly := t.Add(extendedOffset)
	shiftedLate := t.Add(-extendedOffset)
	if v.fallback {
		hour, minute := t.Hour(), t.Minute()
		open := time.Date(t.Year(), t.Month(), t.Day(), 9, 30, 0, 0, v.loc).Add(-extendedOffset)
		closeAt := time.Date(t.Year(), t.Month(), t.Day(), 16, 0, 0, 0, v.loc).Add(extendedOffset)
		candidate := time.Date(t.Year(), t.Month(), t.Day(), hour, minute, 0, 0, v.loc)
		return !candidate.Before(open) && candidate.Before(closeAt)
	}
	return v.cal.IsOpen(shiftedEarly) || v.cal.IsOpen(shiftedLate)
}

// TradeableDays implements Calendar.
func (s *SCMHub) TradeableDays(securities []string, start, finish time.Time) ([]time.Time, error) {
	if len(securities) == 0 {
		return nil, fmt.Errorf("calendar: at least one security required")
	}
	if finish.Before(start) {
		return nil, fmt.Errorf("calendar: finish %s before start %s", finish, start)
	}
	start, finish = truncateToDate(start), truncateToDate(finish)

	venues := make([]venueCalendar, 0, len(securities))
	for _, sym := range securities {
		venues = append(venues, s.venueFor(sym))
	}

	var days []time.Time
	for d := start; !d.After(finish); d = d.AddDate(0, 0, 1) {
		open := false
		for _, v := range venues {
			if s.isTradingDay(v, d) {
				open = true
				break
			}
		}
		if open {
			days = append(days, d)
		}
	}
	return days, nil
}
