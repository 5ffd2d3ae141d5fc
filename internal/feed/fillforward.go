package feed

import (
	"time"

	"github.com/marketreplay/feedhorizon/internal/calendar"
)

// fillForwardSynthesizer implements spec §4.4: between a stream's
// fillForwardFrontier and the reader's current point (or, on premature
// end-of-stream, until market close), it emits synthetic DataPoints at
// barIncrement spacing that reproduce the last known bar.
type fillForwardSynthesizer struct {
	cal calendar.Calendar
}

func newFillForwardSynthesizer(cal calendar.Calendar) *fillForwardSynthesizer {
	return &fillForwardSynthesizer{cal: cal}
}

// synthesize runs one invocation of the synthesizer for stream s and returns
// the synthetic batches to enqueue, in emission order. barIncrement must be
// > 0 for non-tick streams; called once per stream at the end of each
// frontier step.
func (f *fillForwardSynthesizer) synthesize(s *subscriptionState, barIncrement time.Duration) []Batch {
	if !s.config.FillDataForward || barIncrement <= 0 {
		return nil
	}
	previous, hasPrevious := s.reader.Previous()
	if !hasPrevious {
		return nil
	}

	if !s.fillForwardSet {
		s.fillForwardFrontier = previous.Time
		s.fillForwardSet = true
	}

	current, hasCurrent := s.reader.Current()
	symbol := s.config.Symbol
	extended := s.config.ExtendedMarketHours

	if !hasCurrent {
		return f.regimeA(s, previous, symbol, extended, barIncrement)
	}
	return f.regimeB(s, previous, current, symbol, extended, barIncrement)
}

// regimeA handles premature end-of-stream while the market is still open:
// synthesize bars from fillForwardFrontier+barIncrement forward until the
// market closes.
func (f *fillForwardSynthesizer) regimeA(s *subscriptionState, previous DataPoint, symbol string, extended bool, barIncrement time.Duration) []Batch {
	var batches []Batch
	date := s.fillForwardFrontier.Add(barIncrement)
	for f.marketOpenFor(symbol, date, extended) {
		clone := previous.WithTime(date)
		batches = append(batches, Batch{clone})
		s.fillForwardFrontier = date
		date = date.Add(barIncrement)
	}
	return batches
}

// regimeB handles the gap between two known points, skipping closed-market
// spans via the rewind-by-decrement trick preserved from the source design
// (spec §9): when a gap runs into closed hours, jump to the far edge and
// walk backward by barIncrement while the market is still open, rather than
// stepping through every closed minute one at a time.
func (f *fillForwardSynthesizer) regimeB(s *subscriptionState, previous, current DataPoint, symbol string, extended bool, barIncrement time.Duration) []Batch {
	var batches []Batch
	date := s.fillForwardFrontier.Add(barIncrement)

	for date.Before(current.Time) {
		if !extended {
			if !f.cal.MarketOpen(symbol, date) {
				rewind := current.Time
				for f.cal.MarketOpen(symbol, rewind) {
					rewind = rewind.Add(-barIncrement)
				}
				// rewind now sits on the last closed tick before the open
				// session; step forward once to land on its first open tick.
				date = rewind.Add(barIncrement)
				continue
			}
		} else if !f.cal.ExtendedMarketOpen(symbol, date) {
			date = date.Add(barIncrement)
			continue
		}

		clone := previous.WithTime(date)
		batches = append(batches, Batch{clone})
		s.fillForwardFrontier = date
		date = date.Add(barIncrement)
	}
	return batches
}

func (f *fillForwardSynthesizer) marketOpenFor(symbol string, t time.Time, extended bool) bool {
	if extended {
		return f.cal.ExtendedMarketOpen(symbol, t)
	}
	return f.cal.MarketOpen(symbol, t)
}
