package feed

import (
	"time"

	"github.com/marketreplay/feedhorizon/errs"
)

// tickFrontierIncrement is the granularity used to advance the merge
// frontier when at least one subscription is tick resolution (spec §4.5).
const tickFrontierIncrement = time.Millisecond

// SubscriptionConfig is the immutable description of one subscription:
// a symbol at a resolution, with fill-forward and extended-hours policy.
type SubscriptionConfig struct {
	Symbol              string
	Resolution          Resolution
	FillDataForward     bool
	ExtendedMarketHours bool

	// SourceHint is opaque to the engine; readers interpret it to locate
	// per-day source files (a directory root, a bucket prefix, and so on).
	SourceHint string
}

func (c SubscriptionConfig) validate() error {
	if c.Symbol == "" {
		return errs.ConfigInvalid("subscription symbol must not be empty")
	}
	if c.Resolution < ResolutionTick || c.Resolution > ResolutionDaily {
		return errs.ConfigInvalid("subscription resolution out of range")
	}
	return nil
}

// increments computes barIncrement and frontierIncrement across a set of
// subscriptions per spec §4.5: barIncrement is the smallest bar spacing
// among non-tick subscriptions (ticks are excluded so bar streams get a
// sensible fill-forward cadence); frontierIncrement is the same computation
// but with ticks contributing tickFrontierIncrement.
func increments(subs []SubscriptionConfig) (barIncrement, frontierIncrement time.Duration) {
	barIncrement = 24 * time.Hour
	frontierIncrement = 24 * time.Hour
	sawNonTick := false
	sawAny := false

	for _, s := range subs {
		sawAny = true
		if s.Resolution == ResolutionTick {
			if tickFrontierIncrement < frontierIncrement {
				frontierIncrement = tickFrontierIncrement
			}
			continue
		}
		sawNonTick = true
		inc := s.Resolution.BarIncrement()
		if inc < barIncrement {
			barIncrement = inc
		}
		if inc < frontierIncrement {
			frontierIncrement = inc
		}
	}

	if !sawAny {
		return time.Minute, time.Minute
	}
	if !sawNonTick {
		// Tick-only subscription set: fill-forward never fires (ticks carry
		// no natural bar spacing), but frontierIncrement must still be finite.
		barIncrement = time.Minute
	}
	return barIncrement, frontierIncrement
}
