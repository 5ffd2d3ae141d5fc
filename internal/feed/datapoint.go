// Package feed implements the historical market-data feed engine: subscription
// lifecycle, day-by-day source rotation, the frontier loop, fill-forward
// synthesis and bounded-queue delivery to a downstream consumer.
package feed

import (
	"time"

	"github.com/shopspring/decimal"
)

// Resolution enumerates the supported subscription granularities.
type Resolution int

const (
	ResolutionTick Resolution = iota
	ResolutionSecond
	ResolutionMinute
	ResolutionHour
	ResolutionDaily
)

func (r Resolution) String() string {
	switch r {
	case ResolutionTick:
		return "Tick"
	case ResolutionSecond:
		return "Second"
	case ResolutionMinute:
		return "Minute"
	case ResolutionHour:
		return "Hour"
	case ResolutionDaily:
		return "Daily"
	default:
		return "Unknown"
	}
}

// BarIncrement returns the bar spacing for r, used by the fill-forward
// synthesizer. Tick has no natural bar spacing and returns zero.
func (r Resolution) BarIncrement() time.Duration {
	switch r {
	case ResolutionSecond:
		return time.Second
	case ResolutionMinute:
		return time.Minute
	case ResolutionHour:
		return time.Hour
	case ResolutionDaily:
		return 24 * time.Hour
	default:
		return 0
	}
}

// PointKind tags the payload variant carried by a DataPoint (spec §9,
// "dynamic dispatch on DataPoint subtypes").
type PointKind int

const (
	PointTick PointKind = iota
	PointTradeBar
	PointQuoteBar
	PointCustom
)

// Tick is a single trade print.
type Tick struct {
	Price    decimal.Decimal
	Size     decimal.Decimal
	Exchange string
}

func (t Tick) clone() Tick { return t }

// TradeBar is an OHLCV bar built from trade prints.
type TradeBar struct {
	Open, High, Low, Close decimal.Decimal
	Volume                 decimal.Decimal
}

func (b TradeBar) clone() TradeBar { return b }

// QuoteBar is an OHLC bar built from top-of-book quotes, bid and ask sides.
type QuoteBar struct {
	BidOpen, BidHigh, BidLow, BidClose decimal.Decimal
	AskOpen, AskHigh, AskLow, AskClose decimal.Decimal
}

func (b QuoteBar) clone() QuoteBar { return b }

// Custom carries an arbitrary payload for reader-defined data types (e.g.
// alternative data, corporate actions). Values are copied shallowly; readers
// producing custom payloads with nested mutable state should keep them
// immutable after construction.
type Custom struct {
	Tag     string
	Payload any
}

func (c Custom) clone() Custom { return c }

// DataPoint is the tagged-variant record produced by a SubscriptionReader and
// carried through bridges to the consumer.
type DataPoint struct {
	Time   time.Time
	Symbol string
	Kind   PointKind

	Tick     Tick
	TradeBar TradeBar
	QuoteBar QuoteBar
	Custom   Custom
}

// Clone returns a deep copy of the point, used by fill-forward synthesis to
// stamp a new time onto an otherwise identical payload.
func (d DataPoint) Clone() DataPoint {
	clone := d
	switch d.Kind {
	case PointTick:
		clone.Tick = d.Tick.clone()
	case PointTradeBar:
		clone.TradeBar = d.TradeBar.clone()
	case PointQuoteBar:
		clone.QuoteBar = d.QuoteBar.clone()
	case PointCustom:
		clone.Custom = d.Custom.clone()
	}
	return clone
}

// WithTime returns a clone of d stamped with a new time, the operation used
// throughout fill-forward synthesis.
func (d DataPoint) WithTime(t time.Time) DataPoint {
	clone := d.Clone()
	clone.Time = t
	return clone
}

// Batch is an ordered sequence of DataPoints sharing a frontier window,
// the unit exchanged over a Bridge.
type Batch []DataPoint
