package feed

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// stubReader is a minimal SubscriptionReader driven directly by test code
// via its previous/current fields, avoiding any dependency on a
// concrete reader implementation.
type stubReader struct {
	previous   DataPoint
	hasPrev    bool
	current    DataPoint
	hasCurrent bool
}

func (r *stubReader) RefreshSource(time.Time) (bool, error) { return true, nil }
func (r *stubReader) MoveNext() (bool, error)                { return false, nil }
func (r *stubReader) Current() (DataPoint, bool)             { return r.current, r.hasCurrent }
func (r *stubReader) Previous() (DataPoint, bool)            { return r.previous, r.hasPrev }
func (r *stubReader) EndOfStream() bool                      { return !r.hasCurrent }
func (r *stubReader) Dispose() error                         { return nil }

func newTestState(cfg SubscriptionConfig, reader SubscriptionReader) *subscriptionState {
	return newSubscriptionState(cfg, reader, 100)
}

func tradeBar(t time.Time, symbol string) DataPoint {
	return DataPoint{
		Time: t, Symbol: symbol, Kind: PointTradeBar,
		TradeBar: TradeBar{
			Open: decimal.NewFromInt(100), High: decimal.NewFromInt(101),
			Low: decimal.NewFromInt(99), Close: decimal.NewFromInt(100), Volume: decimal.NewFromInt(10),
		},
	}
}

// Regular session: 09:30-16:00, no pre/post window.
var testSession = sessionCalendar{open: 9*60 + 30, close: 16 * 60}

func TestFillForwardRegimeAWalksToMarketClose(t *testing.T) {
	synth := newFillForwardSynthesizer(testSession)
	base := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	last := base.Add(15*time.Hour + 55*time.Minute) // 15:55, five minutes before close

	reader := &stubReader{previous: tradeBar(last, "AAPL"), hasPrev: true}
	s := newTestState(SubscriptionConfig{Symbol: "AAPL", FillDataForward: true}, reader)
	s.fillForwardFrontier = last
	s.fillForwardSet = true

	batches := synth.synthesize(s, time.Minute)
	if len(batches) != 4 {
		t.Fatalf("expected 4 synthesized minute bars up to close, got %d", len(batches))
	}
	for i, b := range batches {
		want := last.Add(time.Duration(i+1) * time.Minute)
		if !b[0].Time.Equal(want) {
			t.Fatalf("batch %d: expected time %s, got %s", i, want, b[0].Time)
		}
		if b[0].TradeBar.Close.Cmp(decimal.NewFromInt(100)) != 0 {
			t.Fatalf("batch %d: expected cloned payload from previous point", i)
		}
	}
}

func TestFillForwardRegimeANoOpWithoutFillForward(t *testing.T) {
	synth := newFillForwardSynthesizer(testSession)
	base := time.Date(2024, 1, 2, 15, 55, 0, 0, time.UTC)
	reader := &stubReader{previous: tradeBar(base, "AAPL"), hasPrev: true}
	s := newTestState(SubscriptionConfig{Symbol: "AAPL", FillDataForward: false}, reader)

	if got := synth.synthesize(s, time.Minute); got != nil {
		t.Fatalf("expected no synthesis when FillDataForward is false, got %d batches", len(got))
	}
}

func TestFillForwardRegimeBFillsGapWithinSession(t *testing.T) {
	synth := newFillForwardSynthesizer(testSession)
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	prevTime := day.Add(10 * time.Hour)                 // 10:00
	currTime := day.Add(10*time.Hour + 3*time.Minute) // 10:03, a 3-minute gap

	reader := &stubReader{
		previous: tradeBar(prevTime, "AAPL"), hasPrev: true,
		current: tradeBar(currTime, "AAPL"), hasCurrent: true,
	}
	s := newTestState(SubscriptionConfig{Symbol: "AAPL", FillDataForward: true}, reader)

	batches := synth.synthesize(s, time.Minute)
	if len(batches) != 2 {
		t.Fatalf("expected 2 synthesized bars (10:01, 10:02), got %d", len(batches))
	}
	if !batches[0][0].Time.Equal(prevTime.Add(time.Minute)) {
		t.Fatalf("expected first synthetic bar at %s, got %s", prevTime.Add(time.Minute), batches[0][0].Time)
	}
	if !batches[1][0].Time.Equal(prevTime.Add(2 * time.Minute)) {
		t.Fatalf("expected second synthetic bar at %s, got %s", prevTime.Add(2*time.Minute), batches[1][0].Time)
	}
}

func TestFillForwardRegimeBSkipsClosedOvernightSpan(t *testing.T) {
	synth := newFillForwardSynthesizer(testSession)
	day1 := time.Date(2024, 1, 2, 15, 59, 0, 0, time.UTC) // one minute before close
	day2 := time.Date(2024, 1, 3, 9, 31, 0, 0, time.UTC)  // one minute after next open

	reader := &stubReader{
		previous: tradeBar(day1, "AAPL"), hasPrev: true,
		current: tradeBar(day2, "AAPL"), hasCurrent: true,
	}
	s := newTestState(SubscriptionConfig{Symbol: "AAPL", FillDataForward: true}, reader)

	batches := synth.synthesize(s, time.Minute)
	for _, b := range batches {
		if !testSession.MarketOpen("AAPL", b[0].Time) {
			t.Fatalf("synthesized bar at %s falls in closed hours", b[0].Time)
		}
	}
	// 15:59 is the previous real bar and 16:00 onward is closed, so the only
	// synthesized bar is the open-adjacent 09:30 the following day.
	if len(batches) == 0 {
		t.Fatalf("expected at least one synthesized bar")
	}
	last := batches[len(batches)-1][0].Time
	if last.After(day2) || last.Equal(day2) {
		t.Fatalf("last synthesized bar %s should precede current point %s", last, day2)
	}
}

func TestFillForwardRegimeBExtendedHoursSkipsBarsInsteadOfRewinding(t *testing.T) {
	extended := sessionCalendar{open: 9*60 + 30, close: 16 * 60, preOpenMins: 240, postCloseMins: 240}
	synth := newFillForwardSynthesizer(extended)
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	prevTime := day.Add(5*time.Hour + 35*time.Minute) // 05:35, within extended pre-market (opens 05:30)
	currTime := day.Add(5*time.Hour + 37*time.Minute) // 05:37

	reader := &stubReader{
		previous: tradeBar(prevTime, "AAPL"), hasPrev: true,
		current: tradeBar(currTime, "AAPL"), hasCurrent: true,
	}
	s := newTestState(SubscriptionConfig{Symbol: "AAPL", FillDataForward: true, ExtendedMarketHours: true}, reader)

	batches := synth.synthesize(s, time.Minute)
	if len(batches) != 1 {
		t.Fatalf("expected 1 synthesized bar at 05:36, got %d", len(batches))
	}
	if !batches[0][0].Time.Equal(prevTime.Add(time.Minute)) {
		t.Fatalf("expected synthetic bar at %s, got %s", prevTime.Add(time.Minute), batches[0][0].Time)
	}
}
