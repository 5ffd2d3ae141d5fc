package feed

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestDataPointCloneIsIndependent(t *testing.T) {
	original := DataPoint{
		Time:   time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC),
		Symbol: "AAPL",
		Kind:   PointTradeBar,
		TradeBar: TradeBar{
			Open: decimal.NewFromInt(100), High: decimal.NewFromInt(101),
			Low: decimal.NewFromInt(99), Close: decimal.NewFromInt(100), Volume: decimal.NewFromInt(10),
		},
	}
	clone := original.Clone()
	clone.TradeBar.Open = decimal.NewFromInt(999)

	if original.TradeBar.Open.Equal(decimal.NewFromInt(999)) {
		t.Fatalf("mutating clone leaked into original")
	}
}

func TestDataPointWithTimeStampsNewTime(t *testing.T) {
	original := DataPoint{Time: time.Unix(0, 0), Symbol: "AAPL", Kind: PointTick,
		Tick: Tick{Price: decimal.NewFromInt(1), Size: decimal.NewFromInt(1)}}
	stamped := original.WithTime(time.Unix(100, 0))

	if !stamped.Time.Equal(time.Unix(100, 0)) {
		t.Fatalf("expected stamped time, got %s", stamped.Time)
	}
	if !original.Time.Equal(time.Unix(0, 0)) {
		t.Fatalf("original mutated by WithTime")
	}
}

func TestResolutionBarIncrement(t *testing.T) {
	cases := map[Resolution]time.Duration{
		ResolutionTick:   0,
		ResolutionSecond: time.Second,
		ResolutionMinute: time.Minute,
		ResolutionHour:   time.Hour,
		ResolutionDaily:  24 * time.Hour,
	}
	for res, want := range cases {
		if got := res.BarIncrement(); got != want {
			t.Fatalf("%s.BarIncrement() = %s, want %s", res, got, want)
		}
	}
}
