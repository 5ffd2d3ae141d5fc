package calendar

import (
	"testing"
	"time"
)

func TestMicForKnownSuffix(t *testing.T) {
	if got := micFor("VOD.L"); got != "xlon" {
		t.Fatalf("expected xlon for .L suffix, got %s", got)
	}
	if got := micFor("AAPL"); got != defaultMIC {
		t.Fatalf("expected default MIC for unsuffixed symbol, got %s", got)
	}
}

func TestSCMHubFallbackSessionWeekdayHours(t *testing.T) {
	s := NewSCMHub(nil)
	// Force the fallback path by pre-seeding the venue cache with a fallback entry.
	s.venues["xnys"] = venueCalendar{fallback: true, loc: time.UTC}

	monday930 := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC) // Jan 1 2024 is a Monday
	if !s.MarketOpen("AAPL", monday930) {
		t.Fatalf("expected market open at 09:30 on a weekday")
	}
	mondayBeforeOpen := time.Date(2024, 1, 1, 9, 29, 0, 0, time.UTC)
	if s.MarketOpen("AAPL", mondayBeforeOpen) {
		t.Fatalf("expected market closed one minute before open")
	}
	saturday := time.Date(2024, 1, 6, 12, 0, 0, 0, time.UTC)
	if s.MarketOpen("AAPL", saturday) {
		t.Fatalf("expected market closed on Saturday")
	}
}

func TestSCMHubFallbackExtendedHours(t *testing.T) {
	s := NewSCMHub(nil)
	s.venues["xnys"] = venueCalendar{fallback: true, loc: time.UTC}

	preMarket := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC) // 3.5h before 09:30 open, within 4h window
	if !s.ExtendedMarketOpen("AAPL", preMarket) {
		t.Fatalf("expected extended market open before regular open")
	}
	tooEarly := time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC)
	if s.ExtendedMarketOpen("AAPL", tooEarly) {
		t.Fatalf("expected extended market closed outside the pre-market window")
	}
}

func TestSCMHubTradeableDaysExcludesWeekends(t *testing.T) {
	s := NewSCMHub(nil)
	s.venues["xnys"] = venueCalendar{fallback: true, loc: time.UTC}

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // Monday
	finish := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC) // Sunday
	days, err := s.TradeableDays([]string{"AAPL"}, start, finish)
	if err != nil {
		t.Fatalf("TradeableDays: %v", err)
	}
	if len(days) != 5 {
		t.Fatalf("expected 5 weekdays in a full week, got %d", len(days))
	}
}

func TestSCMHubTradeableDaysRejectsEmptySecurities(t *testing.T) {
	s := NewSCMHub(nil)
	if _, err := s.TradeableDays(nil, time.Now(), time.Now()); err == nil {
		t.Fatalf("expected error for empty securities list")
	}
}
