// Package fixture implements an in-memory SubscriptionReader over
// pre-loaded per-day point lists, which can be decoded from JSON fixtures.
// The internal/feed tests do not use it; they carry their own in-package
// readers.
package fixture

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/marketreplay/feedhorizon/internal/feed"
)

// Day is one day's worth of pre-ordered points for a symbol.
type Day struct {
	Date   time.Time        `json:"date"`
	Points []feed.DataPoint `json:"points"`
}

// Reader implements feed.SubscriptionReader over an in-memory day table
// keyed by calendar date.
type Reader struct {
	symbol string
	days   map[string][]feed.DataPoint

	points  []feed.DataPoint
	idx     int
	current feed.DataPoint
	hasCur  bool
	prev    feed.DataPoint
	hasPrev bool
	eos     bool
}

// New constructs a Reader for symbol from a set of days. Days need not be
// contiguous; RefreshSource simply reports false for dates absent from days.
func New(symbol string, days []Day) *Reader {
	table := make(map[string][]feed.DataPoint, len(days))
	for _, d := range days {
		table[dateKey(d.Date)] = d.Points
	}
	return &Reader{symbol: symbol, days: table}
}

// DecodeDays parses a JSON-encoded []Day fixture, exercising goccy/go-json
// as the codec for archived and test-fixture data alike.
func DecodeDays(raw []byte) ([]Day, error) {
	var days []Day
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, fmt.Errorf("fixture: decode days: %w", err)
	}
	return days, nil
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

// RefreshSource implements feed.SubscriptionReader.
func (r *Reader) RefreshSource(date time.Time) (bool, error) {
	points, ok := r.days[dateKey(date)]
	r.points = points
	r.idx = 0
	r.hasCur, r.hasPrev, r.eos = false, false, false
	if !ok || len(points) == 0 {
		return false, nil
	}
	moved, err := r.MoveNext()
	return moved, err
}

// MoveNext implements feed.SubscriptionReader.
func (r *Reader) MoveNext() (bool, error) {
	if r.idx >= len(r.points) {
		r.markExhausted()
		return false, nil
	}
	if r.hasCur {
		r.prev = r.current
		r.hasPrev = true
	}
	r.current = r.points[r.idx]
	r.hasCur = true
	r.idx++
	return true, nil
}

// markExhausted retires the current point into Previous() and clears
// Current(), so callers observing ok=false can no longer see a stale point
// after the fixture's points are spent.
func (r *Reader) markExhausted() {
	if r.hasCur {
		r.prev = r.current
		r.hasPrev = true
	}
	r.hasCur = false
	r.eos = true
}

// Current implements feed.SubscriptionReader.
func (r *Reader) Current() (feed.DataPoint, bool) { return r.current, r.hasCur }

// Previous implements feed.SubscriptionReader.
func (r *Reader) Previous() (feed.DataPoint, bool) { return r.prev, r.hasPrev }

// EndOfStream implements feed.SubscriptionReader.
func (r *Reader) EndOfStream() bool { return r.eos }

// Dispose implements feed.SubscriptionReader.
func (r *Reader) Dispose() error { return nil }
