// Package csvday implements a SubscriptionReader over one CSV file per
// tradeable day, rotating files as the engine advances through the
// calendar (spec §4.2).
package csvday

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"

	"github.com/marketreplay/feedhorizon/internal/feed"
)

// Layout describes how to build a day's file path from a root directory,
// a symbol and a date: root/symbol/YYYY-MM-DD.csv by default.
type Layout func(root, symbol string, date time.Time) string

// DefaultLayout is the Layout used when none is supplied.
func DefaultLayout(root, symbol string, date time.Time) string {
	return filepath.Join(root, symbol, date.Format("2006-01-02")+".csv")
}

// Reader implements feed.SubscriptionReader over day-rotating CSV files.
// Each row is: unixNanoTimestamp,open,high,low,close,volume.
type Reader struct {
	root   string
	symbol string
	layout Layout

	file    *os.File
	reader  *csv.Reader
	current feed.DataPoint
	hasCur  bool
	prev    feed.DataPoint
	hasPrev bool
	eos     bool
}

// New constructs a Reader rooted at root for symbol, using layout to resolve
// per-day file paths (DefaultLayout if layout is nil).
func New(root, symbol string, layout Layout) *Reader {
	if layout == nil {
		layout = DefaultLayout
	}
	return &Reader{root: root, symbol: symbol, layout: layout}
}

// RefreshSource implements feed.SubscriptionReader. Opening is retried a
// bounded number of times through cenkalti/backoff/v5 to absorb transient
// filesystem hiccups (e.g. a network mount settling); a missing file is not
// retried and is reported as "no data today", never fatal to the engine.
func (r *Reader) RefreshSource(date time.Time) (bool, error) {
	r.closeFile()
	r.hasCur, r.hasPrev, r.eos = false, false, false

	path := r.layout(r.root, r.symbol, date)

	operation := func() (*os.File, error) {
		f, err := os.Open(path) // #nosec G304 -- path built from operator-provided root and symbol.
		if err != nil {
			if os.IsNotExist(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return f, nil
	}

	// 3 attempts absorbs a transient network-mount hiccup without masking a
	// genuinely missing file.
	file, err := backoff.Retry(context.Background(), operation,
		backoff.WithMaxTries(3), backoff.WithBackOff(backoff.NewExponentialBackOff()))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("csvday: open %s: %w", path, err)
	}

	r.file = file
	r.reader = csv.NewReader(file)
	r.reader.FieldsPerRecord = -1

	if ok, err := r.MoveNext(); err != nil || !ok {
		r.closeFile()
		return false, err
	}
	return true, nil
}

// MoveNext implements feed.SubscriptionReader.
func (r *Reader) MoveNext() (bool, error) {
	if r.reader == nil {
		r.markExhausted()
		return false, nil
	}

	record, err := r.reader.Read()
	if err != nil {
		r.markExhausted()
		if err == io.EOF {
			return false, nil
		}
		return false, fmt.Errorf("csvday: read %s: %w", r.symbol, err)
	}

	point, err := parseRecord(r.symbol, record)
	if err != nil {
		r.markExhausted()
		return false, fmt.Errorf("csvday: parse %s: %w", r.symbol, err)
	}

	if r.hasCur {
		r.prev = r.current
		r.hasPrev = true
	}
	r.current = point
	r.hasCur = true
	return true, nil
}

// markExhausted retires the current point into Previous() and clears
// Current(), so callers observing ok=false can no longer see a stale point
// after the underlying source is spent.
func (r *Reader) markExhausted() {
	if r.hasCur {
		r.prev = r.current
		r.hasPrev = true
	}
	r.hasCur = false
	r.eos = true
}

func parseRecord(symbol string, record []string) (feed.DataPoint, error) {
	if len(record) < 6 {
		return feed.DataPoint{}, fmt.Errorf("expected 6 fields, got %d", len(record))
	}
	nanos, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return feed.DataPoint{}, fmt.Errorf("parse timestamp: %w", err)
	}
	open, err := decimal.NewFromString(record[1])
	if err != nil {
		return feed.DataPoint{}, fmt.Errorf("parse open: %w", err)
	}
	high, err := decimal.NewFromString(record[2])
	if err != nil {
		return feed.DataPoint{}, fmt.Errorf("parse high: %w", err)
	}
	low, err := decimal.NewFromString(record[3])
	if err != nil {
		return feed.DataPoint{}, fmt.Errorf("parse low: %w", err)
	}
	closePrice, err := decimal.NewFromString(record[4])
	if err != nil {
		return feed.DataPoint{}, fmt.Errorf("parse close: %w", err)
	}
	volume, err := decimal.NewFromString(record[5])
	if err != nil {
		return feed.DataPoint{}, fmt.Errorf("parse volume: %w", err)
	}

	return feed.DataPoint{
		Time:   time.Unix(0, nanos).UTC(),
		Symbol: symbol,
		Kind:   feed.PointTradeBar,
		TradeBar: feed.TradeBar{
			Open: open, High: high, Low: low, Close: closePrice,
			Volume: volume,
		},
	}, nil
}

// Current implements feed.SubscriptionReader.
func (r *Reader) Current() (feed.DataPoint, bool) { return r.current, r.hasCur }

// Previous implements feed.SubscriptionReader.
func (r *Reader) Previous() (feed.DataPoint, bool) { return r.prev, r.hasPrev }

// EndOfStream implements feed.SubscriptionReader.
func (r *Reader) EndOfStream() bool { return r.eos }

// Dispose implements feed.SubscriptionReader.
func (r *Reader) Dispose() error {
	r.closeFile()
	return nil
}

func (r *Reader) closeFile() {
	if r.file != nil {
		_ = r.file.Close()
		r.file = nil
		r.reader = nil
	}
}
