package archive

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marketreplay/feedhorizon/internal/feed"
	"github.com/marketreplay/feedhorizon/lib/async"
)

// Record is the archived shape of one delivered batch.
type Record struct {
	Symbol         string           `json:"symbol"`
	BatchStart     time.Time        `json:"batchStart"`
	BatchEnd       time.Time        `json:"batchEnd"`
	SyntheticCount int              `json:"syntheticCount"`
	Points         []feed.DataPoint `json:"points"`
}

// Sink writes delivered batches to Postgres for post-hoc replay
// verification. Writes are fanned out through a bounded async.Pool so a
// slow database never blocks the consumer loop that owns the Sink.
type Sink struct {
	pool  *pgxpool.Pool
	runID uuid.UUID
	work  *async.Pool
}

// NewSink constructs a Sink against pool, tagging every write with a fresh
// run identifier. workers/queue bound the async flush pool.
func NewSink(pool *pgxpool.Pool, workers, queue int) (*Sink, error) {
	work, err := async.NewPool(workers, queue)
	if err != nil {
		return nil, fmt.Errorf("archive: construct flush pool: %w", err)
	}
	return &Sink{pool: pool, runID: uuid.New(), work: work}, nil
}

// RunID identifies this Sink's run for later query correlation.
func (s *Sink) RunID() uuid.UUID { return s.runID }

// Record enqueues a delivered batch for asynchronous durable storage. The
// returned error covers only the enqueue (e.g. async.ErrPoolFull); errors
// from the eventual write are discarded by the pool worker and not reported.
// Archival is best-effort and never blocks the consumer's own progress.
func (s *Sink) Record(ctx context.Context, symbol string, batch feed.Batch, syntheticCount int) error {
	if len(batch) == 0 {
		return nil
	}
	rec := Record{
		Symbol:         symbol,
		BatchStart:     batch[0].Time,
		BatchEnd:       batch[len(batch)-1].Time,
		SyntheticCount: syntheticCount,
		Points:         batch,
	}
	return s.work.Submit(ctx, func(ctx context.Context) error {
		return s.write(ctx, rec)
	})
}

func (s *Sink) write(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec.Points)
	if err != nil {
		return fmt.Errorf("archive: marshal payload: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO delivered_batches
			(run_id, symbol, batch_start, batch_end, point_count, synthetic_count, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.runID, rec.Symbol, rec.BatchStart, rec.BatchEnd, len(rec.Points), rec.SyntheticCount, payload)
	if err != nil {
		return fmt.Errorf("archive: insert batch: %w", err)
	}
	return nil
}

// Close waits for in-flight writes to complete or ctx to expire, then
// releases the flush pool. The connection pool itself is owned by the
// caller.
func (s *Sink) Close(ctx context.Context) error {
	return s.work.Shutdown(ctx)
}
