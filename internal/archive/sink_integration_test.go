//go:build integration

package archive_test

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/marketreplay/feedhorizon/internal/archive"
	"github.com/marketreplay/feedhorizon/internal/feed"
)

func TestSinkRecordsDeliveredBatch(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_PASSWORD": "secret", "POSTGRES_USER": "postgres", "POSTGRES_DB": "feedhorizon"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	defer func() { _ = container.Terminate(ctx) }()

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://postgres:secret@%s:%s/feedhorizon?sslmode=disable", host, port.Port())

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller lookup failed")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(file), "..", "..", "db", "migrations"))
	if err := archive.ApplyMigrations(ctx, dsn, root); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgx pool: %v", err)
	}
	defer pool.Close()

	sink, err := archive.NewSink(pool, 2, 8)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	batch := feed.Batch{{
		Time:   time.Date(2024, 1, 2, 9, 31, 0, 0, time.UTC),
		Symbol: "AAPL",
		Kind:   feed.PointTradeBar,
		TradeBar: feed.TradeBar{
			Open: decimal.NewFromFloat(190.1), High: decimal.NewFromFloat(190.5),
			Low: decimal.NewFromFloat(189.9), Close: decimal.NewFromFloat(190.3),
			Volume: decimal.NewFromInt(1000),
		},
	}}

	if err := sink.Record(ctx, "AAPL", batch, 0); err != nil {
		t.Fatalf("record batch: %v", err)
	}
	if err := sink.Close(ctx); err != nil {
		t.Fatalf("close sink: %v", err)
	}

	var count int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM delivered_batches WHERE run_id = $1", sink.RunID()).Scan(&count); err != nil {
		t.Fatalf("query delivered_batches: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 archived batch, got %d", count)
	}
}
