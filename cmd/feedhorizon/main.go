// Command feedhorizon runs the historical market-data feed engine against a
// configured set of subscriptions and prints delivered batches as they
// drain from each bridge.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/marketreplay/feedhorizon/internal/archive"
	"github.com/marketreplay/feedhorizon/internal/calendar"
	"github.com/marketreplay/feedhorizon/internal/config"
	"github.com/marketreplay/feedhorizon/internal/feed"
	"github.com/marketreplay/feedhorizon/internal/observability"
	"github.com/marketreplay/feedhorizon/internal/reader/csvday"
	"github.com/marketreplay/feedhorizon/lib/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to the feedhorizon YAML configuration")
	pretty := flag.Bool("pretty", false, "use a colorized console log writer instead of JSON")
	flag.Parse()

	logger := observability.NewZerologLogger(nil, *pretty, observability.WithComponent("feedhorizon"))
	observability.SetLogger(logger)

	if err := run(*configPath, logger); err != nil {
		log.Fatalf("feedhorizon: %v", err)
	}
}

func run(configPath string, logger observability.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	subs, err := cfg.ToFeedSubscriptions()
	if err != nil {
		return fmt.Errorf("build subscriptions: %w", err)
	}

	cal, err := buildCalendar(cfg, logger)
	if err != nil {
		return fmt.Errorf("build calendar: %w", err)
	}

	providers, shutdown, err := telemetry.Init(ctx, telemetry.Config{
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	instruments, err := telemetry.NewInstruments(providers.MeterProvider.Meter("feedhorizon"))
	if err != nil {
		return fmt.Errorf("register instruments: %w", err)
	}

	factory := func(sub feed.SubscriptionConfig) (feed.SubscriptionReader, error) {
		root := sub.SourceHint
		if root == "" {
			root = cfg.SourceRoot
		}
		return csvday.New(root, sub.Symbol, nil), nil
	}

	opts := []feed.EngineOption{
		feed.WithLogger(logger),
		feed.WithInstruments(providers.MeterProvider.Meter("feedhorizon"), instruments),
	}
	if cfg.Engine.TotalBridgeMax > 0 {
		opts = append(opts, feed.WithTotalBridgeMax(cfg.Engine.TotalBridgeMax))
	}

	engine, err := feed.NewFeedEngine(subs, factory, cal, cfg.Window.PeriodStart, cfg.Window.PeriodFinish, opts...)
	if err != nil {
		return fmt.Errorf("construct engine: %w", err)
	}

	sink, err := buildArchiveSink(ctx, cfg)
	if err != nil {
		return fmt.Errorf("build archive sink: %w", err)
	}
	if sink != nil {
		defer func() { _ = sink.Close(context.Background()) }()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- engine.Run(ctx) }()

	control := engine.Control()
	consume(ctx, control, len(subs), sink, logger)

	return <-errCh
}

func buildCalendar(cfg config.Config, logger observability.Logger) (calendar.Calendar, error) {
	base := calendar.NewSCMHub(logger)
	if cfg.Calendar.OverlayScriptPath == "" {
		return base, nil
	}
	source, err := os.ReadFile(cfg.Calendar.OverlayScriptPath) // #nosec G304 -- operator-provided config path.
	if err != nil {
		return nil, fmt.Errorf("read calendar overlay script: %w", err)
	}
	return calendar.NewScriptedOverlay(base, string(source))
}

func buildArchiveSink(ctx context.Context, cfg config.Config) (*archive.Sink, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}
	if err := archive.ApplyMigrations(ctx, cfg.Archive.DSN, "db/migrations"); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, cfg.Archive.DSN)
	if err != nil {
		return nil, fmt.Errorf("connect archive database: %w", err)
	}
	return archive.NewSink(pool, 4, 64)
}

// consume drains every bridge until the engine reports every stream done,
// or ctx is cancelled. It is the "algorithm thread" collaborator described
// in spec §5: an independent consumer polling bridge.TryDequeue.
func consume(ctx context.Context, control feed.ControlSurface, streamCount int, sink *archive.Sink, logger observability.Logger) {
	limiter := rate.NewLimiter(rate.Every(10*time.Millisecond), 1)

	for {
		if err := limiter.Wait(ctx); err != nil {
			control.Exit()
			return
		}

		for i := 0; i < streamCount; i++ {
			bridge := control.Bridge(i)
			if bridge == nil {
				continue
			}
			for {
				batch, ok := bridge.TryDequeue()
				if !ok {
					break
				}
				logger.Debug("feed: batch delivered",
					observability.Field{Key: "stream", Value: i},
					observability.Field{Key: "size", Value: len(batch)},
				)
				if sink != nil && len(batch) > 0 {
					if err := sink.Record(ctx, batch[0].Symbol, batch, 0); err != nil {
						logger.Warn("feed: archive record failed",
							observability.Field{Key: "stream", Value: i},
							observability.Field{Key: "error", Value: err.Error()},
						)
					}
				}
			}
		}

		if control.EndOfBridges() {
			return
		}
	}
}
