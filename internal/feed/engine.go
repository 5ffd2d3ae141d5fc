package feed

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/pool"
	apimetric "go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/marketreplay/feedhorizon/errs"
	"github.com/marketreplay/feedhorizon/internal/calendar"
	"github.com/marketreplay/feedhorizon/internal/observability"
	"github.com/marketreplay/feedhorizon/lib/telemetry"
)

const (
	defaultTotalBridgeMax = 500_000
	backpressureSleep     = 5 * time.Millisecond
	drainSleep            = 100 * time.Millisecond
)

// ReaderFactory opens a SubscriptionReader for one subscription. The engine
// calls it once per subscription during construction.
type ReaderFactory func(cfg SubscriptionConfig) (SubscriptionReader, error)

type engineConfig struct {
	totalBridgeMax int
	logger         observability.Logger
	instruments    *telemetry.Instruments
	meter          apimetric.Meter
}

// EngineOption configures optional FeedEngine behaviour.
type EngineOption func(*engineConfig)

// WithTotalBridgeMax overrides the default 500,000 aggregate bridge capacity.
func WithTotalBridgeMax(n int) EngineOption {
	return func(c *engineConfig) {
		if n > 0 {
			c.totalBridgeMax = n
		}
	}
}

// WithLogger overrides the engine's logger; defaults to observability.Log().
func WithLogger(logger observability.Logger) EngineOption {
	return func(c *engineConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// FeedEngine is the Run-loop producer described in spec §4.5: it drives one
// reader per subscription day-by-day, merges them via a sequential frontier
// loop, synthesizes fill-forward bars, and publishes batches onto bounded
// per-subscription bridges.
type FeedEngine struct {
	streams []*subscriptionState
	cal     calendar.Calendar
	synth   *fillForwardSynthesizer
	logger  observability.Logger
	inst    *instrumentSink

	securities []string
	start      time.Time
	finish     time.Time

	barIncrement      time.Duration
	frontierIncrement time.Duration
	perBridgeMax      int

	backpressureLimiter *rate.Limiter
	drainLimiter        *rate.Limiter

	state controlState
}

// NewFeedEngine constructs the engine. The index of each entry in subs is its
// stable bridge index (spec §6); factory is called once per subscription to
// open its reader. start/finish bound the tradeable-day enumeration; both are
// inclusive dates.
func NewFeedEngine(subs []SubscriptionConfig, factory ReaderFactory, cal calendar.Calendar, start, finish time.Time, opts ...EngineOption) (*FeedEngine, error) {
	if len(subs) == 0 {
		return nil, errs.ConfigInvalid("at least one subscription is required")
	}
	if finish.Before(start) {
		return nil, errs.ConfigInvalid("periodFinish precedes periodStart")
	}
	if cal == nil {
		return nil, errs.ConfigInvalid("calendar collaborator is required")
	}
	if factory == nil {
		return nil, errs.ConfigInvalid("reader factory is required")
	}

	cfg := engineConfig{totalBridgeMax: defaultTotalBridgeMax, logger: observability.Log()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	perBridgeMax := cfg.totalBridgeMax / len(subs)
	if perBridgeMax < 1 {
		perBridgeMax = 1
	}

	securities := make([]string, 0, len(subs))
	streams := make([]*subscriptionState, 0, len(subs))
	for _, sub := range subs {
		if err := sub.validate(); err != nil {
			return nil, err
		}
		reader, err := factory(sub)
		if err != nil {
			return nil, errs.New("engine", errs.CodeConfigInvalid,
				errs.WithSymbol(sub.Symbol), errs.WithCause(err),
				errs.WithMessage("construct reader"))
		}
		streams = append(streams, newSubscriptionState(sub, reader, perBridgeMax))
		securities = append(securities, sub.Symbol)
	}

	barIncrement, frontierIncrement := increments(subs)

	engine := &FeedEngine{
		streams:             streams,
		cal:                 cal,
		synth:               newFillForwardSynthesizer(cal),
		logger:              cfg.logger,
		inst:                newInstrumentSink(cfg.instruments),
		securities:          securities,
		start:               start,
		finish:              finish,
		barIncrement:        barIncrement,
		frontierIncrement:   frontierIncrement,
		perBridgeMax:        perBridgeMax,
		backpressureLimiter: rate.NewLimiter(rate.Every(backpressureSleep), 1),
		drainLimiter:        rate.NewLimiter(rate.Every(drainSleep), 1),
	}

	if cfg.instruments != nil && cfg.meter != nil {
		if err := engine.registerBridgeDepthCallback(cfg.meter); err != nil {
			return nil, errs.New("engine", errs.CodeConfigInvalid, errs.WithCause(err),
				errs.WithMessage("register bridge depth callback"))
		}
	}

	return engine, nil
}

// Control returns the engine's ControlSurface.
func (e *FeedEngine) Control() ControlSurface { return ControlSurface{engine: e} }

// Run is the blocking entry point (spec §4.5, §4.6). It returns nil on clean
// exhaustion or cooperative cancellation, and a fatal *errs.E only for
// configuration failures detected before the day loop starts.
func (e *FeedEngine) Run(ctx context.Context) error {
	e.state.isActive.Store(true)
	defer e.cleanup()

	days, err := e.cal.TradeableDays(e.securities, e.start, e.finish)
	if err != nil {
		return errs.New("engine", errs.CodeConfigInvalid, errs.WithCause(err),
			errs.WithMessage("enumerate tradeable days"))
	}
	if len(days) == 0 {
		return errs.ConfigInvalid("no tradeable days in [periodStart, periodFinish]")
	}

	for _, date := range days {
		if e.exitRequested(ctx) {
			break
		}
		e.runDay(ctx, date)
		if e.exitRequested(ctx) {
			break
		}
	}

	e.drain(ctx)
	return nil
}

func (e *FeedEngine) exitRequested(ctx context.Context) bool {
	if e.state.exitRequested.Load() {
		return true
	}
	if ctx.Err() != nil {
		e.state.exitRequested.Store(true)
		return true
	}
	return false
}

func (e *FeedEngine) runDay(ctx context.Context, date time.Time) {
	frontier := date.Add(e.frontierIncrement)
	e.openSources(date)

	for {
		if e.backpressureGate(ctx) {
			return
		}

		done, next := e.frontierStep(date, frontier)
		frontier = next
		if done {
			return
		}
	}
}

// openSources fans RefreshSource out across every stream concurrently: each
// reader's file-open (or bucket lookup) is independent I/O, so a day with
// many subscriptions doesn't pay for it serially. Bounded to avoid opening
// hundreds of file descriptors at once on wide subscription lists.
func (e *FeedEngine) openSources(date time.Time) {
	p := pool.New().WithMaxGoroutines(8)
	for _, s := range e.streams {
		s := s
		p.Go(func() {
			opened, err := s.reader.RefreshSource(date)
			if err != nil {
				e.logger.Info("feed: source missing for day",
					observability.Field{Key: "symbol", Value: s.config.Symbol},
					observability.Field{Key: "date", Value: date},
					observability.Field{Key: "error", Value: err.Error()},
				)
			}
			s.endOfBridge.Store(!opened)
		})
	}
	p.Wait()
}

// backpressureGate implements spec §4.5 step 2: pause only when every
// inactive stream's bridge is already empty yet some active bridge is full,
// meaning the consumer is genuinely behind rather than merely starved of
// data from idle streams. Returns true if the caller should abandon the day
// (exit requested while paused).
func (e *FeedEngine) backpressureGate(ctx context.Context) bool {
	var waitStart time.Time
	waiting := false
	for {
		if e.exitRequested(ctx) {
			return true
		}

		full, empty, active := 0, 0, 0
		for _, s := range e.streams {
			if !s.endOfBridge.Load() {
				active++
			} else if s.bridge.Count() == 0 {
				empty++
			}
			if s.bridge.Count() >= s.bridge.Capacity() {
				full++
			}
		}

		if full == 0 || (len(e.streams)-active) != empty {
			if waiting {
				e.inst.recordBackpressureWait(time.Since(waitStart).Seconds())
			}
			return false
		}
		if !waiting {
			waitStart = time.Now()
			waiting = true
		}
		if err := e.backpressureLimiter.Wait(ctx); err != nil {
			return true
		}
	}
}

// frontierStep runs one iteration of the frontier loop (spec §4.5 step 3).
// It returns done=true when the day is finished, along with the frontier
// value to use on the next call.
func (e *FeedEngine) frontierStep(date, frontier time.Time) (done bool, next time.Time) {
	sameDay := sameCalendarDay(frontier, date)
	nextDay := sameCalendarDay(frontier, date.AddDate(0, 0, 1))
	if !sameDay && !nextDay {
		return true, frontier
	}

	active := 0
	for _, s := range e.streams {
		if s.reader.EndOfStream() || s.endOfBridge.Load() {
			s.endOfBridge.Store(true)
			continue
		}
		active++
	}
	if active == 0 {
		return true, frontier
	}

	var earlyBird time.Time
	haveEarlyBird := false

	for _, s := range e.streams {
		if s.endOfBridge.Load() {
			continue
		}

		var cache Batch
		for {
			current, ok := s.reader.Current()
			if !ok || !current.Time.Before(frontier) {
				break
			}
			cache = append(cache, current)
			moved, err := s.reader.MoveNext()
			if err != nil {
				e.logger.Debug("feed: reader fault",
					observability.Field{Key: "symbol", Value: s.config.Symbol},
					observability.Field{Key: "error", Value: err.Error()},
				)
			}
			if !moved {
				break
			}
		}

		if len(cache) > 0 {
			s.fillForwardFrontier = cache[0].Time
			s.fillForwardSet = true
			s.bridge.Enqueue(cache)
		}

		for _, batch := range e.synth.synthesize(s, e.barIncrement) {
			s.bridge.Enqueue(batch)
			e.inst.recordSynthesized(len(batch))
		}

		if current, ok := s.reader.Current(); ok {
			if !haveEarlyBird || current.Time.Before(earlyBird) {
				earlyBird = current.Time
				haveEarlyBird = true
			}
		}
	}

	e.state.setFrontier(frontier)
	e.inst.recordFrontierAdvance()

	if haveEarlyBird && earlyBird.After(frontier) {
		next = roundDown(earlyBird, e.frontierIncrement).Add(e.frontierIncrement)
	} else {
		next = frontier.Add(e.frontierIncrement)
	}
	return false, next
}

func (e *FeedEngine) drain(ctx context.Context) {
	e.state.loadingComplete.Store(true)
	for {
		if e.allBridgesDrained() {
			e.state.endOfStreams.Store(true)
			return
		}
		if e.state.exitRequested.Load() || ctx.Err() != nil {
			return
		}

		active := 0
		for _, s := range e.streams {
			if s.bridge.Count() == 0 && s.reader.EndOfStream() {
				s.endOfBridge.Store(true)
			}
			if !s.endOfBridge.Load() {
				active++
			}
		}
		if active == 0 {
			e.state.endOfStreams.Store(true)
		}
		if err := e.drainLimiter.Wait(ctx); err != nil {
			return
		}
	}
}

func (e *FeedEngine) allBridgesDrained() bool {
	if !e.state.endOfStreams.Load() {
		return false
	}
	for _, s := range e.streams {
		if !s.endOfBridge.Load() || s.bridge.Count() != 0 {
			return false
		}
	}
	return true
}

func (e *FeedEngine) cleanup() {
	for _, s := range e.streams {
		if err := s.reader.Dispose(); err != nil {
			e.logger.Info("feed: reader dispose failed",
				observability.Field{Key: "symbol", Value: s.config.Symbol},
				observability.Field{Key: "error", Value: err.Error()},
			)
		}
	}
	e.state.isActive.Store(false)
}

func sameCalendarDay(t, d time.Time) bool {
	ty, tm, td := t.Date()
	dy, dm, dd := d.Date()
	return ty == dy && tm == dm && td == dd
}

func roundDown(t time.Time, increment time.Duration) time.Time {
	if increment <= 0 {
		return t
	}
	return t.Truncate(increment)
}
