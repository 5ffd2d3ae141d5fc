package feed

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	apimetric "go.opentelemetry.io/otel/metric"

	"github.com/marketreplay/feedhorizon/lib/telemetry"
)

// instrumentSink wraps telemetry.Instruments so the engine can record
// metrics without every call site nil-checking a possibly-absent provider.
type instrumentSink struct {
	inst *telemetry.Instruments
}

func newInstrumentSink(inst *telemetry.Instruments) *instrumentSink {
	return &instrumentSink{inst: inst}
}

// WithInstruments wires an engine to report bridge depth, frontier advances
// and fill-forward synthesis counts to the given OpenTelemetry instruments.
// meter must be the Meter that produced inst, so the bridge-depth gauge
// callback can be registered against it.
func WithInstruments(meter apimetric.Meter, inst telemetry.Instruments) EngineOption {
	return func(c *engineConfig) {
		c.instruments = &inst
		c.meter = meter
	}
}

// registerBridgeDepthCallback hooks the bridge-depth observable gauge to a
// pull-based callback over the engine's live stream set, invoked by the SDK
// on each export interval rather than pushed by the frontier loop.
func (e *FeedEngine) registerBridgeDepthCallback(meter apimetric.Meter) error {
	if e.inst == nil || e.inst.inst == nil {
		return nil
	}
	_, err := meter.RegisterCallback(func(_ context.Context, obs apimetric.Observer) error {
		for _, s := range e.streams {
			obs.ObserveInt64(e.inst.inst.BridgeDepth, int64(s.bridge.Count()),
				apimetric.WithAttributes(attribute.String("symbol", s.config.Symbol)))
		}
		return nil
	}, e.inst.inst.BridgeDepth)
	return err
}

func (s *instrumentSink) recordFrontierAdvance() {
	if s == nil || s.inst == nil {
		return
	}
	s.inst.FrontierAdvances.Add(context.Background(), 1)
}

func (s *instrumentSink) recordSynthesized(count int) {
	if s == nil || s.inst == nil || count == 0 {
		return
	}
	s.inst.SynthesizedFills.Add(context.Background(), int64(count), apimetric.WithAttributes(attribute.Int("batch_size", count)))
}

func (s *instrumentSink) recordBackpressureWait(seconds float64) {
	if s == nil || s.inst == nil {
		return
	}
	s.inst.BackpressureWait.Record(context.Background(), seconds)
}
