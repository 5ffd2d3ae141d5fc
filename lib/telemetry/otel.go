// Package telemetry configures OpenTelemetry metrics providers for feedhorizon.
package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	apimetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config selects the OTLP metrics endpoint for the running engine.
type Config struct {
	OTLPEndpoint string
	ServiceName  string
}

// Providers groups telemetry provider handles.
type Providers struct {
	MeterProvider apimetric.MeterProvider
}

// Init configures an OpenTelemetry meter provider based on the given
// configuration. When cfg.OTLPEndpoint is empty, a noop provider is returned
// so the engine runs unencumbered in tests and local runs.
func Init(ctx context.Context, cfg Config) (Providers, func(context.Context) error, error) {
	endpoint := strings.TrimSpace(cfg.OTLPEndpoint)
	service := strings.TrimSpace(cfg.ServiceName)
	if service == "" {
		service = "feedhorizon"
	}

	if endpoint == "" {
		p := Providers{MeterProvider: noop.NewMeterProvider()}
		otel.SetMeterProvider(p.MeterProvider)
		return p, func(context.Context) error { return nil }, nil
	}

	host, insecure, err := parseEndpoint(endpoint)
	if err != nil {
		return Providers{}, nil, err
	}

	metricOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(host)}
	if insecure {
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}

	metricExp, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		return Providers{}, nil, fmt.Errorf("create metric exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(service)))
	if err != nil {
		return Providers{}, nil, fmt.Errorf("create resource: %w", err)
	}

	reader := sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(15*time.Second))
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader), sdkmetric.WithResource(res))
	otel.SetMeterProvider(mp)

	providers := Providers{MeterProvider: mp}
	shutdown := func(ctx context.Context) error {
		return mp.Shutdown(ctx)
	}
	return providers, shutdown, nil
}

// Instruments bundles the counters and gauges the feed engine reports on
// each frontier advance, backpressure stall and fill-forward synthesis.
type Instruments struct {
	BridgeDepth      apimetric.Int64ObservableGauge
	FrontierAdvances apimetric.Int64Counter
	SynthesizedFills apimetric.Int64Counter
	BackpressureWait apimetric.Float64Histogram
}

// NewInstruments registers the engine's instruments against the given meter.
func NewInstruments(meter apimetric.Meter) (Instruments, error) {
	var inst Instruments
	var err error

	inst.BridgeDepth, err = meter.Int64ObservableGauge(
		"feedhorizon.bridge.depth",
		apimetric.WithDescription("current queued item count per bridge"),
	)
	if err != nil {
		return Instruments{}, fmt.Errorf("register bridge depth gauge: %w", err)
	}

	inst.FrontierAdvances, err = meter.Int64Counter(
		"feedhorizon.frontier.advances",
		apimetric.WithDescription("number of frontier-loop advances across all streams"),
	)
	if err != nil {
		return Instruments{}, fmt.Errorf("register frontier advance counter: %w", err)
	}

	inst.SynthesizedFills, err = meter.Int64Counter(
		"feedhorizon.fillforward.synthesized",
		apimetric.WithDescription("number of fill-forward synthetic points emitted"),
	)
	if err != nil {
		return Instruments{}, fmt.Errorf("register fill-forward counter: %w", err)
	}

	inst.BackpressureWait, err = meter.Float64Histogram(
		"feedhorizon.backpressure.wait_seconds",
		apimetric.WithDescription("time spent waiting for bridge capacity"),
	)
	if err != nil {
		return Instruments{}, fmt.Errorf("register backpressure histogram: %w", err)
	}

	return inst, nil
}

func parseEndpoint(raw string) (string, bool, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse otlp endpoint: %w", err)
	}
	host := parsed.Host
	if host == "" {
		host = raw
	}
	insecure := parsed.Scheme != "https"
	return host, insecure, nil
}
