// Package config loads the YAML configuration tree for a feedhorizon run:
// subscriptions, the replay window, calendar overrides, bridge sizing, the
// optional archive sink and telemetry endpoint.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SubscriptionConfig is the YAML shape of one feed subscription.
type SubscriptionConfig struct {
	Symbol              string `yaml:"symbol"`
	Resolution          string `yaml:"resolution"`
	FillDataForward     bool   `yaml:"fillDataForward"`
	ExtendedMarketHours bool   `yaml:"extendedMarketHours"`
	SourceHint          string `yaml:"sourceHint"`
}

// WindowConfig bounds the replay period.
type WindowConfig struct {
	PeriodStart  time.Time `yaml:"periodStart"`
	PeriodFinish time.Time `yaml:"periodFinish"`
}

// CalendarConfig configures the market-calendar collaborator.
type CalendarConfig struct {
	// OverlayScriptPath, if set, points at a JavaScript module exporting
	// marketOpen(symbol, unixMillis, extended) used to override the base
	// scmhub calendar for bespoke venues.
	OverlayScriptPath string `yaml:"overlayScriptPath"`
}

// ArchiveConfig configures the optional durable audit sink.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// TelemetryConfig configures the OTLP metrics exporter.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlpEndpoint"`
	ServiceName  string `yaml:"serviceName"`
}

// EngineConfig configures the FeedEngine's resource bounds.
type EngineConfig struct {
	TotalBridgeMax int `yaml:"totalBridgeMax"`
}

// Config is the full feedhorizon run configuration.
type Config struct {
	Subscriptions []SubscriptionConfig `yaml:"subscriptions"`
	Window        WindowConfig         `yaml:"window"`
	Calendar      CalendarConfig       `yaml:"calendar"`
	Archive       ArchiveConfig        `yaml:"archive"`
	Telemetry     TelemetryConfig      `yaml:"telemetry"`
	Engine        EngineConfig         `yaml:"engine"`
	SourceRoot    string               `yaml:"sourceRoot"`
}

// Load reads and validates the configuration YAML document at path. If path
// is empty, FEEDHORIZON_CONFIG is consulted, then a fixed set of fallback
// locations, matching the layered-candidate resolution the wider example
// pack uses for its own config loaders.
func Load(path string) (Config, error) {
	reader, closer, err := open(path)
	if err != nil {
		return Config{}, err
	}
	defer closer()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return Config{}, fmt.Errorf("config: read: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate performs semantic validation beyond what YAML unmarshalling
// enforces on its own.
func (c Config) Validate() error {
	if len(c.Subscriptions) == 0 {
		return fmt.Errorf("config: at least one subscription required")
	}
	for i, s := range c.Subscriptions {
		if strings.TrimSpace(s.Symbol) == "" {
			return fmt.Errorf("config: subscriptions[%d]: symbol required", i)
		}
		if _, err := ParseResolution(s.Resolution); err != nil {
			return fmt.Errorf("config: subscriptions[%d]: %w", i, err)
		}
	}
	if c.Window.PeriodFinish.Before(c.Window.PeriodStart) {
		return fmt.Errorf("config: window.periodFinish precedes window.periodStart")
	}
	if c.Engine.TotalBridgeMax < 0 {
		return fmt.Errorf("config: engine.totalBridgeMax must be >=0")
	}
	if c.Archive.Enabled && strings.TrimSpace(c.Archive.DSN) == "" {
		return fmt.Errorf("config: archive.dsn required when archive.enabled")
	}
	return nil
}

func open(path string) (io.Reader, func(), error) {
	var candidates []string
	seen := make(map[string]struct{})
	add := func(p string) {
		p = strings.TrimSpace(p)
		if p == "" {
			return
		}
		p = filepath.Clean(p)
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		candidates = append(candidates, p)
	}

	add(path)
	if strings.TrimSpace(path) == "" {
		add(os.Getenv("FEEDHORIZON_CONFIG"))
		add("config/feedhorizon.yaml")
		add("config/feedhorizon.example.yaml")
	}

	var lastErr error
	for _, candidate := range candidates {
		file, err := os.Open(candidate) // #nosec G304 -- configuration paths are operator controlled.
		if err == nil {
			return file, func() { _ = file.Close() }, nil
		}
		if !os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("config: open %s: %w", candidate, err)
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = os.ErrNotExist
	}
	return nil, nil, fmt.Errorf("config: no configuration file found: %w", lastErr)
}
