// Package errs provides structured error types and helpers for feedhorizon services.
package errs

import (
	"sort"
	"strconv"
	"strings"
)

// Code identifies a feed-engine error category, per spec.md §7's taxonomy.
type Code string

const (
	// CodeSourceMissing indicates a reader found no source file for a tradeable date.
	// Recovered locally: the stream is marked EndOfBridge for the day.
	CodeSourceMissing Code = "source_missing"
	// CodeReaderFault indicates an unexpected mid-stream reader failure.
	// Recovered locally: the stream is marked EndOfStream+EndOfBridge; siblings continue.
	CodeReaderFault Code = "reader_fault"
	// CodeCancelled indicates the operation observed exitRequested. Not a true error.
	CodeCancelled Code = "cancelled"
	// CodeConfigInvalid indicates the engine was constructed with zero subscriptions,
	// an empty date range, or another configuration defect. Fatal, surfaced to the caller
	// before the day loop starts.
	CodeConfigInvalid Code = "config_invalid"
)

// E captures structured error information produced across the feedhorizon stack.
type E struct {
	Stream      string
	Code        Code
	Symbol      string
	Resolution  string
	Message     string
	Remediation string
	Metadata    map[string]string

	cause error
}

// Option configures an error envelope.
type Option func(*E)

// New constructs an error envelope for the given stream identifier and error code.
func New(stream string, code Code, opts ...Option) *E {
	e := &E{
		Stream:      strings.TrimSpace(stream),
		Code:        code,
		Symbol:      "",
		Resolution:  "",
		Message:     "",
		Remediation: "",
		Metadata:    nil,
		cause:       nil,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// WithMessage attaches a human-readable message to the error.
func WithMessage(message string) Option {
	trimmed := strings.TrimSpace(message)
	return func(e *E) {
		e.Message = trimmed
	}
}

// WithRemediation attaches remediation guidance to the error.
func WithRemediation(remediation string) Option {
	trimmed := strings.TrimSpace(remediation)
	return func(e *E) {
		e.Remediation = trimmed
	}
}

// WithSymbol records the subscription symbol associated with the failure.
func WithSymbol(symbol string) Option {
	trimmed := strings.TrimSpace(symbol)
	return func(e *E) {
		e.Symbol = trimmed
	}
}

// WithResolution records the subscription resolution associated with the failure.
func WithResolution(resolution string) Option {
	trimmed := strings.TrimSpace(resolution)
	return func(e *E) {
		e.Resolution = trimmed
	}
}

// WithCause sets the underlying cause error.
func WithCause(err error) Option {
	return func(e *E) {
		e.cause = err
	}
}

// WithMetadata merges the provided metadata into the error envelope.
func WithMetadata(meta map[string]string) Option {
	return func(e *E) {
		if len(meta) == 0 {
			return
		}
		if e.Metadata == nil {
			e.Metadata = make(map[string]string, len(meta))
		}
		for k, v := range meta {
			key := strings.TrimSpace(k)
			if key == "" {
				continue
			}
			e.Metadata[key] = strings.TrimSpace(v)
		}
	}
}

func (e *E) Error() string {
	if e == nil {
		return "<nil>"
	}
	var parts []string

	stream := strings.TrimSpace(e.Stream)
	if stream == "" {
		stream = "unknown"
	}
	parts = append(parts, "stream="+stream)

	code := strings.TrimSpace(string(e.Code))
	if code == "" {
		code = "unknown"
	}
	parts = append(parts, "code="+code)

	if e.Symbol != "" {
		parts = append(parts, "symbol="+e.Symbol)
	}
	if e.Resolution != "" {
		parts = append(parts, "resolution="+e.Resolution)
	}
	if e.Message != "" {
		parts = append(parts, "message="+strconv.Quote(e.Message))
	}
	if e.Remediation != "" {
		parts = append(parts, "remediation="+strconv.Quote(e.Remediation))
	}
	if len(e.Metadata) > 0 {
		keys := make([]string, 0, len(e.Metadata))
		for k := range e.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, k+"="+strconv.Quote(e.Metadata[k]))
		}
		parts = append(parts, "metadata="+strings.Join(pairs, ","))
	}
	if e.cause != nil {
		parts = append(parts, "cause="+strconv.Quote(e.cause.Error()))
	}

	return strings.Join(parts, " ")
}

func (e *E) Unwrap() error { return e.cause }

// IsFatal reports whether the error must abort Run before the day loop starts.
// Only configuration errors are fatal; SourceMissing, ReaderFault and Cancelled
// are all recovered locally per spec.md §7.
func (e *E) IsFatal() bool {
	if e == nil {
		return false
	}
	return e.Code == CodeConfigInvalid
}

// ConfigInvalid returns a standardized fatal configuration error.
func ConfigInvalid(msg string) *E {
	return New("engine", CodeConfigInvalid, WithMessage(strings.TrimSpace(msg)))
}
