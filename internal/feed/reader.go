package feed

import "time"

// SubscriptionReader is the external, per-subscription file-format boundary
// (spec §4.2). The engine never parses source files itself; it drives one
// reader per subscription through this interface.
type SubscriptionReader interface {
	// RefreshSource locates and opens the source for date. It returns true
	// if a source exists and the first data point is available (Current is
	// then set); false means "no data for this stream today" — the engine
	// treats that as non-fatal and retires the stream for the day. An error
	// return also retires the stream for the day (SourceMissing semantics);
	// it is never fatal to the engine.
	RefreshSource(date time.Time) (bool, error)

	// MoveNext advances the cursor: Previous becomes the prior Current,
	// Current becomes the next data point. Returns false once exhausted, at
	// which point EndOfStream reports true. An error return also marks
	// EndOfStream (ReaderFault semantics).
	MoveNext() (bool, error)

	// Current and Previous expose the reader's cursor. Previous is the zero
	// value with ok=false until at least one MoveNext has succeeded.
	Current() (point DataPoint, ok bool)
	Previous() (point DataPoint, ok bool)

	// EndOfStream reports true once the current day's source is exhausted;
	// the next RefreshSource resets it.
	EndOfStream() bool

	// Dispose releases file handles. Called exactly once, from the engine's
	// cleanup phase, on every exit path.
	Dispose() error
}
