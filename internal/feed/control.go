package feed

import (
	"sync/atomic"
	"time"
)

// controlState holds the engine's shared mutable flags. Per spec §9 these
// are monotonic values, so plain atomics suffice. The engine goroutine is the
// only writer of every flag except exitRequested, which ControlSurface.Exit
// also sets; other readers (the consumer) only ever load.
type controlState struct {
	isActive           atomic.Bool
	loadingComplete    atomic.Bool
	exitRequested      atomic.Bool
	endOfStreams       atomic.Bool
	loadedDataFrontier atomic.Int64 // UnixNano, 0 meaning unset
}

func (c *controlState) setFrontier(t time.Time) {
	c.loadedDataFrontier.Store(t.UnixNano())
}

func (c *controlState) frontier() time.Time {
	ns := c.loadedDataFrontier.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

// ControlSurface exposes the engine's lifecycle controls and observable
// status flags to an external controller and to the consumer (spec §4.6).
type ControlSurface struct {
	engine *FeedEngine
}

// IsActive reports whether the engine's Run loop is currently executing.
func (c ControlSurface) IsActive() bool { return c.engine.state.isActive.Load() }

// LoadingComplete reports whether the day loop has finished (the engine may
// still be draining bridges).
func (c ControlSurface) LoadingComplete() bool { return c.engine.state.loadingComplete.Load() }

// LoadedDataFrontier is the monotonic upper bound on published data.
func (c ControlSurface) LoadedDataFrontier() time.Time { return c.engine.state.frontier() }

// EndOfBridge reports whether stream i will produce no more batches.
func (c ControlSurface) EndOfBridge(i int) bool {
	if i < 0 || i >= len(c.engine.streams) {
		return true
	}
	return c.engine.streams[i].endOfBridge.Load()
}

// EndOfBridges reports whether every stream has reached EndOfBridge and
// every bridge has drained.
func (c ControlSurface) EndOfBridges() bool {
	return c.engine.allBridgesDrained()
}

// Exit requests cooperative cancellation and purges all bridges. Safe to
// call concurrently with the producer; data loss on the purge race is
// accepted under the documented shutdown semantics (spec §9).
func (c ControlSurface) Exit() {
	c.engine.state.exitRequested.Store(true)
	c.PurgeData()
}

// PurgeData clears every bridge without emitting its contents.
func (c ControlSurface) PurgeData() {
	for _, s := range c.engine.streams {
		s.bridge.Clear()
	}
}

// Bridge exposes stream i's bridge for consumer draining.
func (c ControlSurface) Bridge(i int) *Bridge {
	if i < 0 || i >= len(c.engine.streams) {
		return nil
	}
	return c.engine.streams[i].bridge
}
