package feed

import (
	"sync/atomic"
	"time"
)

// subscriptionState is the engine-owned per-subscription bookkeeping
// (spec §3, "SubscriptionState"). endOfBridge is written by the producer
// goroutine and read by ControlSurface from the consumer goroutine, so it
// is an atomic.Bool for the same reason controlState's flags are (spec §9:
// write-once/monotonic flags need only atomic store/load, not a mutex).
type subscriptionState struct {
	config SubscriptionConfig
	reader SubscriptionReader
	bridge *Bridge

	endOfBridge         atomic.Bool
	fillForwardFrontier time.Time
	fillForwardSet      bool
}

func newSubscriptionState(cfg SubscriptionConfig, reader SubscriptionReader, perBridgeMax int) *subscriptionState {
	return &subscriptionState{
		config: cfg,
		reader: reader,
		bridge: NewBridge(perBridgeMax),
	}
}
