// Package calendar exposes the market-calendar collaborator consumed by the
// feed engine (spec §4.1). The engine owns no calendar state of its own; it
// only ever calls through this interface.
package calendar

import "time"

// Calendar answers tradeable-date and market-hours questions for a set of
// securities. Implementations are read-only collaborators: the engine never
// mutates calendar state.
type Calendar interface {
	// TradeableDays returns, in ascending order, every date on which at
	// least one of securities has its market open, within [start, finish].
	TradeableDays(securities []string, start, finish time.Time) ([]time.Time, error)

	// MarketOpen reports whether symbol's regular-hours market is open at t.
	MarketOpen(symbol string, t time.Time) bool

	// ExtendedMarketOpen reports whether symbol's market, including pre- and
	// post-market sessions, is open at t.
	ExtendedMarketOpen(symbol string, t time.Time) bool
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
