package config

import (
	"fmt"
	"strings"

	"github.com/marketreplay/feedhorizon/internal/feed"
)

// ParseResolution maps a YAML resolution string onto feed.Resolution.
func ParseResolution(s string) (feed.Resolution, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tick":
		return feed.ResolutionTick, nil
	case "second":
		return feed.ResolutionSecond, nil
	case "minute":
		return feed.ResolutionMinute, nil
	case "hour":
		return feed.ResolutionHour, nil
	case "daily", "day":
		return feed.ResolutionDaily, nil
	default:
		return 0, fmt.Errorf("unknown resolution %q", s)
	}
}

// ToFeedSubscriptions converts the YAML subscription list into
// feed.SubscriptionConfig values, resolving each resolution string.
func (c Config) ToFeedSubscriptions() ([]feed.SubscriptionConfig, error) {
	out := make([]feed.SubscriptionConfig, 0, len(c.Subscriptions))
	for _, s := range c.Subscriptions {
		res, err := ParseResolution(s.Resolution)
		if err != nil {
			return nil, fmt.Errorf("subscription %s: %w", s.Symbol, err)
		}
		out = append(out, feed.SubscriptionConfig{
			Symbol:              s.Symbol,
			Resolution:          res,
			FillDataForward:     s.FillDataForward,
			ExtendedMarketHours: s.ExtendedMarketHours,
			SourceHint:          s.SourceHint,
		})
	}
	return out, nil
}
