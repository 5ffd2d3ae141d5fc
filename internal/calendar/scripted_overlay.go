package calendar

import (
	"fmt"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// ScriptedOverlay wraps a base Calendar and lets a per-symbol JavaScript
// predicate veto or force market-open decisions, for symbols with bespoke
// trading sessions the MIC-code mapping cannot express (e.g. crypto pairs
// traded on a custom venue calendar). The script exports a single function,
// marketOpen(symbol, unixMillis, extended) -> bool | undefined; returning
// undefined defers to the base calendar.
type ScriptedOverlay struct {
	base   Calendar
	rt     *goja.Runtime
	fn     goja.Callable
	mu     sync.Mutex
	source string
}

// NewScriptedOverlay compiles source (a JS module exporting marketOpen) and
// wraps base with it. Evaluation happens on a single goja.Runtime guarded by
// a mutex, matching goja's single-goroutine-per-runtime requirement.
func NewScriptedOverlay(base Calendar, source string) (*ScriptedOverlay, error) {
	if base == nil {
		return nil, fmt.Errorf("calendar: scripted overlay requires a base calendar")
	}
	rt := goja.New()
	program, err := goja.Compile("overlay.js", source, false)
	if err != nil {
		return nil, fmt.Errorf("calendar: compile overlay script: %w", err)
	}
	if _, err := rt.RunProgram(program); err != nil {
		return nil, fmt.Errorf("calendar: run overlay script: %w", err)
	}
	value := rt.Get("marketOpen")
	if goja.IsUndefined(value) || goja.IsNull(value) {
		return nil, fmt.Errorf("calendar: overlay script must define marketOpen(symbol, unixMillis, extended)")
	}
	fn, ok := goja.AssertFunction(value)
	if !ok {
		return nil, fmt.Errorf("calendar: overlay export marketOpen is not callable")
	}
	return &ScriptedOverlay{base: base, rt: rt, fn: fn, source: source}, nil
}

func (o *ScriptedOverlay) evaluate(symbol string, t time.Time, extended bool) (bool, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	res, err := o.fn(goja.Undefined(), o.rt.ToValue(symbol), o.rt.ToValue(t.UnixMilli()), o.rt.ToValue(extended))
	if err != nil || res == nil || goja.IsUndefined(res) || goja.IsNull(res) {
		return false, false
	}
	return res.ToBoolean(), true
}

// MarketOpen implements Calendar.
func (o *ScriptedOverlay) MarketOpen(symbol string, t time.Time) bool {
	if decided, ok := o.evaluate(symbol, t, false); ok {
		return decided
	}
	return o.base.MarketOpen(symbol, t)
}

// ExtendedMarketOpen implements Calendar.
func (o *ScriptedOverlay) ExtendedMarketOpen(symbol string, t time.Time) bool {
	if decided, ok := o.evaluate(symbol, t, true); ok {
		return decided
	}
	return o.base.ExtendedMarketOpen(symbol, t)
}

// TradeableDays implements Calendar by delegating to the base calendar; the
// overlay only refines intraday open/closed decisions.
func (o *ScriptedOverlay) TradeableDays(securities []string, start, finish time.Time) ([]time.Time, error) {
	return o.base.TradeableDays(securities, start, finish)
}
