package expand

import (
	"time"
)

// Options bounds a single expansion walk.
type Options struct {
	// MaxOccurrences caps how many instances one rule may emit.
	MaxOccurrences int

	// HorizonDays caps how far past "now" expansion proceeds, even when
	// the rule itself is unbounded.
	HorizonDays int

	// TimeBudget bounds the wall-clock time of one walk. Exceeding it
	// ends the walk early with a valid partial result. Zero disables
	// the budget.
	TimeBudget time.Duration

	// YieldEvery is the number of iterator steps between cooperative
	// yield points. Yielding happens only between fully computed
	// occurrences, never mid-computation.
	YieldEvery int

	// Now supplies the clock anchoring the horizon; tests override it.
	Now func() time.Time
}

// DefaultOptions provides sensible defaults for production use.
var DefaultOptions = Options{
	MaxOccurrences: 500,
	HorizonDays:    365,
	TimeBudget:     2 * time.Second,
	YieldEvery:     50,
}

// HighThroughputOptions trades completeness for speed when many large
// feeds are consolidated at once.
var HighThroughputOptions = Options{
	MaxOccurrences: 250,
	HorizonDays:    180,
	TimeBudget:     time.Second,
	YieldEvery:     25,
}

// WideHorizonOptions expands further into the future for hosts that
// render long-range views.
var WideHorizonOptions = Options{
	MaxOccurrences: 2000,
	HorizonDays:    730,
	TimeBudget:     10 * time.Second,
	YieldEvery:     100,
}

func (o *Options) normalize() {
	if o.MaxOccurrences <= 0 {
		o.MaxOccurrences = DefaultOptions.MaxOccurrences
	}
	if o.HorizonDays <= 0 {
		o.HorizonDays = DefaultOptions.HorizonDays
	}
	if o.YieldEvery <= 0 {
		o.YieldEvery = DefaultOptions.YieldEvery
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// StopReason records why an expansion walk ended.
type StopReason string

const (
	StopRuleExhausted  StopReason = "rule_exhausted"
	StopWindowEnd      StopReason = "window_end"
	StopHorizon        StopReason = "horizon"
	StopMaxOccurrences StopReason = "max_occurrences"
	StopBudget         StopReason = "budget_exceeded"
	StopCanceled       StopReason = "canceled"
)

// Report describes the outcome of one expansion walk.
type Report struct {
	MasterUID string
	Emitted   int

	// Complete is true when the walk covered the requested window:
	// either the rule was exhausted or the window end was reached.
	// Horizon, occurrence cap, budget and cancellation stops all mean
	// the result is partial.
	Complete bool

	Stop    StopReason
	Elapsed time.Duration
}

// Outcome returns "complete" or "partial", the label used in logs and
// diagnostics.
func (r Report) Outcome() string {
	if r.Complete {
		return "complete"
	}
	return "partial"
}
