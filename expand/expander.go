// Package expand walks RFC 5545 recurrence rules into bounded sequences
// of occurrence instances.
package expand

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/calyptra/liboccur/event"
)

var (
	// ErrNoRule is returned when the master carries no recurrence rule.
	ErrNoRule = errors.New("event has no recurrence rule")

	// ErrUnsupportedFrequency is returned for frequencies outside
	// DAILY, WEEKLY, MONTHLY and YEARLY.
	ErrUnsupportedFrequency = errors.New("unsupported recurrence frequency")
)

var supportedFrequencies = map[string]bool{
	"DAILY":   true,
	"WEEKLY":  true,
	"MONTHLY": true,
	"YEARLY":  true,
}

// Expander produces occurrence instances from recurring masters.
// Expansion is a pure, restartable computation over the master and its
// rule; results are never cached or mutated.
type Expander struct {
	opts   Options
	logger *slog.Logger
}

// New creates an Expander. Zero-valued option fields are replaced with
// the defaults; a nil logger selects slog.Default().
func New(opts Options, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	opts.normalize()
	return &Expander{opts: opts, logger: logger}
}

// Expand walks the rule forward from the master's start and returns the
// occurrence instances falling inside [windowStart, windowEnd), in
// non-decreasing start order.
//
// The walk stops at the window end, the rule's own COUNT/UNTIL bound,
// the occurrence cap, the expansion horizon, budget expiry or context
// cancellation, whichever comes first. Budget expiry and cancellation
// yield a valid partial result, not an error; the Report says which
// condition ended the walk.
func (x *Expander) Expand(ctx context.Context, master event.CalendarEvent, rule event.RecurrenceRule, windowStart, windowEnd time.Time) ([]event.CalendarEvent, Report, error) {
	report := Report{MasterUID: master.ID}

	text := strings.TrimSpace(rule.Text)
	if text == "" {
		return nil, report, ErrNoRule
	}
	if err := checkFrequency(text); err != nil {
		return nil, report, err
	}

	r, err := rrule.StrToRRule(text)
	if err != nil {
		return nil, report, fmt.Errorf("parsing RRULE %q: %w", text, err)
	}
	r.DTStart(master.Start)

	// The effective end of the walk is the window end, unless the
	// horizon past "now" is closer.
	limit := windowEnd
	limitStop := StopWindowEnd
	if horizon := x.opts.Now().AddDate(0, 0, x.opts.HorizonDays); horizon.Before(windowEnd) {
		limit = horizon
		limitStop = StopHorizon
	}

	var deadline time.Time
	if x.opts.TimeBudget > 0 {
		deadline = time.Now().Add(x.opts.TimeBudget)
	}

	duration := master.End.Sub(master.Start)
	started := time.Now()
	var out []event.CalendarEvent
	next := r.Iterator()
	steps := 0

walk:
	for {
		t, ok := next()
		if !ok {
			report.Stop = StopRuleExhausted
			report.Complete = true
			break
		}
		if !t.Before(limit) {
			report.Stop = limitStop
			report.Complete = limitStop == StopWindowEnd
			break
		}

		steps++
		if steps%x.opts.YieldEvery == 0 {
			// Suspension point between fully computed occurrences.
			runtime.Gosched()
			if ctx.Err() != nil {
				report.Stop = StopCanceled
				break walk
			}
			if !deadline.IsZero() && time.Now().After(deadline) {
				report.Stop = StopBudget
				x.logger.Warn("expansion budget exceeded, returning partial result",
					"uid", master.ID,
					"emitted", report.Emitted)
				break walk
			}
		}

		if t.Before(windowStart) {
			continue
		}
		if isExcluded(t, rule.ExDates) {
			continue
		}

		out = append(out, x.instance(master, t, duration))
		report.Emitted++
		if report.Emitted >= x.opts.MaxOccurrences {
			report.Stop = StopMaxOccurrences
			break
		}
	}

	report.Elapsed = time.Since(started)
	return out, report, nil
}

// instance derives one occurrence from the master. All-day occurrences
// are anchored at midnight and span a whole day; timed occurrences keep
// the master's duration.
func (x *Expander) instance(master event.CalendarEvent, start time.Time, duration time.Duration) event.CalendarEvent {
	inst := master.Clone()
	inst.Recurrence = nil
	inst.RecurrenceID = ""
	inst.IsRecurring = true
	inst.IsExpandedInstance = true
	inst.RRuleMasterUID = master.ID
	if master.IsAllDay {
		day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
		inst.Start = day
		inst.End = day.AddDate(0, 0, 1)
	} else {
		inst.Start = start
		inst.End = start.Add(duration)
	}
	inst.ID = event.InstanceID(master.ID, inst.Start)
	return inst
}

// isExcluded checks an occurrence instant against the exception set.
// Date-only exceptions are stored as midnight UTC and match any
// occurrence falling on that calendar date.
func isExcluded(t time.Time, exdates []time.Time) bool {
	for _, exdate := range exdates {
		if t.Equal(exdate) {
			return true
		}
		if exdate.Hour() == 0 && exdate.Minute() == 0 && exdate.Second() == 0 && exdate.Location() == time.UTC {
			occurrenceDate := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			if occurrenceDate.Equal(exdate) {
				return true
			}
		}
	}
	return false
}

// checkFrequency validates the FREQ part of a rule before handing it to
// the walker.
func checkFrequency(text string) error {
	for _, part := range strings.Split(text, ";") {
		k, v, ok := strings.Cut(part, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(k), "FREQ") {
			continue
		}
		freq := strings.ToUpper(strings.TrimSpace(v))
		if !supportedFrequencies[freq] {
			return fmt.Errorf("%w: %s", ErrUnsupportedFrequency, freq)
		}
		return nil
	}
	return fmt.Errorf("%w: rule has no FREQ part", ErrUnsupportedFrequency)
}
