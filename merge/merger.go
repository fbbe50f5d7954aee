// Package merge reconciles expanded occurrence instances with override
// metadata and assembles the final deduplicated event set.
package merge

import (
	"log/slog"

	"github.com/calyptra/liboccur/event"
	"github.com/calyptra/liboccur/internal/metrics"
	"github.com/calyptra/liboccur/timezone"
)

// Merger combines feed events and expanded instances. It is a pure
// single-context computation: every call operates only on data owned by
// that invocation.
type Merger struct {
	resolver *timezone.Resolver
	logger   *slog.Logger
}

// New creates a Merger. The resolver parses RECURRENCE-ID values, which
// may carry TZID prefixes or UTC markers.
func New(resolver *timezone.Resolver, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{resolver: resolver, logger: logger}
}

// Merge builds the final event list from feed events (masters,
// overrides, non-recurring singles) and the instances the expander
// produced for this window.
//
// Expanded instances superseded by an override are dropped; overrides
// and non-recurring events pass through; recurring masters stay visible
// only when their UID is absent from expandedMasters, the set of
// masters whose rules expanded successfully. A master that expanded to
// zero in-window occurrences is in that set and is not resurrected.
// The result is deduplicated, with RecurrenceID part of the identity:
// two events differing only there both survive.
func (m *Merger) Merge(sources, instances []event.CalendarEvent, expandedMasters map[string]struct{}) []event.CalendarEvent {
	overrides := m.collectOverrides(sources)

	out := make([]event.CalendarEvent, 0, len(sources)+len(instances))
	suppressed := 0
	for _, inst := range instances {
		key := event.NewOverrideKey(inst.RRuleMasterUID, inst.Start)
		if _, ok := overrides[key]; ok {
			suppressed++
			continue
		}
		out = append(out, inst)
	}
	if suppressed > 0 {
		metrics.AddOverridesSuppressed(suppressed)
		m.logger.Debug("suppressed overridden occurrences", "count", suppressed)
	}

	for _, ev := range sources {
		switch {
		case ev.IsOverride():
			out = append(out, ev)
		case !ev.IsRecurring:
			out = append(out, ev)
		default:
			// Fallback visibility: an unexpandable rule degrades to
			// showing the master rather than omitting it silently.
			if _, ok := expandedMasters[ev.ID]; !ok {
				out = append(out, ev)
			}
		}
	}

	return event.Deduplicate(out)
}

// collectOverrides indexes override events by the occurrence they
// replace. Malformed RECURRENCE-ID values are skipped with a warning;
// well-formed siblings still apply.
func (m *Merger) collectOverrides(sources []event.CalendarEvent) map[event.OverrideKey]event.CalendarEvent {
	overrides := make(map[event.OverrideKey]event.CalendarEvent)
	for _, ev := range sources {
		if !ev.IsOverride() {
			continue
		}
		masterUID := event.MasterUID(ev.ID)
		original, err := m.resolver.ParseDateTime(ev.RecurrenceID)
		if err != nil {
			m.logger.Warn("skipping override with malformed recurrence id",
				"id", ev.ID,
				"recurrence_id", ev.RecurrenceID)
			continue
		}
		overrides[event.NewOverrideKey(masterUID, original)] = ev
	}
	return overrides
}
