package consolidate

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/mo"

	"github.com/calyptra/liboccur/event"
	"github.com/calyptra/liboccur/expand"
	"github.com/calyptra/liboccur/internal/metrics"
	"github.com/calyptra/liboccur/merge"
	"github.com/calyptra/liboccur/pipeline"
	"github.com/calyptra/liboccur/sched"
	"github.com/calyptra/liboccur/timezone"
)

// Config controls one Consolidator.
type Config struct {
	// Expansion bounds each individual rule walk.
	Expansion expand.Options

	// WorkerConcurrency is the number of expansions allowed to run at
	// once within one scheduling context.
	WorkerConcurrency int

	// EnableExpansion is the kill switch. When false, recurring masters
	// pass through as single plain events and no rule is walked.
	EnableExpansion bool
}

// DefaultConfig provides sensible defaults for production use.
var DefaultConfig = Config{
	Expansion:         expand.DefaultOptions,
	WorkerConcurrency: 4,
	EnableExpansion:   true,
}

// ReportMap holds the per-master expansion outcome, keyed by master
// UID: the Report when the rule was walked, the error when it was not.
type ReportMap map[string]mo.Result[expand.Report]

// StatusStrings renders the map into human-readable per-rule status
// lines for diagnostics surfaces.
func (m ReportMap) StatusStrings() map[string]string {
	out := make(map[string]string, len(m))
	for uid, res := range m {
		if res.IsError() {
			out[uid] = "error: " + res.Error().Error()
			continue
		}
		rep := res.MustGet()
		if rep.Complete {
			out[uid] = "complete"
		} else {
			out[uid] = fmt.Sprintf("partial (%s)", rep.Stop)
		}
	}
	return out
}

// Result is the outcome of one consolidation run.
type Result struct {
	Events  []event.CalendarEvent
	Reports ReportMap

	// Failed is set when a post-merge pipeline stage errored. Events
	// then holds whatever the failed stage left behind and must not be
	// rendered.
	Failed      bool
	FailedStage string
	Err         error
}

// Consolidator owns the expansion, merge and pipeline machinery for a
// host application. It is safe for concurrent use.
type Consolidator struct {
	cfg      Config
	expander *expand.Expander
	merger   *merge.Merger
	pipe     *pipeline.Pipeline
	pool     *sched.Pool
	logger   *slog.Logger
}

// New creates a Consolidator. A non-positive WorkerConcurrency falls
// back to the default; a nil logger selects slog.Default().
func New(cfg Config, resolver *timezone.Resolver, logger *slog.Logger) *Consolidator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.WorkerConcurrency <= 0 {
		cfg.WorkerConcurrency = DefaultConfig.WorkerConcurrency
	}
	return &Consolidator{
		cfg:      cfg,
		expander: expand.New(cfg.Expansion, logger),
		merger:   merge.New(resolver, logger),
		pipe:     pipeline.New(logger),
		pool:     sched.NewPool(cfg.WorkerConcurrency),
		logger:   logger,
	}
}

// expansionOutcome carries one master's expansion back from its worker
// goroutine.
type expansionOutcome struct {
	masterUID string
	instances []event.CalendarEvent
	report    expand.Report
	err       error
}

// Consolidate expands, merges and post-processes the source events into
// the final list for [windowStart, windowEnd). schedContext names the
// concurrency domain the expansions are throttled within.
//
// A rule that fails to expand never fails the run: the error lands in
// Result.Reports and the master survives as a plain event. Result.Failed
// is set only when a pipeline stage rejects the run itself, such as a
// missing window.
func (c *Consolidator) Consolidate(ctx context.Context, schedContext string, sources []event.CalendarEvent, windowStart, windowEnd time.Time) Result {
	reports := make(ReportMap)
	expanded := make(map[string]struct{})
	var instances []event.CalendarEvent

	if c.cfg.EnableExpansion {
		instances = c.expandAll(ctx, schedContext, sources, windowStart, windowEnd, reports, expanded)
	}

	merged := c.merger.Merge(sources, instances, expanded)

	pc := &pipeline.Context{
		Events:      merged,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
	}
	c.pipe.Run(pc)
	if pc.Failed {
		metrics.IncPipelineFailure(pc.FailedStage)
		return Result{
			Events:      pc.Events,
			Reports:     reports,
			Failed:      true,
			FailedStage: pc.FailedStage,
			Err:         pc.Err,
		}
	}

	metrics.RecordConsolidatedCount(len(pc.Events))
	c.logger.Debug("consolidation complete",
		"sched_context", schedContext,
		"sources", len(sources),
		"instances", len(instances),
		"events", len(pc.Events))
	return Result{Events: pc.Events, Reports: reports}
}

// expandAll fans the recurring masters out over the scheduling pool and
// collects instances, per-master reports and the set of successfully
// expanded UIDs.
func (c *Consolidator) expandAll(ctx context.Context, schedContext string, sources []event.CalendarEvent, windowStart, windowEnd time.Time, reports ReportMap, expanded map[string]struct{}) []event.CalendarEvent {
	var masters []event.CalendarEvent
	for _, ev := range sources {
		if ev.IsRecurring && !ev.IsOverride() {
			masters = append(masters, ev)
		}
	}
	if len(masters) == 0 {
		return nil
	}

	results := make(chan expansionOutcome, len(masters))
	var wg sync.WaitGroup
	for _, master := range masters {
		if master.Recurrence == nil {
			reports[master.ID] = mo.Err[expand.Report](expand.ErrNoRule)
			metrics.IncExpansion("error")
			c.logger.Warn("recurring event carries no rule, keeping master as-is",
				"uid", master.ID)
			continue
		}

		wg.Add(1)
		go func(master event.CalendarEvent) {
			defer wg.Done()
			err := c.pool.Do(ctx, schedContext, func() error {
				insts, rep, err := c.expander.Expand(ctx, master, *master.Recurrence, windowStart, windowEnd)
				if err != nil {
					results <- expansionOutcome{masterUID: master.ID, err: err}
					return nil
				}
				metrics.ObserveExpansionDuration(rep.Elapsed.Seconds())
				results <- expansionOutcome{masterUID: master.ID, instances: insts, report: rep}
				return nil
			})
			if err != nil {
				// Context ended before a slot freed up.
				results <- expansionOutcome{masterUID: master.ID, err: err}
			}
		}(master)
	}
	wg.Wait()
	close(results)

	var instances []event.CalendarEvent
	for out := range results {
		if out.err != nil {
			reports[out.masterUID] = mo.Err[expand.Report](out.err)
			metrics.IncExpansion("error")
			c.logger.Warn("rule expansion failed, keeping master as-is",
				"uid", out.masterUID,
				"err", out.err)
			continue
		}
		reports[out.masterUID] = mo.Ok(out.report)
		expanded[out.masterUID] = struct{}{}
		metrics.IncExpansion(out.report.Outcome())
		instances = append(instances, out.instances...)
	}
	return instances
}

// Shutdown releases the scheduling pool. Call it after in-flight
// consolidations have returned.
func (c *Consolidator) Shutdown() {
	c.pool.Shutdown()
}
