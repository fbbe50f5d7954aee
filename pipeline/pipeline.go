// Package pipeline applies the fixed post-merge processing stages
// (deduplicate, time-window, sort) to a consolidated event set.
package pipeline

import (
	"log/slog"
	"time"

	"github.com/calyptra/liboccur/event"
)

// Context holds the working event collection of one pipeline
// invocation plus the requested window. It is owned exclusively by that
// invocation and must not be shared across concurrent runs.
type Context struct {
	Events      []event.CalendarEvent
	WindowStart time.Time
	WindowEnd   time.Time

	// Failure state, set by Run when a stage errors.
	Failed      bool
	FailedStage string
	Err         error
}

// Stage is one processing step. Stages mutate the context in place and
// error only on programmer misuse (for example missing window bounds),
// never for normal data.
type Stage interface {
	Name() string
	Run(pc *Context) error
}

// Pipeline is the fixed ordered stage list applied before results reach
// renderers.
type Pipeline struct {
	stages []Stage
	logger *slog.Logger
}

// New assembles the standard pipeline: deduplicate, time-window filter,
// stable sort by start.
func New(logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		stages: []Stage{dedupStage{}, windowStage{}, sortStage{}},
		logger: logger,
	}
}

// Run executes the stages in order. On stage failure it records the
// failure on the context, stops, and leaves the events as the failed
// stage left them; callers inspect Failed before trusting the result.
func (p *Pipeline) Run(pc *Context) {
	for _, stage := range p.stages {
		if err := stage.Run(pc); err != nil {
			pc.Failed = true
			pc.FailedStage = stage.Name()
			pc.Err = err
			p.logger.Error("pipeline stage failed",
				"stage", stage.Name(),
				"err", err)
			return
		}
		p.logger.Debug("pipeline stage complete",
			"stage", stage.Name(),
			"events", len(pc.Events))
	}
}
