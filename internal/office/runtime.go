// Package office wires the watcher, diff engine, projection mapper, and
// event bus into the live pipeline.
package office

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/gosuda/officewatch/internal/bus"
	"github.com/gosuda/officewatch/internal/diff"
	"github.com/gosuda/officewatch/internal/docs"
	"github.com/gosuda/officewatch/internal/projection"
	"github.com/gosuda/officewatch/internal/session"
	"github.com/gosuda/officewatch/internal/watch"
)

// Runtime drives snapshots from the watcher through diffing and mapping into
// the bus. Per file-change tick, the projection is always published before
// the tick's events are emitted, so an event consumer can assume the bus
// state already reflects the event.
type Runtime struct {
	bus     *bus.Bus
	engine  *diff.Engine
	mapper  *projection.Mapper
	scanner docs.Scanner
	watcher *watch.Watcher
	logger  zerolog.Logger

	projectDir string
}

// Config configures a Runtime.
type Config struct {
	SessionFile  string
	ProjectDir   string
	PollInterval time.Duration
	Scanner      docs.Scanner // nil disables document scanning
}

// NewRuntime creates the pipeline around an existing bus.
func NewRuntime(cfg Config, b *bus.Bus, logger zerolog.Logger) *Runtime {
	r := &Runtime{
		bus:        b,
		engine:     diff.NewEngine(),
		mapper:     projection.NewMapper(),
		scanner:    cfg.Scanner,
		logger:     logger,
		projectDir: cfg.ProjectDir,
	}

	opts := []watch.Option{
		watch.WithErrorSink(func(err error) {
			logger.Warn().Err(err).Msg("malformed session snapshot")
		}),
	}
	if cfg.PollInterval > 0 {
		opts = append(opts, watch.WithInterval(cfg.PollInterval))
	}
	r.watcher = watch.New(cfg.SessionFile, r.handle, logger, opts...)
	return r
}

// Start begins watching. Fails when the session file is absent.
func (r *Runtime) Start(ctx context.Context) error {
	if err := r.watcher.Start(ctx); err != nil {
		return fmt.Errorf("office.Runtime.Start: %w", err)
	}
	return nil
}

// Stop halts the watcher. Idempotent.
func (r *Runtime) Stop() {
	r.watcher.Stop()
}

// handle is the watcher sink: diff, map, animate, publish, then emit.
func (r *Runtime) handle(prev, curr *session.Snapshot) {
	events := r.engine.Diff(prev, curr)

	var documents []projection.Document
	if r.scanner != nil {
		var err error
		documents, err = r.scanner.Scan(r.projectDir)
		if err != nil {
			r.logger.Warn().Err(err).Msg("document scan failed")
		}
	}

	office := r.mapper.Map(curr, documents)

	// Run the tick's events through the state machine so the published
	// projection already reflects them.
	for _, event := range events {
		if event.Type == diff.EventSessionComplete {
			office.Notification = event.Message
			continue
		}
		if view, ok := office.Agents[event.AgentID]; ok {
			next := projection.Apply(*view, event)
			office.Agents[event.AgentID] = &next
		} else if office.Orchestrator != nil && office.Orchestrator.ID == event.AgentID {
			next := projection.Apply(*office.Orchestrator, event)
			office.Orchestrator = &next
		}
	}

	r.bus.SetState(office)
	for _, event := range events {
		r.bus.Emit(event)
	}
}
