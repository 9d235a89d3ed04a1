// Package watch polls the session file for modification-time changes and
// feeds consecutive snapshot pairs into the rest of the pipeline.
//
// Polling is deliberate: native filesystem notifications are unreliable
// across the target platforms (Windows in particular), and a short-interval
// poll is simpler and portable.
package watch

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gosuda/officewatch/internal/session"
)

// DefaultInterval is the poll interval.
const DefaultInterval = 200 * time.Millisecond

// SnapshotSink receives consecutive snapshot pairs. prev is nil on the
// initial load.
type SnapshotSink func(prev, curr *session.Snapshot)

// ErrorSink receives non-fatal watcher errors (one report per malformed
// snapshot; polling continues).
type ErrorSink func(error)

// Watcher polls a single session file. Start loads the initial snapshot and
// begins polling; Stop cancels the poll loop and is idempotent.
type Watcher struct {
	path     string
	interval time.Duration
	sink     SnapshotSink
	onError  ErrorSink
	logger   zerolog.Logger

	mu         sync.Mutex
	prev       *session.Snapshot
	lastMod    time.Time
	lastErrMod time.Time
	cancel     context.CancelFunc
	done       chan struct{}
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithInterval overrides the poll interval.
func WithInterval(d time.Duration) Option {
	return func(w *Watcher) { w.interval = d }
}

// WithErrorSink sets the callback for non-fatal parse errors.
func WithErrorSink(fn ErrorSink) Option {
	return func(w *Watcher) { w.onError = fn }
}

// New creates a watcher for the session file at path. sink is invoked for the
// initial snapshot and for every observed change.
func New(path string, sink SnapshotSink, logger zerolog.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		path:     path,
		interval: DefaultInterval,
		sink:     sink,
		onError:  func(error) {},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start loads the initial snapshot and begins polling. It fails if the file
// is absent or unparseable at start; that is fatal for this watcher instance
// and the caller must create a new one.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done != nil {
		return fmt.Errorf("watch.Watcher.Start: already started")
	}

	info, err := os.Stat(w.path)
	if err != nil {
		return fmt.Errorf("watch.Watcher.Start: session file: %w", err)
	}

	snap, err := session.Load(w.path)
	if err != nil {
		return fmt.Errorf("watch.Watcher.Start: %w", err)
	}

	w.prev = snap
	w.lastMod = info.ModTime()

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.loop(ctx)

	w.sink(nil, snap)
	return nil
}

// Stop cancels the poll loop and waits for it to exit. Safe to call multiple
// times and before Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	done := w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

// tick stats the file and, when the modification time advanced, re-reads it
// and hands (prev, curr) to the sink. The file may be mid-write by the
// session owner, so read and parse failures are swallowed for this tick and
// retried on the next.
func (w *Watcher) tick() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.logger.Debug().Err(err).Str("path", w.path).Msg("session file stat failed")
		return
	}

	w.mu.Lock()
	changed := info.ModTime().After(w.lastMod)
	w.mu.Unlock()
	if !changed {
		return
	}

	snap, err := session.Load(w.path)
	if err != nil {
		w.logger.Debug().Err(err).Msg("session file unreadable, retrying next tick")
		// Report each distinct bad revision once; a file mid-write keeps
		// advancing its mtime, so completion is picked up on a later tick.
		w.mu.Lock()
		report := !info.ModTime().Equal(w.lastErrMod)
		w.lastErrMod = info.ModTime()
		w.mu.Unlock()
		if report {
			w.onError(err)
		}
		return
	}

	w.mu.Lock()
	prev := w.prev
	w.prev = snap
	w.lastMod = info.ModTime()
	w.mu.Unlock()

	w.sink(prev, snap)
}
