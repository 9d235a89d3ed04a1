// Package lockfile provides cooperative cross-process mutual exclusion via a
// lock file with a staleness timeout and an owner-liveness check.
package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// ErrHeld is returned when a live process already holds the lock.
var ErrHeld = errors.New("lockfile: held by another process")

// DefaultStaleAfter is how old a lock may be before it is treated as stale
// even when the liveness check is inconclusive.
const DefaultStaleAfter = 10 * time.Minute

type owner struct {
	PID        int   `json:"pid"`
	AcquiredAt int64 `json:"acquiredAt"` // unix milliseconds
}

// Lock guards a single lock file. The clock and the liveness check are
// injectable for tests.
type Lock struct {
	path       string
	staleAfter time.Duration
	now        func() time.Time
	alive      func(pid int) bool
	pid        func() int
}

// Option configures a Lock.
type Option func(*Lock)

// WithClock overrides the clock.
func WithClock(now func() time.Time) Option {
	return func(l *Lock) { l.now = now }
}

// WithAliveCheck overrides the owner-liveness check.
func WithAliveCheck(alive func(pid int) bool) Option {
	return func(l *Lock) { l.alive = alive }
}

// WithPID overrides the acquiring process id recorded in the file.
func WithPID(pid func() int) Option {
	return func(l *Lock) { l.pid = pid }
}

// WithStaleAfter overrides the staleness timeout.
func WithStaleAfter(d time.Duration) Option {
	return func(l *Lock) { l.staleAfter = d }
}

// New creates a lock for the given path.
func New(path string, opts ...Option) *Lock {
	l := &Lock{
		path:       path,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
		alive:      processAlive,
		pid:        os.Getpid,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire takes the lock, breaking a stale one (dead owner, or older than the
// staleness timeout). Returns a release func on success, ErrHeld when a live
// process owns it.
func (l *Lock) Acquire() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, fmt.Errorf("lockfile.Lock.Acquire: %w", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		file, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			return l.write(file)
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("lockfile.Lock.Acquire: %w", err)
		}

		stale, err := l.isStale()
		if err != nil {
			return nil, err
		}
		if !stale {
			return nil, fmt.Errorf("lockfile.Lock.Acquire: %s: %w", l.path, ErrHeld)
		}
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("lockfile.Lock.Acquire: break stale: %w", err)
		}
	}

	return nil, fmt.Errorf("lockfile.Lock.Acquire: %s: %w", l.path, ErrHeld)
}

func (l *Lock) write(file *os.File) (func(), error) {
	info := owner{PID: l.pid(), AcquiredAt: l.now().UnixMilli()}
	data, err := json.Marshal(info)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("lockfile.Lock.Acquire: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(l.path)
		return nil, fmt.Errorf("lockfile.Lock.Acquire: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("lockfile.Lock.Acquire: %w", err)
	}

	release := func() { _ = os.Remove(l.path) }
	return release, nil
}

// isStale decides whether the existing lock can be broken: an unreadable or
// malformed file is stale, a dead owner is stale, and any owner is stale once
// the staleness timeout elapses.
func (l *Lock) isStale() (bool, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("lockfile.Lock.Acquire: read owner: %w", err)
	}

	var info owner
	if err := json.Unmarshal(data, &info); err != nil {
		return true, nil
	}

	if !l.alive(info.PID) {
		return true, nil
	}
	age := l.now().Sub(time.UnixMilli(info.AcquiredAt))
	return age > l.staleAfter, nil
}

// processAlive signals the owner with signal 0; a delivery failure is treated
// as a dead owner.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
