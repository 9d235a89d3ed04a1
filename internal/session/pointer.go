package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoActiveSession is returned when no active session pointer can be
// resolved. Fatal for the watcher that requested it.
var ErrNoActiveSession = errors.New("session: no active session")

// Pointer locates the session file for the currently active session. It is
// written by the agent-runner process, not by officewatch.
type Pointer struct {
	SessionID   string `json:"sessionId"`
	ProjectDir  string `json:"projectDir"`
	SessionFile string `json:"sessionFile"`
}

// PointerResolver supplies the active session pointer. Implementations read
// it from the environment or from a well-known pointer file.
type PointerResolver interface {
	Resolve() (*Pointer, error)
}

// EnvResolver resolves the active session pointer from the OFFICE_SESSION_FILE
// environment variable, falling back to a pointer file (by default
// ~/.officewatch/active_session.json).
type EnvResolver struct {
	PointerPath string
}

// DefaultPointerPath returns the well-known pointer file location.
func DefaultPointerPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".officewatch", "active_session.json")
	}
	return filepath.Join(home, ".officewatch", "active_session.json")
}

// Resolve implements PointerResolver.
func (r *EnvResolver) Resolve() (*Pointer, error) {
	if path := os.Getenv("OFFICE_SESSION_FILE"); path != "" {
		return &Pointer{
			SessionFile: path,
			ProjectDir:  filepath.Dir(path),
		}, nil
	}

	pointerPath := r.PointerPath
	if pointerPath == "" {
		pointerPath = DefaultPointerPath()
	}

	data, err := os.ReadFile(pointerPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("session.EnvResolver.Resolve: pointer file %s: %w", pointerPath, ErrNoActiveSession)
		}
		return nil, fmt.Errorf("session.EnvResolver.Resolve: %w", err)
	}

	var ptr Pointer
	if err := json.Unmarshal(data, &ptr); err != nil {
		return nil, fmt.Errorf("session.EnvResolver.Resolve: parse %s: %w", pointerPath, err)
	}

	if ptr.SessionFile == "" {
		if ptr.SessionID == "" || ptr.ProjectDir == "" {
			return nil, fmt.Errorf("session.EnvResolver.Resolve: incomplete pointer: %w", ErrNoActiveSession)
		}
		ptr.SessionFile = filepath.Join(ptr.ProjectDir, ".office", "sessions", ptr.SessionID+".json")
	}

	return &ptr, nil
}
