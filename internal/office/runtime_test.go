package office_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/officewatch/internal/bus"
	"github.com/gosuda/officewatch/internal/diff"
	"github.com/gosuda/officewatch/internal/docs"
	"github.com/gosuda/officewatch/internal/office"
	"github.com/gosuda/officewatch/internal/projection"
)

type recorder struct {
	mu     sync.Mutex
	states []*projection.Office
	events []diff.Event

	// captured inside the event callback to check publish ordering
	stateAtEvent []*projection.Office
}

func (r *recorder) subscribe(b *bus.Bus) {
	b.OnStateChange(func(o *projection.Office) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.states = append(r.states, o)
	})
	b.OnEvent(func(e diff.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
		r.stateAtEvent = append(r.stateAtEvent, b.State())
	})
}

func (r *recorder) eventTypes() []diff.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]diff.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}

func (r *recorder) lastState() *projection.Office {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return nil
	}
	return r.states[len(r.states)-1]
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	now := time.Now()
	require.NoError(t, os.Chtimes(path, now, now.Add(10*time.Millisecond)))
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestRuntimePipeline(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(project, "docs"), 0o755))
	writeFile(t, filepath.Join(project, "docs", "plan.md"), "# plan")

	sessionFile := filepath.Join(project, "session.json")
	writeFile(t, sessionFile, `{"id":"s1","agents":[
		{"id":"orch","role":"orchestrator","status":"active"},
		{"id":"a1","parentId":"orch","role":"engineer","status":"active","skills":["refactor"]}
	]}`)

	b := bus.New(zerolog.Nop())
	defer b.Dispose()

	rec := &recorder{}
	rec.subscribe(b)

	rt := office.NewRuntime(office.Config{
		SessionFile:  sessionFile,
		ProjectDir:   project,
		PollInterval: 10 * time.Millisecond,
		Scanner:      &docs.FSScanner{},
	}, b, zerolog.Nop())

	require.NoError(t, rt.Start(context.Background()))
	defer rt.Stop()

	// Initial load: state first, then the first-load events.
	waitFor(t, func() bool { return len(rec.eventTypes()) >= 3 })

	state := rec.lastState()
	require.NotNil(t, state)
	assert.Equal(t, "s1", state.SessionID)
	require.NotNil(t, state.Orchestrator)
	assert.Contains(t, state.Agents, "a1")
	require.Len(t, state.Documents, 1)
	assert.Equal(t, "plan.md", state.Documents[0].Name)

	// Every event consumer must observe a bus state that already reflects the
	// tick the event came from.
	rec.mu.Lock()
	for i, s := range rec.stateAtEvent {
		require.NotNil(t, s, "event %d delivered before any state", i)
		assert.Equal(t, "s1", s.SessionID)
	}
	rec.mu.Unlock()

	// Finish the session.
	writeFile(t, sessionFile, `{"id":"s1","agents":[
		{"id":"orch","role":"orchestrator","status":"completed"},
		{"id":"a1","parentId":"orch","role":"engineer","status":"completed","skills":["refactor"]}
	]}`)

	waitFor(t, func() bool {
		for _, typ := range rec.eventTypes() {
			if typ == diff.EventSessionComplete {
				return true
			}
		}
		return false
	})

	final := rec.lastState()
	require.NotNil(t, final)
	assert.NotEmpty(t, final.Notification, "session completion must surface as a notification")
	assert.Equal(t, 100, final.Agents["a1"].Progress)
}

func TestRuntimeStartMissingFile(t *testing.T) {
	t.Parallel()

	b := bus.New(zerolog.Nop())
	defer b.Dispose()

	rt := office.NewRuntime(office.Config{
		SessionFile: filepath.Join(t.TempDir(), "absent.json"),
	}, b, zerolog.Nop())

	require.Error(t, rt.Start(context.Background()))
	rt.Stop()
}
