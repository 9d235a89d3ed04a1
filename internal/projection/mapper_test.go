package projection_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/officewatch/internal/projection"
	"github.com/gosuda/officewatch/internal/session"
)

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func TestMapOrchestratorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		agent session.AgentRecord
		want  bool
	}{
		{name: "root role", agent: session.AgentRecord{ID: "x", Role: "orchestrator", ParentID: "p"}, want: true},
		{name: "root role case-insensitive", agent: session.AgentRecord{ID: "x", Role: "Orchestrator", ParentID: "p"}, want: true},
		{name: "empty parent id", agent: session.AgentRecord{ID: "x", Role: "engineer"}, want: true},
		{name: "id equals session id", agent: session.AgentRecord{ID: "s1", Role: "engineer", ParentID: "p"}, want: true},
		{name: "plain sub-agent", agent: session.AgentRecord{ID: "x", Role: "engineer", ParentID: "p"}, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, projection.IsOrchestrator(tc.agent, "s1"))
		})
	}
}

func TestMapProgress(t *testing.T) {
	t.Parallel()

	now := int64(1_700_000_000_000)

	tests := []struct {
		name  string
		agent session.AgentRecord
		want  int
	}{
		{name: "completed is 100", agent: session.AgentRecord{ID: "a", ParentID: "p", Status: session.StatusCompleted}, want: 100},
		{name: "failed is 0", agent: session.AgentRecord{ID: "a", ParentID: "p", Status: session.StatusFailed}, want: 0},
		{name: "no start time is 0", agent: session.AgentRecord{ID: "a", ParentID: "p", Status: session.StatusActive}, want: 0},
		{
			name:  "halfway through assumed duration",
			agent: session.AgentRecord{ID: "a", ParentID: "p", Status: session.StatusActive, StartedAt: now - 60_000},
			want:  50,
		},
		{
			name:  "clamped at 100",
			agent: session.AgentRecord{ID: "a", ParentID: "p", Status: session.StatusActive, StartedAt: now - 600_000},
			want:  100,
		},
		{
			name:  "future start clamps to 0",
			agent: session.AgentRecord{ID: "a", ParentID: "p", Status: session.StatusActive, StartedAt: now + 60_000},
			want:  0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			mapper := projection.NewMapper(projection.WithClock(fixedClock(now)))

			office := mapper.Map(&session.Snapshot{ID: "s1", Agents: []session.AgentRecord{tc.agent}}, nil)

			view, ok := office.Agents[tc.agent.ID]
			require.True(t, ok)
			assert.Equal(t, tc.want, view.Progress)
		})
	}
}

func TestMapInboxIdempotent(t *testing.T) {
	t.Parallel()
	mapper := projection.NewMapper(projection.WithClock(fixedClock(1_700_000_000_000)))

	snap := &session.Snapshot{ID: "s1", Agents: []session.AgentRecord{
		{ID: "orch", Role: "orchestrator", Status: session.StatusActive},
		{ID: "a1", ParentID: "orch", Role: "engineer", Status: session.StatusCompleted,
			Prompt: strings.Repeat("x", 150), TokensIn: 1200, TokensOut: 900, EndedAt: 42},
	}}

	first := mapper.Map(snap, nil)
	second := mapper.Map(snap, nil)

	require.Len(t, first.Inbox, 1)
	require.Len(t, second.Inbox, 1, "re-mapping the same snapshot must not double inbox entries")

	item := second.Inbox[0]
	assert.Equal(t, "a1", item.AgentID)
	assert.Len(t, item.Preview, 100)
	assert.Equal(t, int64(1200), item.TokensIn)
	assert.Equal(t, int64(900), item.TokensOut)
	assert.Equal(t, int64(42), item.DeliveredAt)
}

func TestMapOrchestratorExcludedFromAgents(t *testing.T) {
	t.Parallel()
	mapper := projection.NewMapper()

	office := mapper.Map(&session.Snapshot{ID: "s1", ActivePlan: "plan-a", Agents: []session.AgentRecord{
		{ID: "orch", Role: "orchestrator", Status: session.StatusActive},
		{ID: "a1", ParentID: "orch", Role: "engineer", Status: session.StatusActive},
	}}, nil)

	require.NotNil(t, office.Orchestrator)
	assert.Equal(t, "orch", office.Orchestrator.ID)
	assert.NotContains(t, office.Agents, "orch")
	assert.Contains(t, office.Agents, "a1")
	assert.Equal(t, "plan-a", office.ActivePlan)
	assert.Equal(t, "s1", office.SessionID)
}

func TestMapOrchestratorConflict(t *testing.T) {
	t.Parallel()
	mapper := projection.NewMapper()

	// Two records both satisfy an orchestrator heuristic: the first by empty
	// parent id, the second by id equal to the session id. The first wins and
	// the second stays a regular agent; neither view may be dropped.
	office := mapper.Map(&session.Snapshot{ID: "s1", Agents: []session.AgentRecord{
		{ID: "orch", Role: "engineer", Status: session.StatusActive},
		{ID: "s1", ParentID: "orch", Role: "engineer", Status: session.StatusActive},
	}}, nil)

	require.NotNil(t, office.Orchestrator)
	assert.Equal(t, "orch", office.Orchestrator.ID)
	assert.Contains(t, office.Agents, "s1")
	assert.NotContains(t, office.Agents, "orch")
}

func TestMapPartialRecords(t *testing.T) {
	t.Parallel()
	mapper := projection.NewMapper()

	// Records with almost everything missing must map without panicking.
	office := mapper.Map(&session.Snapshot{ID: "s1", Agents: []session.AgentRecord{
		{ID: "bare", ParentID: "p"},
		{},
	}}, nil)

	require.Contains(t, office.Agents, "bare")
	assert.Equal(t, projection.StateIdle, office.Agents["bare"].State)
}

func TestMapNilSnapshot(t *testing.T) {
	t.Parallel()
	mapper := projection.NewMapper()

	office := mapper.Map(nil, nil)

	require.NotNil(t, office)
	assert.Empty(t, office.Agents)
}

func TestMapBaseStates(t *testing.T) {
	t.Parallel()
	mapper := projection.NewMapper()

	snap := &session.Snapshot{ID: "s1", Agents: []session.AgentRecord{
		{ID: "a1", ParentID: "p", Status: session.StatusActive},
	}}

	first := mapper.Map(snap, nil)
	assert.Equal(t, projection.StateIdle, first.Agents["a1"].State,
		"first observation starts idle; events animate it from there")

	second := mapper.Map(snap, nil)
	assert.Equal(t, projection.StateWorking, second.Agents["a1"].State)
}

func TestCloneIsolation(t *testing.T) {
	t.Parallel()
	mapper := projection.NewMapper()

	office := mapper.Map(&session.Snapshot{ID: "s1", Agents: []session.AgentRecord{
		{ID: "a1", ParentID: "p", Status: session.StatusActive},
	}}, []projection.Document{{Name: "plan.md"}})

	clone := office.Clone()
	clone.Agents["a1"].Progress = 99
	clone.Documents[0].Name = "other.md"

	assert.NotEqual(t, 99, office.Agents["a1"].Progress)
	assert.Equal(t, "plan.md", office.Documents[0].Name)
}
