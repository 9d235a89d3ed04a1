package projection

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/officewatch/internal/diff"
	"github.com/gosuda/officewatch/internal/session"
)

const (
	// assumedTaskDuration drives progress estimation for active agents that
	// report no explicit progress: linear from StartedAt, clamped to [0,100].
	assumedTaskDuration = 120 * time.Second

	// promptPreviewLen is the inbox preview length in characters.
	promptPreviewLen = 100

	rootRole = "orchestrator"
)

// Mapper converts session snapshots into office projections. It remembers
// which agents already delivered to the inbox and which agent ids it has seen,
// so re-mapping the same snapshot is idempotent.
type Mapper struct {
	now       func() time.Time
	seen      map[string]bool
	delivered map[string]bool
	inbox     []InboxItem
}

// MapperOption configures a Mapper.
type MapperOption func(*Mapper)

// WithClock overrides the mapper's clock.
func WithClock(now func() time.Time) MapperOption {
	return func(m *Mapper) { m.now = now }
}

// NewMapper creates a Mapper.
func NewMapper(opts ...MapperOption) *Mapper {
	m := &Mapper{
		now:       time.Now,
		seen:      make(map[string]bool),
		delivered: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Map derives an office projection from a snapshot, merging in the document
// list from the scanner collaborator. It never panics on partially-populated
// records; missing fields degrade to zero values.
func (m *Mapper) Map(snap *session.Snapshot, documents []Document) *Office {
	office := &Office{
		Agents:    make(map[string]*AgentView),
		Documents: documents,
	}
	if snap == nil {
		office.Inbox = append([]InboxItem(nil), m.inbox...)
		return office
	}

	office.SessionID = snap.ID
	office.ActivePlan = snap.ActivePlan

	for _, agent := range snap.Agents {
		if agent.ID == "" {
			continue
		}

		firstSeen := !m.seen[agent.ID]
		m.seen[agent.ID] = true

		view := &AgentView{
			ID:        agent.ID,
			Role:      agent.Role,
			State:     baseState(agent, firstSeen),
			Progress:  m.progressFor(agent),
			SessionID: snap.ID,
			ParentID:  agent.ParentID,
			Character: diff.Classify(agent.Role),
		}
		if len(agent.Skills) > 0 && agent.Status == session.StatusActive {
			view.ActiveSkill = agent.Skills[len(agent.Skills)-1]
		}

		// First matching record wins; later records that also satisfy an
		// orchestrator heuristic stay in the regular agent map so no view is
		// ever dropped.
		if office.Orchestrator == nil && IsOrchestrator(agent, snap.ID) {
			office.Orchestrator = view
			continue
		}
		office.Agents[agent.ID] = view

		if agent.Status == session.StatusCompleted && !m.delivered[agent.ID] {
			m.delivered[agent.ID] = true
			m.inbox = append(m.inbox, m.inboxItem(agent))
		}
	}

	office.Inbox = append([]InboxItem(nil), m.inbox...)
	return office
}

// IsOrchestrator classifies an agent record as the session root. Three
// independent signals, any one suffices: the root role label, an empty parent
// id, or an id equal to the session id.
func IsOrchestrator(agent session.AgentRecord, sessionID string) bool {
	if strings.EqualFold(agent.Role, rootRole) {
		return true
	}
	if agent.ParentID == "" {
		return true
	}
	return sessionID != "" && agent.ID == sessionID
}

func baseState(agent session.AgentRecord, firstSeen bool) AgentState {
	switch agent.Status {
	case session.StatusCompleted, session.StatusFailed:
		return StateIdle
	case session.StatusActive:
		if firstSeen {
			return StateIdle
		}
		return StateWorking
	default:
		return StateIdle
	}
}

func (m *Mapper) progressFor(agent session.AgentRecord) int {
	switch agent.Status {
	case session.StatusCompleted:
		return 100
	case session.StatusFailed:
		return 0
	}
	if agent.StartedAt <= 0 {
		return 0
	}
	elapsed := m.now().UnixMilli() - agent.StartedAt
	if elapsed <= 0 {
		return 0
	}
	pct := int(elapsed * 100 / assumedTaskDuration.Milliseconds())
	if pct > 100 {
		pct = 100
	}
	return pct
}

func (m *Mapper) inboxItem(agent session.AgentRecord) InboxItem {
	preview := agent.Prompt
	if runes := []rune(preview); len(runes) > promptPreviewLen {
		preview = string(runes[:promptPreviewLen])
	}
	deliveredAt := agent.EndedAt
	if deliveredAt == 0 {
		deliveredAt = m.now().UnixMilli()
	}
	return InboxItem{
		ID:          uuid.NewString(),
		AgentID:     agent.ID,
		Role:        agent.Role,
		Preview:     preview,
		TokensIn:    agent.TokensIn,
		TokensOut:   agent.TokensOut,
		DeliveredAt: deliveredAt,
	}
}
