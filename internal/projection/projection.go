// Package projection derives the viewer-facing office state from raw session
// snapshots and owns the agent-view state machine.
package projection

// AgentState is the display state of a single agent in the office view.
type AgentState string

const (
	StateIdle       AgentState = "idle"
	StateWorking    AgentState = "working"
	StateWalking    AgentState = "walking"
	StateDelivering AgentState = "delivering"
	StateReceiving  AgentState = "receiving"
)

// AgentView is the view-optimized state of one agent. Views are pure
// derivations of the latest snapshot; they are created when an id is first
// observed and live until the owning projection is discarded.
type AgentView struct {
	ID           string     `json:"id"`
	Role         string     `json:"role"`
	State        AgentState `json:"state"`
	ActiveSkill  string     `json:"activeSkill,omitempty"`
	Progress     int        `json:"progress"`
	SpeechBubble string     `json:"speechBubble,omitempty"`
	Highlight    bool       `json:"highlight"`
	SessionID    string     `json:"sessionId"`
	ParentID     string     `json:"parentId,omitempty"`
	Character    string     `json:"character,omitempty"`
}

// InboxItem summarizes one delivered result. Generated exactly once per agent
// transition into completed.
type InboxItem struct {
	ID          string `json:"id"`
	AgentID     string `json:"agentId"`
	Role        string `json:"role"`
	Preview     string `json:"preview"`
	TokensIn    int64  `json:"tokensIn,omitempty"`
	TokensOut   int64  `json:"tokensOut,omitempty"`
	DeliveredAt int64  `json:"deliveredAt"`
}

// Document is a project document surfaced in the dashboard, supplied by the
// document-scanner collaborator.
type Document struct {
	Name       string `json:"name"`
	Path       string `json:"path"`
	ModifiedAt int64  `json:"modifiedAt"`
}

// Office is the full projection published by the event bus. It is replaced
// wholesale on every update; nothing outside the bus mutates a published
// projection.
type Office struct {
	SessionID    string
	ActivePlan   string
	Orchestrator *AgentView
	Agents       map[string]*AgentView
	Notification string
	Inbox        []InboxItem
	Documents    []Document
}

// Clone returns a deep copy of the projection. The bus hands clones to
// subscribers so a published projection is never observed half-updated.
func (o *Office) Clone() *Office {
	if o == nil {
		return nil
	}
	cp := &Office{
		SessionID:    o.SessionID,
		ActivePlan:   o.ActivePlan,
		Notification: o.Notification,
		Agents:       make(map[string]*AgentView, len(o.Agents)),
	}
	if o.Orchestrator != nil {
		orch := *o.Orchestrator
		cp.Orchestrator = &orch
	}
	for id, v := range o.Agents {
		view := *v
		cp.Agents[id] = &view
	}
	cp.Inbox = append([]InboxItem(nil), o.Inbox...)
	cp.Documents = append([]Document(nil), o.Documents...)
	return cp
}
