package ws

import (
	"encoding/json"
	"sort"

	"github.com/gosuda/officewatch/internal/diff"
	"github.com/gosuda/officewatch/internal/projection"
)

// Frame types exchanged over the socket, all JSON text frames.
const (
	FrameState  = "state"
	FrameEvent  = "event"
	FramePing   = "ping"
	FramePong   = "pong"
	FrameReplay = "replay"
)

// Frame is the server→client envelope.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// ClientFrame is the client→server envelope.
type ClientFrame struct {
	Type          string `json:"type"`
	FromTimestamp int64  `json:"fromTimestamp,omitempty"`
}

// AgentEntry is one key/value pair of the projection's agent collection. The
// wire format has no native map type, so the in-memory map is flattened to an
// explicit list at this boundary only.
type AgentEntry struct {
	ID    string                `json:"id"`
	Agent *projection.AgentView `json:"agent"`
}

// Projection is the wire form of the office projection.
type Projection struct {
	SessionID    string                 `json:"sessionId"`
	ActivePlan   string                 `json:"activePlan,omitempty"`
	Orchestrator *projection.AgentView  `json:"orchestrator,omitempty"`
	Agents       []AgentEntry           `json:"agents"`
	Notification string                 `json:"notification,omitempty"`
	Inbox        []projection.InboxItem `json:"inbox"`
	Documents    []projection.Document  `json:"documents"`
}

// FromOffice converts the in-memory projection to its wire form. Agents are
// sorted by id so serialization is deterministic.
func FromOffice(o *projection.Office) *Projection {
	if o == nil {
		return &Projection{
			Agents:    []AgentEntry{},
			Inbox:     []projection.InboxItem{},
			Documents: []projection.Document{},
		}
	}

	agents := make([]AgentEntry, 0, len(o.Agents))
	for id, view := range o.Agents {
		agents = append(agents, AgentEntry{ID: id, Agent: view})
	}
	sort.Slice(agents, func(i, j int) bool { return agents[i].ID < agents[j].ID })

	inbox := o.Inbox
	if inbox == nil {
		inbox = []projection.InboxItem{}
	}
	documents := o.Documents
	if documents == nil {
		documents = []projection.Document{}
	}

	return &Projection{
		SessionID:    o.SessionID,
		ActivePlan:   o.ActivePlan,
		Orchestrator: o.Orchestrator,
		Agents:       agents,
		Notification: o.Notification,
		Inbox:        inbox,
		Documents:    documents,
	}
}

func marshalFrame(typ string, data any) ([]byte, error) {
	return json.Marshal(Frame{Type: typ, Data: data})
}

func stateFrame(o *projection.Office) ([]byte, error) {
	return marshalFrame(FrameState, FromOffice(o))
}

func eventFrame(e diff.Event) ([]byte, error) {
	return marshalFrame(FrameEvent, e)
}
