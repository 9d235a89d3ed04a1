// Package diff computes domain events from two consecutive snapshots of the
// same session. Events describe observed transitions only; the projection is
// always rebuilt from the latest snapshot, never replayed from events.
package diff

import (
	"fmt"
	"time"

	"github.com/gosuda/officewatch/internal/session"
)

// EventType tags a domain event.
type EventType string

const (
	EventReceivedWork    EventType = "received_work"
	EventSkillActivated  EventType = "skill_activated"
	EventTaskComplete    EventType = "task_complete"
	EventDelivering      EventType = "delivering"
	EventHandoffStart    EventType = "handoff_start"
	EventHandoffComplete EventType = "handoff_complete"
	EventSessionComplete EventType = "session_complete"
	EventAgentFailed     EventType = "agent_failed"
	EventSpeaking        EventType = "speaking"
)

// Event is an immutable domain event. Timestamp is wall-clock milliseconds.
// Events carry no identity of their own; with a fixed clock, diffing the same
// snapshot pair twice yields identical lists.
type Event struct {
	Type      EventType `json:"type"`
	AgentID   string    `json:"agentId"`
	TargetID  string    `json:"targetId,omitempty"`
	Skill     string    `json:"skill,omitempty"`
	Message   string    `json:"message"`
	Timestamp int64     `json:"timestamp"`
	Character string    `json:"character,omitempty"`
}

// Engine diffs snapshot pairs. The clock is injectable for deterministic
// timestamps in tests.
type Engine struct {
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's clock.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a diff engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Diff compares prev (nil on first load) against curr and returns the ordered
// event list. Agents are processed in current-snapshot order; within one
// agent, appearance is detected before status comparison. With a fixed clock,
// calling Diff twice with the same inputs yields an identical list.
func (e *Engine) Diff(prev, curr *session.Snapshot) []Event {
	if curr == nil {
		return nil
	}

	var prevByID map[string]session.AgentRecord
	if prev != nil {
		prevByID = prev.AgentsByID()
	}

	var events []Event

	for _, agent := range curr.Agents {
		before, known := prevByID[agent.ID]
		if !known {
			events = append(events, e.newEvent(EventReceivedWork, agent,
				fmt.Sprintf("%s received work", displayRole(agent))))
			// An agent may arrive with skills already injected. No
			// task_complete here even if it arrived terminal: there was no
			// observed transition.
			for _, skill := range agent.Skills {
				events = append(events, e.skillEvent(agent, skill))
			}
			continue
		}

		if before.Status == session.StatusActive && agent.Status == session.StatusCompleted {
			events = append(events, e.newEvent(EventTaskComplete, agent,
				fmt.Sprintf("%s completed their task", displayRole(agent))))
			delivering := e.newEvent(EventDelivering, agent,
				fmt.Sprintf("%s is delivering results", displayRole(agent)))
			delivering.TargetID = agent.ParentID
			events = append(events, delivering)
		}
		if before.Status == session.StatusActive && agent.Status == session.StatusFailed {
			events = append(events, e.newEvent(EventAgentFailed, agent,
				fmt.Sprintf("%s failed", displayRole(agent))))
		}

		// Full-list skill delta: one event per skill not present before,
		// independent of any status change.
		for _, skill := range newSkills(before.Skills, agent.Skills) {
			events = append(events, e.skillEvent(agent, skill))
		}
	}

	if sessionCompleted(prev, curr) {
		done := e.newEvent(EventSessionComplete, session.AgentRecord{ID: curr.ID},
			"all agents finished, session complete")
		done.Character = ""
		events = append(events, done)
	}

	return events
}

// sessionCompleted reports whether this tick observed the session finishing:
// every current agent terminal, at least one agent present, and the previous
// snapshot still had active work.
func sessionCompleted(prev, curr *session.Snapshot) bool {
	if prev == nil || len(curr.Agents) == 0 {
		return false
	}
	if prev.ActiveCount() == 0 {
		return false
	}
	for _, a := range curr.Agents {
		if !a.Status.Terminal() {
			return false
		}
	}
	return true
}

func (e *Engine) newEvent(typ EventType, agent session.AgentRecord, message string) Event {
	return Event{
		Type:      typ,
		AgentID:   agent.ID,
		Message:   message,
		Timestamp: e.now().UnixMilli(),
		Character: Classify(agent.Role),
	}
}

func (e *Engine) skillEvent(agent session.AgentRecord, skill string) Event {
	ev := e.newEvent(EventSkillActivated, agent,
		fmt.Sprintf("%s activated skill %q", displayRole(agent), skill))
	ev.Skill = skill
	return ev
}

// newSkills returns the skills in curr that are absent from prev, preserving
// curr order.
func newSkills(prev, curr []string) []string {
	if len(curr) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(prev))
	for _, s := range prev {
		seen[s] = true
	}
	var added []string
	for _, s := range curr {
		if !seen[s] {
			added = append(added, s)
		}
	}
	return added
}

func displayRole(agent session.AgentRecord) string {
	if agent.Role != "" {
		return agent.Role
	}
	return agent.ID
}
