package projection

import "github.com/gosuda/officewatch/internal/diff"

// transitions lists the legal destination states per current state. An event
// whose destination is not listed here for the view's current state is a
// no-op: visual glitches are low-stakes, so invalid transitions are ignored
// rather than treated as errors.
var transitions = map[AgentState][]AgentState{
	StateIdle:       {StateWorking, StateWalking, StateReceiving},
	StateWorking:    {StateIdle, StateDelivering, StateWalking},
	StateWalking:    {StateIdle, StateWorking, StateDelivering},
	StateDelivering: {StateIdle, StateWalking},
	StateReceiving:  {StateWorking, StateIdle},
}

// eventStates maps an event type to its candidate destination state. Event
// types with no entry never move an agent (unmapped event = no-op, by table
// lookup rather than a catch-all default).
var eventStates = map[diff.EventType]AgentState{
	diff.EventReceivedWork:    StateReceiving,
	diff.EventSkillActivated:  StateWorking,
	diff.EventTaskComplete:    StateIdle,
	diff.EventDelivering:      StateDelivering,
	diff.EventHandoffStart:    StateWalking,
	diff.EventHandoffComplete: StateIdle,
	diff.EventAgentFailed:     StateIdle,
}

// CanTransition reports whether from → to is in the legal transition table.
func CanTransition(from, to AgentState) bool {
	for _, dst := range transitions[from] {
		if dst == to {
			return true
		}
	}
	return false
}

// Apply returns the view after applying the event. If the event type has no
// mapped destination, or the transition is illegal from the current state,
// the view is returned unchanged. On a valid transition the active skill,
// highlight flag, and speech bubble are refreshed from the event.
func Apply(view AgentView, event diff.Event) AgentView {
	dst, mapped := eventStates[event.Type]
	if !mapped || !CanTransition(view.State, dst) {
		return view
	}

	view.State = dst
	view.Highlight = true
	if event.Skill != "" {
		view.ActiveSkill = event.Skill
	}
	if event.Message != "" {
		view.SpeechBubble = event.Message
	}
	return view
}
