// Package session defines the on-disk session snapshot format produced by
// the agent-runner processes, and the pointer machinery used to locate the
// active session file. officewatch is a read-only observer of this data.
package session

import (
	"encoding/json"
	"fmt"
	"os"
)

// Status is the lifecycle status of an agent record.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status is a final state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// AgentRecord is a single agent row inside a session snapshot. Every field
// except ID may be absent in the file; zero values stand in for missing data.
type AgentRecord struct {
	ID        string   `json:"id"`
	ParentID  string   `json:"parentId,omitempty"` // empty = root/orchestrator
	Role      string   `json:"role,omitempty"`
	Status    Status   `json:"status,omitempty"`
	Skills    []string `json:"skills,omitempty"`
	Prompt    string   `json:"prompt,omitempty"`
	TokensIn  int64    `json:"tokensIn,omitempty"`
	TokensOut int64    `json:"tokensOut,omitempty"`
	StartedAt int64    `json:"startedAt,omitempty"` // unix milliseconds
	EndedAt   int64    `json:"endedAt,omitempty"`   // unix milliseconds
}

// Snapshot is one point-in-time read of the session file.
type Snapshot struct {
	ID         string        `json:"id"`
	ProjectDir string        `json:"projectDir,omitempty"`
	ActivePlan string        `json:"activePlan,omitempty"`
	AppName    string        `json:"appName,omitempty"`
	Agents     []AgentRecord `json:"agents"`
}

// Load reads and parses a session snapshot from path.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("session.Load: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("session.Load: parse %s: %w", path, err)
	}

	return &snap, nil
}

// AgentsByID builds a lookup of agent records keyed by id.
func (s *Snapshot) AgentsByID() map[string]AgentRecord {
	byID := make(map[string]AgentRecord, len(s.Agents))
	for _, a := range s.Agents {
		byID[a.ID] = a
	}
	return byID
}

// ActiveCount returns the number of agents still in StatusActive.
func (s *Snapshot) ActiveCount() int {
	n := 0
	for _, a := range s.Agents {
		if a.Status == StatusActive {
			n++
		}
	}
	return n
}
