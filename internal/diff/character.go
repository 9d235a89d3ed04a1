package diff

import "strings"

// Classify derives the display character type for an agent role. Unknown
// roles fall back to the generic worker character.
func Classify(role string) string {
	r := strings.ToLower(role)
	switch {
	case r == "":
		return "worker"
	case strings.Contains(r, "orchestrator"), strings.Contains(r, "lead"), strings.Contains(r, "manager"):
		return "manager"
	case strings.Contains(r, "research"), strings.Contains(r, "analy"):
		return "analyst"
	case strings.Contains(r, "test"), strings.Contains(r, "qa"), strings.Contains(r, "review"):
		return "inspector"
	case strings.Contains(r, "doc"), strings.Contains(r, "write"):
		return "scribe"
	default:
		return "worker"
	}
}
