package pipeline

import (
	"fmt"
	"strings"

	"voice-agent/internal/models"
)

// Selection says which stages a run executes.
type Selection struct {
	Documents       bool
	FaultPatterns   bool
	Recommendations bool
}

// AllAgents selects every stage.
var AllAgents = Selection{Documents: true, FaultPatterns: true, Recommendations: true}

var agentAliases = map[string]string{
	"document":                  models.AgentDocuments,
	models.AgentDocuments:       models.AgentDocuments,
	"fault":                     models.AgentFaultPatterns,
	models.AgentFaultPatterns:   models.AgentFaultPatterns,
	"recommendation":            models.AgentRecommendations,
	models.AgentRecommendations: models.AgentRecommendations,
}

// ParseAgents turns caller-supplied agent names into a Selection. A nil
// slice selects all agents; an empty non-nil slice, an unknown name or a
// name given twice is rejected.
func ParseAgents(names []string) (Selection, error) {
	if names == nil {
		return AllAgents, nil
	}
	if len(names) == 0 {
		return Selection{}, fmt.Errorf("%w: no agents selected", ErrInvalidAgentSelection)
	}

	var sel Selection
	seen := make(map[string]bool, len(names))
	for _, raw := range names {
		slot, ok := agentAliases[strings.TrimSpace(raw)]
		if !ok {
			return Selection{}, fmt.Errorf("%w: unknown agent %q", ErrInvalidAgentSelection, raw)
		}
		if seen[slot] {
			return Selection{}, fmt.Errorf("%w: agent %q selected twice", ErrInvalidAgentSelection, raw)
		}
		seen[slot] = true

		switch slot {
		case models.AgentDocuments:
			sel.Documents = true
		case models.AgentFaultPatterns:
			sel.FaultPatterns = true
		case models.AgentRecommendations:
			sel.Recommendations = true
		}
	}
	return sel, nil
}

// Slots lists the selected slot names in stage order.
func (s Selection) Slots() []string {
	var slots []string
	if s.Documents {
		slots = append(slots, models.AgentDocuments)
	}
	if s.FaultPatterns {
		slots = append(slots, models.AgentFaultPatterns)
	}
	if s.Recommendations {
		slots = append(slots, models.AgentRecommendations)
	}
	return slots
}
