// internal/workers/voice/multi-agent-search/models.go
package multiagentsearch

import "voice-agent/internal/models"

type Input struct {
	Query  string   `json:"query"`
	Agents []string `json:"agents,omitempty"`
}

type Output struct {
	Results models.AgentBundle `json:"results"`
}
