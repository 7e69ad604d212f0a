// internal/models/outcome.go
package models

// CommandOutcome is the single structured result produced for a transcript.
type CommandOutcome struct {
	CommandID string      `json:"commandId,omitempty"`
	Success   bool        `json:"success"`
	Type      Intent      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Route     string      `json:"route,omitempty"`
	Missing   []string    `json:"missing,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// OpenedDocument is the data of a successful document outcome.
type OpenedDocument struct {
	Document DocumentReference `json:"document"`
}
