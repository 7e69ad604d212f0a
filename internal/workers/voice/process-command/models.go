// internal/workers/voice/process-command/models.go
package processcommand

import "voice-agent/internal/models"

type Input struct {
	Transcript string      `json:"transcript"`
	SessionID  string      `json:"sessionId,omitempty"`
	EmployeeID string      `json:"employeeId,omitempty"`
	Name       string      `json:"name,omitempty"`
	Role       models.Role `json:"role,omitempty"`
}

type Output struct {
	Outcome models.CommandOutcome `json:"outcome"`
}
