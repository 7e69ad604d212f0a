// internal/models/work_entry.go
package models

// Work entry field names, in the order they are reported as missing.
const (
	FieldTrainset    = "trainset"
	FieldSystem      = "system"
	FieldProblem     = "problem"
	FieldActionTaken = "action taken"
)

// WorkEntryDraft is a work entry extracted from a voice command. Empty fields
// were not found in the transcript.
type WorkEntryDraft struct {
	Trainset    string `json:"trainset,omitempty"`
	System      string `json:"system,omitempty"`
	Problem     string `json:"problem,omitempty"`
	ActionTaken string `json:"actionTaken,omitempty"`
	Submitted   *bool  `json:"submitted,omitempty"`
}

// Get returns the value held for a field name.
func (d *WorkEntryDraft) Get(field string) string {
	switch field {
	case FieldTrainset:
		return d.Trainset
	case FieldSystem:
		return d.System
	case FieldProblem:
		return d.Problem
	case FieldActionTaken:
		return d.ActionTaken
	}
	return ""
}

// Set stores a value for a field name. Unknown names are ignored.
func (d *WorkEntryDraft) Set(field, value string) {
	switch field {
	case FieldTrainset:
		d.Trainset = value
	case FieldSystem:
		d.System = value
	case FieldProblem:
		d.Problem = value
	case FieldActionTaken:
		d.ActionTaken = value
	}
}

// IsComplete reports whether all four required fields are non-empty.
func (d *WorkEntryDraft) IsComplete() bool {
	return d.Trainset != "" && d.System != "" && d.Problem != "" && d.ActionTaken != ""
}

// WorkEntryStatus mirrors the approval states used by the entry backend.
type WorkEntryStatus string

const (
	StatusPending  WorkEntryStatus = "Pending"
	StatusApproved WorkEntryStatus = "Approved"
	StatusRejected WorkEntryStatus = "Rejected"
)
