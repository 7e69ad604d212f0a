// internal/models/intent.go
package models

// Intent is the category of action a transcript requests.
type Intent string

const (
	IntentSearch          Intent = "search"
	IntentNavigate        Intent = "navigation"
	IntentSubmitWorkEntry Intent = "workEntry"
	IntentOpenDocument    Intent = "document"
	IntentUnrecognized    Intent = "unrecognized"
)

func (i Intent) String() string {
	return string(i)
}

// Transcript is one finalized segment of recognized speech.
type Transcript string
