// internal/models/search.go
package models

// Agent slot names of an AgentBundle.
const (
	AgentDocuments       = "documents"
	AgentFaultPatterns   = "faultPatterns"
	AgentRecommendations = "recommendations"
)

// FallbackAnswer is used when retrieval returns sources but no answer text.
const FallbackAnswer = "No direct answer generated, please check related documents."

// DocumentReference points at one document returned by retrieval.
type DocumentReference struct {
	ID      string `json:"id,omitempty"`
	Name    string `json:"name"`
	Snippet string `json:"snippet,omitempty"`
	URL     string `json:"url,omitempty"`
}

// SearchResult is the output of the document retrieval stage.
type SearchResult struct {
	Answer  string              `json:"answer"`
	Sources []DocumentReference `json:"sources"`
}

// AgentResult is the tagged outcome of one pipeline stage. Exactly one of
// Data or Error is meaningful, selected by Success.
type AgentResult struct {
	Success    bool        `json:"success"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	DurationMs int64       `json:"durationMs"`
}

// Ok builds a successful slot result.
func Ok(data interface{}) AgentResult {
	return AgentResult{Success: true, Data: data}
}

// Err builds a failed slot result.
func Err(err error) AgentResult {
	return AgentResult{Success: false, Error: err.Error()}
}

// AgentBundle maps an agent slot name to that stage's result.
type AgentBundle map[string]AgentResult

// Documents returns the search result of the documents slot, if it succeeded.
func (b AgentBundle) Documents() (*SearchResult, bool) {
	res, ok := b[AgentDocuments]
	if !ok || !res.Success {
		return nil, false
	}
	sr, ok := res.Data.(*SearchResult)
	return sr, ok
}

// PipelineResult is the overall multi-agent search result.
type PipelineResult struct {
	Success bool        `json:"success"`
	Results AgentBundle `json:"results,omitempty"`
	Error   string      `json:"error,omitempty"`
}
