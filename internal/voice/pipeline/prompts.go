package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"voice-agent/internal/models"
)

// BuildFaultPrompt frames the raw query for fault-pattern analysis.
func BuildFaultPrompt(query string) string {
	var parts []string

	parts = append(parts, "You are a rolling-stock maintenance analyst who studies recurring fault patterns.")
	parts = append(parts, fmt.Sprintf("\nReported issue: %s", query))

	parts = append(parts, "\nInstructions:")
	parts = append(parts, "- List the common failure modes that match this issue")
	parts = append(parts, "- Give the most likely root causes, most likely first")
	parts = append(parts, "- Name the subsystems that are usually affected")
	parts = append(parts, "- Keep the analysis short and factual")

	parts = append(parts, "\nAnalysis:")

	return strings.Join(parts, "\n")
}

// BuildRecommendationPrompt frames the raw query together with the results
// gathered by earlier stages.
func BuildRecommendationPrompt(query string, bundle models.AgentBundle) string {
	var parts []string

	parts = append(parts, "You are a maintenance advisor for metro trainsets. Recommend what the technician should do next.")
	parts = append(parts, fmt.Sprintf("\nReported issue: %s", query))

	if len(bundle) > 0 {
		contextJSON, _ := json.MarshalIndent(bundle, "", "  ")
		parts = append(parts, "\nFindings so far:")
		parts = append(parts, string(contextJSON))
	}
	if docs, ok := bundle.Documents(); ok && len(docs.Sources) > 0 {
		names := make([]string, 0, len(docs.Sources))
		for _, d := range docs.Sources {
			names = append(names, d.Name)
		}
		parts = append(parts, "\nDocuments to cite: "+strings.Join(names, ", "))
	}

	parts = append(parts, "\nInstructions:")
	parts = append(parts, "- Give ordered, actionable steps")
	parts = append(parts, "- Call out safety precautions before any step that needs them")
	parts = append(parts, "- Cite supporting documents by name when they are available")
	parts = append(parts, "- If the findings are insufficient, say so clearly")

	parts = append(parts, "\nRecommendations:")

	return strings.Join(parts, "\n")
}

// BuildAnswerPrompt asks for an answer grounded only in retrieved documents.
func BuildAnswerPrompt(query string, docs []models.DocumentReference) string {
	var parts []string

	parts = append(parts, "Answer the question using ONLY the documents below.")
	parts = append(parts, fmt.Sprintf("\nQuestion: %s", query))

	parts = append(parts, "\nDocuments:")
	for i, doc := range docs {
		parts = append(parts, fmt.Sprintf("[%d] %s\n%s", i+1, doc.Name, doc.Snippet))
	}

	parts = append(parts, "\nInstructions:")
	parts = append(parts, "- Mention which document each fact comes from")
	parts = append(parts, "- If the documents do not answer the question, say so")

	parts = append(parts, "\nAnswer:")

	return strings.Join(parts, "\n")
}
