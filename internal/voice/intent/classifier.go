// Package intent maps finalized transcripts to command intents with an
// ordered keyword table.
package intent

import (
	"strings"

	"voice-agent/internal/models"
)

// Rule is one row of the classification table. A rule matches when the
// lowercased transcript contains any of its keywords.
type Rule struct {
	Intent   models.Intent
	Keywords []string
}

// DefaultRules is the fixed priority order. First match wins, so "open
// document" classifies as navigation because "open" is checked before the
// document phrases.
var DefaultRules = []Rule{
	{Intent: models.IntentSearch, Keywords: []string{"search", "find"}},
	{Intent: models.IntentNavigate, Keywords: []string{"open", "go to"}},
	{Intent: models.IntentSubmitWorkEntry, Keywords: []string{"submit", "create entry"}},
	{Intent: models.IntentOpenDocument, Keywords: []string{"show document", "open document"}},
}

// Classifier is stateless and safe for concurrent use.
type Classifier struct {
	rules []Rule
}

func NewClassifier() *Classifier {
	return &Classifier{rules: DefaultRules}
}

// NewClassifierWithRules builds a classifier over a custom ordered table.
func NewClassifierWithRules(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Classify returns the intent of the first matching rule, or
// IntentUnrecognized.
func (c *Classifier) Classify(transcript string) models.Intent {
	intent, _ := c.Match(transcript)
	return intent
}

// Match is Classify that also reports which keyword fired.
func (c *Classifier) Match(transcript string) (models.Intent, string) {
	text := strings.ToLower(transcript)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				return rule.Intent, kw
			}
		}
	}
	return models.IntentUnrecognized, ""
}
