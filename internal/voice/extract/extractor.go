// Package extract pulls work-entry fields out of free-text transcripts.
package extract

import (
	"regexp"
	"strings"

	"voice-agent/internal/models"
)

// Rule extracts one field. The value starts after the first keyword match
// and runs up to the earliest stop word or the end of the transcript.
type Rule struct {
	Field     string
	Keywords  []string
	StopWords []string

	anchor *regexp.Regexp
	stop   *regexp.Regexp
}

// fieldKeywords lists the field-introducing words in canonical order.
// Longer phrases come first so "action taken" wins over "action".
var fieldKeywords = []struct {
	field    string
	keywords []string
}{
	{models.FieldTrainset, []string{"trainset"}},
	{models.FieldSystem, []string{"system"}},
	{models.FieldProblem, []string{"problem", "issue"}},
	{models.FieldActionTaken, []string{"action taken", "action", "fixed", "resolved"}},
}

// DefaultRules stops every field at any other field's keyword, so no text is
// captured by two rules.
func DefaultRules() []Rule {
	rules := make([]Rule, 0, len(fieldKeywords))
	for i, fk := range fieldKeywords {
		var stops []string
		for j, other := range fieldKeywords {
			if i != j {
				stops = append(stops, other.keywords...)
			}
		}
		rules = append(rules, Rule{Field: fk.field, Keywords: fk.keywords, StopWords: stops})
	}
	return rules
}

// Result is the outcome of one extraction.
type Result struct {
	Data       models.WorkEntryDraft `json:"data"`
	Missing    []string              `json:"missing"`
	IsComplete bool                  `json:"isComplete"`
}

// Extractor holds compiled rules. It keeps no per-call state.
type Extractor struct {
	rules []Rule
}

func NewExtractor() *Extractor {
	return NewExtractorWithRules(DefaultRules())
}

// NewExtractorWithRules compiles a custom rule list. Rules are evaluated in
// order and missing fields are reported in that order.
func NewExtractorWithRules(rules []Rule) *Extractor {
	compiled := make([]Rule, len(rules))
	for i, r := range rules {
		r.anchor = wordAlternation(r.Keywords)
		if len(r.StopWords) > 0 {
			r.stop = wordAlternation(r.StopWords)
		}
		compiled[i] = r
	}
	return &Extractor{rules: compiled}
}

func wordAlternation(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(w), " ", `\s+`)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// Extract applies every rule to transcript independently.
func (e *Extractor) Extract(transcript string) Result {
	res := Result{Missing: []string{}}
	for _, rule := range e.rules {
		value := rule.apply(transcript)
		if value == "" {
			res.Missing = append(res.Missing, rule.Field)
			continue
		}
		res.Data.Set(rule.Field, value)
	}
	res.IsComplete = len(res.Missing) == 0
	return res
}

func (r Rule) apply(text string) string {
	loc := r.anchor.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[1]:]
	if r.stop != nil {
		if s := r.stop.FindStringIndex(rest); s != nil {
			rest = rest[:s[0]]
		}
	}
	return clean(rest)
}

func clean(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.Trim(s, " ,.;:-")
}
