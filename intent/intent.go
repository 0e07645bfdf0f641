package intent

import (
	"regexp"
	"strings"
)

type Intent string

const (
	Definition Intent = "definition"
	Derivation Intent = "derivation"
	Numerical  Intent = "numerical"
	Conceptual Intent = "conceptual"
)

var (
	definitionRe = regexp.MustCompile(`(?i)\bdefine|what is\b`)
	derivationRe = regexp.MustCompile(`(?i)\bderive|prove|show that|deduce\b`)
	numericalRe  = regexp.MustCompile(`(?i)\bcalculate|find|compute|evaluate|numerical|value\b`)
	quantityRe   = regexp.MustCompile(`(?i)[0-9].*\b(m|kg|s|mol|n|j|pa|m/s|hz|c|v)\b`)
	conceptualRe = regexp.MustCompile(`(?i)\bexplain|why|how|concept\b`)
)

var rules = []struct {
	intent   Intent
	patterns []*regexp.Regexp
}{
	{Definition, []*regexp.Regexp{definitionRe}},
	{Derivation, []*regexp.Regexp{derivationRe}},
	{Numerical, []*regexp.Regexp{numericalRe, quantityRe}},
	{Conceptual, []*regexp.Regexp{conceptualRe}},
}

// Classify labels a question. Rules are tried in order and the first match
// wins, so definition > derivation > numerical > conceptual.
func Classify(text string) Intent {
	for _, rule := range rules {
		for _, re := range rule.patterns {
			if re.MatchString(text) {
				return rule.intent
			}
		}
	}

	return Conceptual
}

func (i Intent) Valid() bool {
	switch i {
	case Definition, Derivation, Numerical, Conceptual:
		return true
	default:
		return false
	}
}

var summaryPhrases = []string{
	"what does this pdf contain",
	"what is this pdf about",
	"summarize this pdf",
	"summary of this pdf",
	"what topics are covered",
}

// IsSummaryQuery reports whether the question asks for an overview of the
// indexed material rather than about its content.
func IsSummaryQuery(text string) bool {
	t := strings.ToLower(text)
	for _, phrase := range summaryPhrases {
		if strings.Contains(t, phrase) {
			return true
		}
	}

	return false
}
