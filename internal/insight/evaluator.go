package insight

import "strings"

// Evaluate matches the symptom text against the rule table. Every rule with
// at least one keyword contained in the text (case-insensitive) contributes
// one suggestion, in table order. When none match, the single fallback
// suggestion is returned. The result is never empty.
func Evaluate(profile SymptomProfile) []Suggestion {
	text := strings.ToLower(profile.Symptoms)

	var suggestions []Suggestion
	for _, rule := range conditionRules {
		if rule.matches(text) {
			suggestions = append(suggestions, rule.suggestion(len(suggestions)+1))
		}
	}

	if len(suggestions) == 0 {
		suggestions = append(suggestions, fallbackRule.suggestion(1))
	}
	return suggestions
}

func (r ConditionRule) matches(lowered string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func (r ConditionRule) suggestion(id int) Suggestion {
	return Suggestion{
		ID:         id,
		Condition:  r.Condition,
		Confidence: r.Confidence,
		Reasoning:  r.Reasoning,
		Evidence:   append([]string(nil), r.Evidence...),
	}
}
