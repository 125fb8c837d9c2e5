package insight

// conditionRules is evaluated top to bottom; output order follows this table.
var conditionRules = []ConditionRule{
	{
		Keywords:   []string{"fatigue", "tired"},
		Condition:  "Mitochondrial Dysfunction",
		Confidence: 85,
		Reasoning:  "Chronic fatigue patterns suggest cellular energy production issues. Consider ATP synthesis pathways and oxidative stress markers.",
		Evidence: []string{
			"Persistent energy depletion symptoms",
			"Pattern consistent with cellular dysfunction",
			"May correlate with nutrient deficiencies",
		},
	},
	{
		Keywords:   []string{"digestive", "bloating", "gut"},
		Condition:  "Small Intestinal Bacterial Overgrowth (SIBO)",
		Confidence: 78,
		Reasoning:  "GI symptoms pattern indicates potential bacterial imbalance in the small intestine.",
		Evidence: []string{
			"Digestive discomfort patterns",
			"Bloating and gas symptoms",
			"May indicate microbiome dysbiosis",
		},
	},
	{
		Keywords:   []string{"joint", "pain", "inflammation"},
		Condition:  "Systemic Inflammation",
		Confidence: 72,
		Reasoning:  "Pain and joint symptoms suggest underlying inflammatory processes that may affect multiple systems.",
		Evidence: []string{
			"Joint pain and stiffness patterns",
			"Inflammatory marker elevation likely",
			"May involve autoimmune components",
		},
	},
	{
		Keywords:   []string{"hormone", "mood", "sleep"},
		Condition:  "Hormonal Imbalance",
		Confidence: 69,
		Reasoning:  "Sleep and mood disturbances often correlate with hormonal dysregulation affecting multiple endocrine pathways.",
		Evidence: []string{
			"Sleep pattern disruption",
			"Mood regulation challenges",
			"Likely HPA axis involvement",
		},
	},
}

// fallbackRule fires only when nothing in conditionRules does.
var fallbackRule = ConditionRule{
	Condition:  "Functional Imbalance Pattern",
	Confidence: 60,
	Reasoning:  "Symptom constellation suggests multi-system functional medicine approach may be beneficial.",
	Evidence: []string{
		"Multiple symptom presentation",
		"Suggests root cause investigation needed",
		"Functional medicine matrix analysis recommended",
	},
}

// Rules returns a copy of the rule table in evaluation order.
func Rules() []ConditionRule {
	out := make([]ConditionRule, len(conditionRules))
	for i, r := range conditionRules {
		out[i] = r.clone()
	}
	return out
}

func (r ConditionRule) clone() ConditionRule {
	r.Keywords = append([]string(nil), r.Keywords...)
	r.Evidence = append([]string(nil), r.Evidence...)
	return r
}
