package insight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conditions(s []Suggestion) []string {
	out := make([]string, len(s))
	for i, sg := range s {
		out[i] = sg.Condition
	}
	return out
}

func TestEvaluate_FatigueAnyCase(t *testing.T) {
	for _, text := range []string{"fatigue", "Constant FATIGUE after meals", "always Tired", "tiredness"} {
		t.Run(text, func(t *testing.T) {
			got := Evaluate(SymptomProfile{Symptoms: text})
			require.NotEmpty(t, got)
			assert.Equal(t, "Mitochondrial Dysfunction", got[0].Condition)
			assert.Equal(t, 85, got[0].Confidence)
		})
	}
}

func TestEvaluate_NoMatchFallsBack(t *testing.T) {
	for _, text := range []string{"", "   ", "occasional headaches", "rash on left arm"} {
		got := Evaluate(SymptomProfile{Symptoms: text})
		require.Len(t, got, 1)
		assert.Equal(t, 1, got[0].ID)
		assert.Equal(t, "Functional Imbalance Pattern", got[0].Condition)
		assert.Equal(t, 60, got[0].Confidence)
	}
}

func TestEvaluate_MultipleRulesInTableOrder(t *testing.T) {
	got := Evaluate(SymptomProfile{Symptoms: "Poor SLEEP, bloating after dinner and fatigue"})

	assert.Equal(t, []string{
		"Mitochondrial Dysfunction",
		"Small Intestinal Bacterial Overgrowth (SIBO)",
		"Hormonal Imbalance",
	}, conditions(got))
	assert.Equal(t, []int{85, 78, 69}, []int{got[0].Confidence, got[1].Confidence, got[2].Confidence})
}

func TestEvaluate_IDsDensePerCall(t *testing.T) {
	first := Evaluate(SymptomProfile{Symptoms: "joint pain and mood swings"})
	require.Len(t, first, 2)
	assert.Equal(t, 1, first[0].ID)
	assert.Equal(t, 2, first[1].ID)
	assert.Equal(t, "Systemic Inflammation", first[0].Condition)

	second := Evaluate(SymptomProfile{Symptoms: "gut issues"})
	require.Len(t, second, 1)
	assert.Equal(t, 1, second[0].ID)
}

func TestEvaluate_AllRulesFire(t *testing.T) {
	got := Evaluate(SymptomProfile{Symptoms: "tired, gut, joint, hormone"})
	assert.Len(t, got, 4)
	assert.NotContains(t, conditions(got), "Functional Imbalance Pattern")
}

func TestEvaluate_OnlySymptomsAreMatched(t *testing.T) {
	got := Evaluate(SymptomProfile{
		Symptoms:       "headache",
		MedicalHistory: "fatigue since 2019",
		Lifestyle:      "poor sleep",
	})
	assert.Equal(t, []string{"Functional Imbalance Pattern"}, conditions(got))
}

func TestEvaluate_ResultDoesNotAliasRuleTable(t *testing.T) {
	got := Evaluate(SymptomProfile{Symptoms: "fatigue"})
	got[0].Evidence[0] = "mutated"

	again := Evaluate(SymptomProfile{Symptoms: "fatigue"})
	assert.Equal(t, "Persistent energy depletion symptoms", again[0].Evidence[0])

	rules := Rules()
	rules[0].Keywords[0] = "mutated"
	assert.Equal(t, "fatigue", Rules()[0].Keywords[0])
}
