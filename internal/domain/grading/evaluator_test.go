package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		typ       ExerciseType
		correct   string
		submitted string
		want      bool
	}{
		{"multiple choice exact", TypeMultipleChoice, "Hola", "hola", true},
		{"multiple choice trims", TypeMultipleChoice, "Hola", "  HOLA \n", true},
		{"multiple choice rejects partial", TypeMultipleChoice, "Hola", "Hol", false},
		{"matching exact only", TypeMatching, "a-1,b-2", "a-1,b-2", true},
		{"matching rejects reorder", TypeMatching, "a-1,b-2", "b-2,a-1", false},
		{"fill blank exact", TypeFillBlank, "luego", "Luego", true},
		{"fill blank submitted inside correct", TypeFillBlank, "buenos días", "buenos", true},
		{"fill blank correct inside submitted", TypeFillBlank, "gato", "el gato", true},
		{"fill blank wrong", TypeFillBlank, "gato", "perro", false},
		{"translation extended phrasing", TypeTranslation, "good morning", "good morning friend", true},
		{"translation wrong", TypeTranslation, "good morning", "good night", false},
		{"sentence any order", TypeSentenceBuilding, "Yo como una manzana", "manzana una como yo", true},
		{"sentence extra spaces", TypeSentenceBuilding, "yo como", "  como    yo ", true},
		{"sentence missing word", TypeSentenceBuilding, "yo como una manzana", "yo como manzana", false},
		{"sentence duplicate word counts", TypeSentenceBuilding, "no no", "no", false},
		{"sentence multiplicity differs", TypeSentenceBuilding, "a a b", "a b b", false},
		{"unknown type falls back to exact", ExerciseType("listening"), "Hola", "hola", true},
		{"unknown type rejects partial", ExerciseType("listening"), "Hola", "Ho", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.typ, tt.correct, tt.submitted))
		})
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "buenos días", Normalize("  Buenos Días\t"))
	assert.Equal(t, "", Normalize("   "))
}

func TestIsKnownType(t *testing.T) {
	for _, typ := range []ExerciseType{TypeMultipleChoice, TypeMatching, TypeFillBlank, TypeTranslation, TypeSentenceBuilding} {
		assert.True(t, IsKnownType(typ), typ)
	}
	assert.False(t, IsKnownType("listening"))
}
