// Package grading decides whether a learner's submitted answer is correct.
// Evaluation is pure: it depends only on the exercise type, the canonical
// answer and the submitted text.
package grading

import (
	"slices"
	"strings"
)

// ExerciseType tags how an exercise's answer is matched.
type ExerciseType string

const (
	TypeMultipleChoice   ExerciseType = "multiple_choice"
	TypeMatching         ExerciseType = "matching"
	TypeFillBlank        ExerciseType = "fill_blank"
	TypeTranslation      ExerciseType = "translation"
	TypeSentenceBuilding ExerciseType = "sentence_building"
)

// MatchPolicy is the comparison strategy applied to normalized strings.
type MatchPolicy func(correct, submitted string) bool

// policies maps exercise types to their matching strategy.
// Types missing from the table fall back to exactMatch.
var policies = map[ExerciseType]MatchPolicy{
	TypeMultipleChoice:   exactMatch,
	TypeMatching:         exactMatch,
	TypeFillBlank:        fuzzyMatch,
	TypeTranslation:      fuzzyMatch,
	TypeSentenceBuilding: unorderedWordsMatch,
}

// Evaluate reports whether submitted is an acceptable answer for an exercise
// of type t whose canonical answer is correct.
func Evaluate(t ExerciseType, correct, submitted string) bool {
	policy, ok := policies[t]
	if !ok {
		policy = exactMatch
	}
	return policy(Normalize(correct), Normalize(submitted))
}

// Normalize lower-cases and trims surrounding whitespace.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// IsKnownType reports whether t has a dedicated matching policy.
func IsKnownType(t ExerciseType) bool {
	_, ok := policies[t]
	return ok
}

func exactMatch(correct, submitted string) bool {
	return correct == submitted
}

// fuzzyMatch accepts partial or extended phrasing in either direction.
func fuzzyMatch(correct, submitted string) bool {
	return correct == submitted ||
		strings.Contains(correct, submitted) ||
		strings.Contains(submitted, correct)
}

// unorderedWordsMatch ignores word order but not word multiplicity.
func unorderedWordsMatch(correct, submitted string) bool {
	a := strings.Fields(correct)
	b := strings.Fields(submitted)
	if len(a) != len(b) {
		return false
	}
	slices.Sort(a)
	slices.Sort(b)
	return slices.Equal(a, b)
}
