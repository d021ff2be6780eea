package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestSessionXP(t *testing.T) {
	tests := []struct {
		name   string
		hours  float64
		rating *int
		want   int
	}{
		{"one hour no rating", 1, nil, 50},
		{"fraction is floored", 1.5, nil, 75},
		{"top rating adds bonus", 1.5, intPtr(5), 95},
		{"baseline rating adds nothing", 2, intPtr(3), 100},
		{"low rating subtracts", 1, intPtr(1), 30},
		{"short session gets minimum", 0.1, nil, SessionMinXP},
		{"zero duration gets minimum", 0, intPtr(5), 25},
		{"penalty never goes below minimum", 0.2, intPtr(1), SessionMinXP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SessionXP(tt.hours, tt.rating))
		})
	}
}

func TestExerciseXP(t *testing.T) {
	tests := []struct {
		name    string
		reward  int
		correct bool
		hints   int
		want    int
	}{
		{"wrong answer", 10, false, 0, 0},
		{"zero reward", 0, true, 0, 0},
		{"negative reward", -5, true, 0, 0},
		{"no hints", 10, true, 0, 10},
		{"one hint", 10, true, 1, 8},
		{"two hints", 10, true, 2, 6},
		{"four hints", 10, true, 4, 1},
		{"many hints floor at one", 3, true, 5, 1},
		{"hints beyond reward floor at one", 10, true, 10, 1},
		{"small reward rounds down", 2, true, 1, 1},
		{"negative hints treated as none", 10, true, -3, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExerciseXP(tt.reward, tt.correct, tt.hints))
		})
	}
}

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp   int
		want int
	}{
		{-10, 1},
		{0, 1},
		{99, 1},
		{100, 2},
		{399, 2},
		{400, 3},
		{899, 3},
		{900, 4},
		{8100, 10},
		{10000, 11},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevelForXP(tt.xp), "xp=%d", tt.xp)
	}
}

func TestXPForLevel_IsLevelFloor(t *testing.T) {
	assert.Equal(t, 0, XPForLevel(0))
	assert.Equal(t, 0, XPForLevel(1))
	assert.Equal(t, 100, XPForLevel(2))
	assert.Equal(t, 400, XPForLevel(3))

	for level := 1; level <= 60; level++ {
		floor := XPForLevel(level)
		assert.Equal(t, level, LevelForXP(floor), "level %d floor", level)
		if floor > 0 {
			assert.Equal(t, level-1, LevelForXP(floor-1), "just below level %d", level)
		}
	}
}

func TestProgressForXP(t *testing.T) {
	assert.Equal(t, LevelProgress{Level: 1, XPIntoLevel: 0, XPForNextLevel: 100}, ProgressForXP(0))
	assert.Equal(t, LevelProgress{Level: 2, XPIntoLevel: 50, XPForNextLevel: 300}, ProgressForXP(150))
	assert.Equal(t, LevelProgress{Level: 3, XPIntoLevel: 0, XPForNextLevel: 500}, ProgressForXP(400))
}

func TestRankForLevel(t *testing.T) {
	tests := []struct {
		level int
		want  Rank
	}{
		{1, RankBronze},
		{9, RankBronze},
		{10, RankSilver},
		{19, RankSilver},
		{20, RankGold},
		{29, RankGold},
		{30, RankPlatinum},
		{49, RankPlatinum},
		{50, RankDiamond},
		{120, RankDiamond},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RankForLevel(tt.level), "level=%d", tt.level)
	}
}
