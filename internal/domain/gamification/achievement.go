package gamification

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// AchievementType - тип правила разблокировки.
type AchievementType string

const (
	AchievementMilestone  AchievementType = "milestone"
	AchievementStreak     AchievementType = "streak"
	AchievementCompletion AchievementType = "completion"
	AchievementSocial     AchievementType = "social"
)

// IsValid проверяет, что тип известен.
func (t AchievementType) IsValid() bool {
	switch t {
	case AchievementMilestone, AchievementStreak, AchievementCompletion, AchievementSocial:
		return true
	}
	return false
}

// AchievementDefinition - достижение из каталога (создаётся администратором).
type AchievementDefinition struct {
	// ID - уникальный идентификатор.
	ID string `json:"id"`

	// Name - название.
	Name string `json:"name"`

	// Description - описание.
	Description string `json:"description"`

	// Type - тип правила.
	Type AchievementType `json:"type"`

	// Requirement - порог, который нужно достичь.
	Requirement int `json:"requirement"`

	// RewardPoints - награда за разблокировку.
	RewardPoints int `json:"reward_points"`

	// Active - участвует ли достижение в проверках.
	Active bool `json:"active"`
}

// UserAchievement - прогресс ученика по одному достижению.
type UserAchievement struct {
	LearnerID     string     `json:"learner_id"`
	AchievementID string     `json:"achievement_id"`
	Progress      int        `json:"progress"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Version       int        `json:"-"`
}

// ══════════════════════════════════════════════════════════════════════════════
// RULE DISPATCH
// ══════════════════════════════════════════════════════════════════════════════

// Snapshot - агрегированный прогресс, по которому проверяются правила.
type Snapshot struct {
	// CompletedSessions - всего завершённых занятий.
	CompletedSessions int

	// CurrentStreak - текущая глобальная серия.
	CurrentStreak int
}

// ProgressRule вычисляет текущее значение прогресса для типа достижения.
// implemented == false означает, что правило не реализовано и
// достижение никогда не разблокируется.
type ProgressRule func(s Snapshot) (value int, implemented bool)

var progressRules = map[AchievementType]ProgressRule{
	AchievementMilestone:  completedSessions,
	AchievementCompletion: completedSessions,
	AchievementStreak:     currentStreak,
	// Социальные достижения пока не имеют правила.
	AchievementSocial: unimplementedRule,
}

func completedSessions(s Snapshot) (int, bool) { return s.CompletedSessions, true }
func currentStreak(s Snapshot) (int, bool)     { return s.CurrentStreak, true }
func unimplementedRule(Snapshot) (int, bool)   { return 0, false }

// Measure возвращает прогресс и признак выполнения для определения.
func Measure(def AchievementDefinition, s Snapshot) (progress int, qualifies bool) {
	rule, ok := progressRules[def.Type]
	if !ok {
		rule = unimplementedRule
	}
	value, implemented := rule(s)
	return value, implemented && value >= def.Requirement
}

// AchievementOutcome - результат проверки одного достижения.
type AchievementOutcome struct {
	Definition AchievementDefinition
	Row        *UserAchievement

	// Created - строка создана в этом проходе.
	Created bool

	// Changed - строку нужно сохранить.
	Changed bool

	// Unlocked - достижение разблокировано в этом проходе.
	Unlocked bool
}

// EvaluateAchievements прогоняет активные определения по снимку.
// existing индексируется по AchievementID. Завершённые достижения пропускаются
// и не регрессируют. Функция не имеет побочных эффектов кроме мутации
// переданных строк; сохранение выполняет вызывающий код.
func EvaluateAchievements(
	learnerID string,
	defs []AchievementDefinition,
	existing map[string]*UserAchievement,
	s Snapshot,
	now time.Time,
) []AchievementOutcome {
	outcomes := make([]AchievementOutcome, 0, len(defs))

	for _, def := range defs {
		if !def.Active {
			continue
		}

		row, found := existing[def.ID]
		if found && row.Completed {
			continue
		}

		progress, qualifies := Measure(def, s)
		out := AchievementOutcome{Definition: def}

		if !found {
			row = &UserAchievement{
				LearnerID:     learnerID,
				AchievementID: def.ID,
			}
			out.Created = true
			out.Changed = true
		}

		if row.Progress != progress {
			row.Progress = progress
			out.Changed = true
		}

		if qualifies {
			at := now
			row.Completed = true
			row.CompletedAt = &at
			out.Changed = true
			out.Unlocked = true
		}

		out.Row = row
		outcomes = append(outcomes, out)
	}

	return outcomes
}
