// Package engine holds the rules shared by several commands: the single XP
// path, the lesson → unit → course completion cascade and the achievement
// evaluation flow. Everything here runs inside a caller-provided unit of work.
package engine

import (
	"time"

	"github.com/alem-hub/lingo-progress/internal/domain/catalog"
	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/pkg/logger"
)

// Config contains gamification tuning shared by the engine components.
type Config struct {
	// Location defines the midnight used for streaks and daily goals.
	Location *time.Location

	// DailyTargets are the fixed per-day goals.
	DailyTargets gamification.DailyGoalTargets

	// CourseCompletionBonus is credited once per completed course.
	CourseCompletionBonus int

	// CertificationBonus is credited once per issued certificate.
	CertificationBonus int

	// AwardAchievementPoints credits reward points of unlocked achievements as XP.
	AwardAchievementPoints bool
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Location:               time.UTC,
		DailyTargets:           gamification.DefaultDailyGoalTargets(),
		CourseCompletionBonus:  100,
		CertificationBonus:     250,
		AwardAchievementPoints: true,
	}
}

// Engine bundles the ledger, the cascade and the achievement flow.
type Engine struct {
	Ledger       *Ledger
	Cascade      *Cascade
	Achievements *AchievementFlow
	config       Config
}

// New wires the engine components.
func New(cat catalog.Catalog, config Config, log *logger.Logger) *Engine {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.DailyTargets == (gamification.DailyGoalTargets{}) {
		config.DailyTargets = gamification.DefaultDailyGoalTargets()
	}
	if log == nil {
		log = logger.Nop()
	}

	ledger := &Ledger{config: config, log: log.With(logger.Component("xp_ledger"))}
	return &Engine{
		Ledger:       ledger,
		Cascade:      &Cascade{catalog: cat, ledger: ledger, config: config, log: log.With(logger.Component("cascade"))},
		Achievements: &AchievementFlow{catalog: cat, ledger: ledger, config: config, log: log.With(logger.Component("achievements"))},
		config:       config,
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.config
}
