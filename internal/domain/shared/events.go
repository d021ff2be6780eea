package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Events are published after the unit of work that
// produced them has committed.
const (
	// Progress events
	EventAnswerSubmitted EventType = "progress.answer_submitted"
	EventLessonStarted   EventType = "progress.lesson_started"
	EventLessonCompleted EventType = "progress.lesson_completed"
	EventUnitCompleted   EventType = "progress.unit_completed"
	EventCourseCompleted EventType = "progress.course_completed"

	// Gamification events
	EventXPGained            EventType = "gamification.xp_gained"
	EventLevelUp             EventType = "gamification.level_up"
	EventStreakUpdated       EventType = "gamification.streak_updated"
	EventAchievementUnlocked EventType = "gamification.achievement_unlocked"
	EventDailyGoalCompleted  EventType = "gamification.daily_goal_completed"
	EventSessionRecorded     EventType = "gamification.session_recorded"

	// Certification events
	EventCertificateIssued  EventType = "certification.issued"
	EventCertificateRevoked EventType = "certification.revoked"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the learner the event belongs to.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, learnerID string, at time.Time) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   at,
		AggregateId: learnerID,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// AnswerSubmittedEvent is emitted for every graded exercise answer.
type AnswerSubmittedEvent struct {
	BaseEvent
	ExerciseID string `json:"exercise_id"`
	LessonID   string `json:"lesson_id"`
	IsCorrect  bool   `json:"is_correct"`
	XPEarned   int    `json:"xp_earned"`
	Hearts     int    `json:"hearts"`
}

// Payload implements Event interface.
func (e AnswerSubmittedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"exercise_id": e.ExerciseID,
		"lesson_id":   e.LessonID,
		"is_correct":  e.IsCorrect,
		"xp_earned":   e.XPEarned,
		"hearts":      e.Hearts,
	}
}

// LessonStartedEvent is emitted when a lesson is started or restarted.
type LessonStartedEvent struct {
	BaseEvent
	LessonID string `json:"lesson_id"`
	Attempts int    `json:"attempts"`
	Hearts   int    `json:"hearts"`
}

// Payload implements Event interface.
func (e LessonStartedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"lesson_id": e.LessonID,
		"attempts":  e.Attempts,
		"hearts":    e.Hearts,
	}
}

// LevelCompletedEvent is emitted when a lesson, unit or course completes.
// Type distinguishes the level.
type LevelCompletedEvent struct {
	BaseEvent
	EntityID string `json:"entity_id"`
	XPEarned int    `json:"xp_earned"`
	Score    int    `json:"score,omitempty"`
	Stars    int    `json:"stars,omitempty"`
}

// Payload implements Event interface.
func (e LevelCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"entity_id": e.EntityID,
		"xp_earned": e.XPEarned,
		"score":     e.Score,
		"stars":     e.Stars,
	}
}

// NewLessonCompletedEvent creates a lesson completion event.
func NewLessonCompletedEvent(learnerID, lessonID string, xp, score int, at time.Time) LevelCompletedEvent {
	return LevelCompletedEvent{
		BaseEvent: NewBaseEvent(EventLessonCompleted, learnerID, at),
		EntityID:  lessonID,
		XPEarned:  xp,
		Score:     score,
	}
}

// NewUnitCompletedEvent creates a unit completion event.
func NewUnitCompletedEvent(learnerID, unitID string, xp, stars int, at time.Time) LevelCompletedEvent {
	return LevelCompletedEvent{
		BaseEvent: NewBaseEvent(EventUnitCompleted, learnerID, at),
		EntityID:  unitID,
		XPEarned:  xp,
		Stars:     stars,
	}
}

// NewCourseCompletedEvent creates a course completion event.
func NewCourseCompletedEvent(learnerID, courseID string, xp, score int, at time.Time) LevelCompletedEvent {
	return LevelCompletedEvent{
		BaseEvent: NewBaseEvent(EventCourseCompleted, learnerID, at),
		EntityID:  courseID,
		XPEarned:  xp,
		Score:     score,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Gamification Events
// ═══════════════════════════════════════════════════════════════════════════

// XPGainedEvent is emitted every time XP is credited to a learner.
type XPGainedEvent struct {
	BaseEvent
	Amount     int    `json:"amount"`
	Source     string `json:"source"`
	LanguageID string `json:"language_id,omitempty"`
	TotalXP    int    `json:"total_xp"`
}

// Payload implements Event interface.
func (e XPGainedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"amount":      e.Amount,
		"source":      e.Source,
		"language_id": e.LanguageID,
		"total_xp":    e.TotalXP,
	}
}

// NewXPGainedEvent creates a new XPGainedEvent.
func NewXPGainedEvent(learnerID string, amount int, source, languageID string, total int, at time.Time) XPGainedEvent {
	return XPGainedEvent{
		BaseEvent:  NewBaseEvent(EventXPGained, learnerID, at),
		Amount:     amount,
		Source:     source,
		LanguageID: languageID,
		TotalXP:    total,
	}
}

// LevelUpEvent is emitted when the learner's level increases.
type LevelUpEvent struct {
	BaseEvent
	OldLevel int    `json:"old_level"`
	NewLevel int    `json:"new_level"`
	Rank     string `json:"rank"`
}

// Payload implements Event interface.
func (e LevelUpEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"old_level": e.OldLevel,
		"new_level": e.NewLevel,
		"rank":      e.Rank,
	}
}

// NewLevelUpEvent creates a new LevelUpEvent.
func NewLevelUpEvent(learnerID string, oldLevel, newLevel int, rank string, at time.Time) LevelUpEvent {
	return LevelUpEvent{
		BaseEvent: NewBaseEvent(EventLevelUp, learnerID, at),
		OldLevel:  oldLevel,
		NewLevel:  newLevel,
		Rank:      rank,
	}
}

// StreakUpdatedEvent is emitted when a streak counter changes.
// Scope is "global" or a language ID.
type StreakUpdatedEvent struct {
	BaseEvent
	Scope   string `json:"scope"`
	Current int    `json:"current"`
	Longest int    `json:"longest"`
}

// Payload implements Event interface.
func (e StreakUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"scope":   e.Scope,
		"current": e.Current,
		"longest": e.Longest,
	}
}

// NewStreakUpdatedEvent creates a new StreakUpdatedEvent.
func NewStreakUpdatedEvent(learnerID, scope string, current, longest int, at time.Time) StreakUpdatedEvent {
	return StreakUpdatedEvent{
		BaseEvent: NewBaseEvent(EventStreakUpdated, learnerID, at),
		Scope:     scope,
		Current:   current,
		Longest:   longest,
	}
}

// AchievementUnlockedEvent is emitted once per newly unlocked achievement.
type AchievementUnlockedEvent struct {
	BaseEvent
	AchievementID string `json:"achievement_id"`
	Name          string `json:"name"`
	RewardPoints  int    `json:"reward_points"`
}

// Payload implements Event interface.
func (e AchievementUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"achievement_id": e.AchievementID,
		"name":           e.Name,
		"reward_points":  e.RewardPoints,
	}
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent.
func NewAchievementUnlockedEvent(learnerID, achievementID, name string, points int, at time.Time) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{
		BaseEvent:     NewBaseEvent(EventAchievementUnlocked, learnerID, at),
		AchievementID: achievementID,
		Name:          name,
		RewardPoints:  points,
	}
}

// DailyGoalCompletedEvent is emitted when both daily targets are met.
type DailyGoalCompletedEvent struct {
	BaseEvent
	Day              time.Time `json:"day"`
	XPEarned         int       `json:"xp_earned"`
	LessonsCompleted int       `json:"lessons_completed"`
}

// Payload implements Event interface.
func (e DailyGoalCompletedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"day":               e.Day.Format("2006-01-02"),
		"xp_earned":         e.XPEarned,
		"lessons_completed": e.LessonsCompleted,
	}
}

// NewDailyGoalCompletedEvent creates a new DailyGoalCompletedEvent.
func NewDailyGoalCompletedEvent(learnerID string, day time.Time, xp, lessons int, at time.Time) DailyGoalCompletedEvent {
	return DailyGoalCompletedEvent{
		BaseEvent:        NewBaseEvent(EventDailyGoalCompleted, learnerID, at),
		Day:              day,
		XPEarned:         xp,
		LessonsCompleted: lessons,
	}
}

// SessionRecordedEvent is emitted when a tutoring session is recorded.
type SessionRecordedEvent struct {
	BaseEvent
	ActivityType  string  `json:"activity_type"`
	DurationHours float64 `json:"duration_hours"`
	XPEarned      int     `json:"xp_earned"`
}

// Payload implements Event interface.
func (e SessionRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"activity_type":  e.ActivityType,
		"duration_hours": e.DurationHours,
		"xp_earned":      e.XPEarned,
	}
}

// NewSessionRecordedEvent creates a SessionRecordedEvent.
func NewSessionRecordedEvent(learnerID, activityType string, hours float64, xp int, at time.Time) SessionRecordedEvent {
	return SessionRecordedEvent{
		BaseEvent:     NewBaseEvent(EventSessionRecorded, learnerID, at),
		ActivityType:  activityType,
		DurationHours: hours,
		XPEarned:      xp,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Certification Events
// ═══════════════════════════════════════════════════════════════════════════

// CertificateEvent is emitted when a certificate is issued or revoked.
type CertificateEvent struct {
	BaseEvent
	CertificationID   string `json:"certification_id"`
	CertificateNumber string `json:"certificate_number"`
}

// Payload implements Event interface.
func (e CertificateEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"certification_id":   e.CertificationID,
		"certificate_number": e.CertificateNumber,
	}
}

// NewCertificateEvent creates a CertificateEvent of the given type.
func NewCertificateEvent(eventType EventType, learnerID, certificationID, number string, at time.Time) CertificateEvent {
	return CertificateEvent{
		BaseEvent:         NewBaseEvent(eventType, learnerID, at),
		CertificationID:   certificationID,
		CertificateNumber: number,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Interfaces
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler is a function that handles domain events.
type EventHandler func(event Event) error

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(event Event) error
}

// EventSubscriber subscribes to domain events.
type EventSubscriber interface {
	Subscribe(eventType EventType, handler EventHandler) error
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing capabilities.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// EventCollector buffers events raised inside a unit of work so that they can
// be published once it commits.
type EventCollector struct {
	events []Event
}

// Add records an event.
func (c *EventCollector) Add(e Event) {
	c.events = append(c.events, e)
}

// Events returns the recorded events in order.
func (c *EventCollector) Events() []Event {
	return c.events
}

// Reset drops recorded events. Used when a command is retried.
func (c *EventCollector) Reset() {
	c.events = c.events[:0]
}

// PublishAll publishes every event, returning the first failure.
// Remaining events are still attempted.
func (c *EventCollector) PublishAll(p EventPublisher) error {
	if p == nil {
		return nil
	}
	var first error
	for _, e := range c.events {
		if err := p.Publish(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
