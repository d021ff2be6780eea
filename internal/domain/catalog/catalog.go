// Package catalog описывает учебную программу (язык → курс → юнит → урок →
// упражнение) и каталоги достижений и сертификаций. Каталог только читается
// ядром прогресса; его наполнение - задача админки.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/alem-hub/lingo-progress/internal/domain/certification"
	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/internal/domain/grading"
)

// DefaultLessonHearts - бюджет попыток урока, если он не задан.
const DefaultLessonHearts = 5

// ══════════════════════════════════════════════════════════════════════════════
// CURRICULUM
// ══════════════════════════════════════════════════════════════════════════════

// Language - изучаемый язык.
type Language struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// Course - курс по языку.
type Course struct {
	ID         string `json:"id"`
	LanguageID string `json:"language_id"`
	Title      string `json:"title"`
}

// Unit - раздел курса.
type Unit struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	Title    string `json:"title"`
	Order    int    `json:"order"`

	// XPReward - бонус за завершение юнита.
	XPReward int `json:"xp_reward"`
}

// Lesson - урок внутри юнита.
type Lesson struct {
	ID     string `json:"id"`
	UnitID string `json:"unit_id"`
	Title  string `json:"title"`
	Order  int    `json:"order"`

	// XPReward - бонус за завершение урока.
	XPReward int `json:"xp_reward"`

	// Hearts - бюджет ошибок; 0 означает DefaultLessonHearts.
	Hearts int `json:"hearts"`
}

// HeartsBudget возвращает бюджет попыток с учётом значения по умолчанию.
func (l Lesson) HeartsBudget() int {
	if l.Hearts <= 0 {
		return DefaultLessonHearts
	}
	return l.Hearts
}

// Exercise - упражнение урока.
type Exercise struct {
	ID            string               `json:"id"`
	LessonID      string               `json:"lesson_id"`
	Type          grading.ExerciseType `json:"type"`
	Prompt        string               `json:"prompt"`
	CorrectAnswer string               `json:"correct_answer"`
	Explanation   string               `json:"explanation"`
	XPReward      int                  `json:"xp_reward"`
}

// LessonPath - урок вместе со всеми предками в иерархии.
type LessonPath struct {
	Lesson Lesson
	Unit   Unit
	Course Course
}

// LanguageID возвращает язык, к которому относится урок.
func (p LessonPath) LanguageID() string {
	return p.Course.LanguageID
}

// Seed - документ наполнения каталога (JSON), общий для всех хранилищ.
type Seed struct {
	Languages      []Language                           `json:"languages"`
	Courses        []Course                             `json:"courses"`
	Units          []Unit                               `json:"units"`
	Lessons        []Lesson                             `json:"lessons"`
	Exercises      []Exercise                           `json:"exercises"`
	Achievements   []gamification.AchievementDefinition `json:"achievements"`
	Certifications []certification.Certification        `json:"certifications"`
}

// DecodeSeed читает Seed из JSON.
func DecodeSeed(r io.Reader) (Seed, error) {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return Seed{}, fmt.Errorf("catalog: decode seed: %w", err)
	}
	return seed, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Catalog - доступ к каталогу на чтение.
// Get* возвращают соответствующую shared.Err*NotFound ошибку.
type Catalog interface {
	GetExercise(ctx context.Context, id string) (*Exercise, error)
	GetLesson(ctx context.Context, id string) (*Lesson, error)
	GetUnit(ctx context.Context, id string) (*Unit, error)
	GetCourse(ctx context.Context, id string) (*Course, error)
	GetLanguage(ctx context.Context, id string) (*Language, error)

	// ListLessonIDs возвращает ID уроков юнита.
	ListLessonIDs(ctx context.Context, unitID string) ([]string, error)

	// ListUnitIDs возвращает ID юнитов курса.
	ListUnitIDs(ctx context.Context, courseID string) ([]string, error)

	// ListActiveAchievements возвращает активные определения достижений.
	ListActiveAchievements(ctx context.Context) ([]gamification.AchievementDefinition, error)

	// GetCertification возвращает сертификацию по ID.
	GetCertification(ctx context.Context, id string) (*certification.Certification, error)
}

// ResolveLesson загружает урок вместе с юнитом и курсом.
func ResolveLesson(ctx context.Context, c Catalog, lessonID string) (*LessonPath, error) {
	lesson, err := c.GetLesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	unit, err := c.GetUnit(ctx, lesson.UnitID)
	if err != nil {
		return nil, err
	}
	course, err := c.GetCourse(ctx, unit.CourseID)
	if err != nil {
		return nil, err
	}
	return &LessonPath{Lesson: *lesson, Unit: *unit, Course: *course}, nil
}
