package memory

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/alem-hub/lingo-progress/internal/domain/catalog"
	"github.com/alem-hub/lingo-progress/internal/domain/certification"
	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
)

// Catalog is an in-memory catalog.Catalog, filled through the Add* methods
// or from a JSON seed document.
type Catalog struct {
	mu             sync.RWMutex
	languages      map[string]catalog.Language
	courses        map[string]catalog.Course
	units          map[string]catalog.Unit
	lessons        map[string]catalog.Lesson
	exercises      map[string]catalog.Exercise
	achievements   map[string]gamification.AchievementDefinition
	certifications map[string]certification.Certification
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		languages:      make(map[string]catalog.Language),
		courses:        make(map[string]catalog.Course),
		units:          make(map[string]catalog.Unit),
		lessons:        make(map[string]catalog.Lesson),
		exercises:      make(map[string]catalog.Exercise),
		achievements:   make(map[string]gamification.AchievementDefinition),
		certifications: make(map[string]certification.Certification),
	}
}

// LoadSeed decodes a catalog.Seed document and adds every entry.
func (c *Catalog) LoadSeed(r io.Reader) error {
	seed, err := catalog.DecodeSeed(r)
	if err != nil {
		return fmt.Errorf("memory: %w", err)
	}
	c.Apply(seed)
	return nil
}

// Apply adds every entry of seed.
func (c *Catalog) Apply(seed catalog.Seed) {
	c.AddLanguage(seed.Languages...)
	c.AddCourse(seed.Courses...)
	c.AddUnit(seed.Units...)
	c.AddLesson(seed.Lessons...)
	c.AddExercise(seed.Exercises...)
	c.AddAchievement(seed.Achievements...)
	c.AddCertification(seed.Certifications...)
}

func (c *Catalog) AddLanguage(items ...catalog.Language) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range items {
		c.languages[it.ID] = it
	}
}

func (c *Catalog) AddCourse(items ...catalog.Course) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range items {
		c.courses[it.ID] = it
	}
}

func (c *Catalog) AddUnit(items ...catalog.Unit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range items {
		c.units[it.ID] = it
	}
}

func (c *Catalog) AddLesson(items ...catalog.Lesson) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range items {
		c.lessons[it.ID] = it
	}
}

func (c *Catalog) AddExercise(items ...catalog.Exercise) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range items {
		c.exercises[it.ID] = it
	}
}

func (c *Catalog) AddAchievement(items ...gamification.AchievementDefinition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range items {
		c.achievements[it.ID] = it
	}
}

func (c *Catalog) AddCertification(items ...certification.Certification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range items {
		c.certifications[it.ID] = it
	}
}

func lookup[V any](mu *sync.RWMutex, m map[string]V, id string, notFound error) (*V, error) {
	mu.RLock()
	defer mu.RUnlock()
	v, ok := m[id]
	if !ok {
		return nil, notFound
	}
	return &v, nil
}

func (c *Catalog) GetExercise(_ context.Context, id string) (*catalog.Exercise, error) {
	return lookup(&c.mu, c.exercises, id, shared.ErrExerciseNotFound)
}

func (c *Catalog) GetLesson(_ context.Context, id string) (*catalog.Lesson, error) {
	return lookup(&c.mu, c.lessons, id, shared.ErrLessonNotFound)
}

func (c *Catalog) GetUnit(_ context.Context, id string) (*catalog.Unit, error) {
	return lookup(&c.mu, c.units, id, shared.ErrUnitNotFound)
}

func (c *Catalog) GetCourse(_ context.Context, id string) (*catalog.Course, error) {
	return lookup(&c.mu, c.courses, id, shared.ErrCourseNotFound)
}

func (c *Catalog) GetLanguage(_ context.Context, id string) (*catalog.Language, error) {
	return lookup(&c.mu, c.languages, id, shared.ErrLanguageNotFound)
}

func (c *Catalog) GetCertification(_ context.Context, id string) (*certification.Certification, error) {
	return lookup(&c.mu, c.certifications, id, shared.ErrCertificationNotFound)
}

func (c *Catalog) ListLessonIDs(_ context.Context, unitID string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	lessons := make([]catalog.Lesson, 0)
	for _, l := range c.lessons {
		if l.UnitID == unitID {
			lessons = append(lessons, l)
		}
	}
	sort.Slice(lessons, func(i, j int) bool {
		if lessons[i].Order != lessons[j].Order {
			return lessons[i].Order < lessons[j].Order
		}
		return lessons[i].ID < lessons[j].ID
	})
	ids := make([]string, len(lessons))
	for i, l := range lessons {
		ids[i] = l.ID
	}
	return ids, nil
}

func (c *Catalog) ListUnitIDs(_ context.Context, courseID string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	units := make([]catalog.Unit, 0)
	for _, u := range c.units {
		if u.CourseID == courseID {
			units = append(units, u)
		}
	}
	sort.Slice(units, func(i, j int) bool {
		if units[i].Order != units[j].Order {
			return units[i].Order < units[j].Order
		}
		return units[i].ID < units[j].ID
	})
	ids := make([]string, len(units))
	for i, u := range units {
		ids[i] = u.ID
	}
	return ids, nil
}

func (c *Catalog) ListActiveAchievements(_ context.Context) ([]gamification.AchievementDefinition, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]gamification.AchievementDefinition, 0, len(c.achievements))
	for _, a := range c.achievements {
		if a.Active {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
