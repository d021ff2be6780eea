package memory

import (
	"context"
	"sort"
	"time"

	"github.com/alem-hub/lingo-progress/internal/domain/certification"
	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/internal/domain/progress"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

type progressRepo struct{ t *tx }

func (r progressRepo) CreateAnswer(_ context.Context, a *progress.ExerciseAnswer) error {
	if err := r.t.begin("CreateAnswer", true); err != nil {
		return err
	}
	r.t.view.answers = append(r.t.view.answers, *a)
	return nil
}

func (r progressRepo) ListAnswers(_ context.Context, learnerID, lessonID string) ([]*progress.ExerciseAnswer, error) {
	if err := r.t.begin("ListAnswers", false); err != nil {
		return nil, err
	}
	out := make([]*progress.ExerciseAnswer, 0)
	for _, a := range r.t.view.answers {
		if a.LearnerID == learnerID && a.LessonID == lessonID {
			row := a
			out = append(out, &row)
		}
	}
	return out, nil
}

func (r progressRepo) GetLesson(_ context.Context, learnerID, lessonID string) (*progress.LessonProgress, error) {
	if err := r.t.begin("GetLesson", false); err != nil {
		return nil, err
	}
	lp, ok := r.t.view.lessons.get(pair{learnerID, lessonID})
	if !ok {
		return nil, shared.ErrLessonProgressNotFound
	}
	return lp, nil
}

func (r progressRepo) SaveLesson(_ context.Context, p *progress.LessonProgress) error {
	if err := r.t.begin("SaveLesson", true); err != nil {
		return err
	}
	k := pair{p.LearnerID, p.LessonID}
	r.t.lessons.touch(k, r.t.view.lessons.version(k))
	return r.t.view.lessons.save(k, p)
}

func (r progressRepo) ListLessonsByUnit(_ context.Context, learnerID, unitID string) ([]*progress.LessonProgress, error) {
	if err := r.t.begin("ListLessonsByUnit", false); err != nil {
		return nil, err
	}
	return r.t.view.lessons.filter(func(v *progress.LessonProgress) bool {
		return v.LearnerID == learnerID && v.UnitID == unitID
	}), nil
}

func (r progressRepo) ListLessonsByCourse(_ context.Context, learnerID, courseID string) ([]*progress.LessonProgress, error) {
	if err := r.t.begin("ListLessonsByCourse", false); err != nil {
		return nil, err
	}
	return r.t.view.lessons.filter(func(v *progress.LessonProgress) bool {
		return v.LearnerID == learnerID && v.CourseID == courseID
	}), nil
}

func (r progressRepo) GetUnit(_ context.Context, learnerID, unitID string) (*progress.UnitProgress, error) {
	if err := r.t.begin("GetUnit", false); err != nil {
		return nil, err
	}
	up, ok := r.t.view.units.get(pair{learnerID, unitID})
	if !ok {
		return nil, shared.ErrUnitProgressNotFound
	}
	return up, nil
}

func (r progressRepo) SaveUnit(_ context.Context, p *progress.UnitProgress) error {
	if err := r.t.begin("SaveUnit", true); err != nil {
		return err
	}
	k := pair{p.LearnerID, p.UnitID}
	r.t.units.touch(k, r.t.view.units.version(k))
	return r.t.view.units.save(k, p)
}

func (r progressRepo) ListUnitsByCourse(_ context.Context, learnerID, courseID string) ([]*progress.UnitProgress, error) {
	if err := r.t.begin("ListUnitsByCourse", false); err != nil {
		return nil, err
	}
	return r.t.view.units.filter(func(v *progress.UnitProgress) bool {
		return v.LearnerID == learnerID && v.CourseID == courseID
	}), nil
}

func (r progressRepo) GetCourse(_ context.Context, learnerID, courseID string) (*progress.CourseProgress, error) {
	if err := r.t.begin("GetCourse", false); err != nil {
		return nil, err
	}
	cp, ok := r.t.view.courses.get(pair{learnerID, courseID})
	if !ok {
		return nil, shared.ErrCourseProgressNotFound
	}
	return cp, nil
}

func (r progressRepo) SaveCourse(_ context.Context, p *progress.CourseProgress) error {
	if err := r.t.begin("SaveCourse", true); err != nil {
		return err
	}
	k := pair{p.LearnerID, p.CourseID}
	r.t.courses.touch(k, r.t.view.courses.version(k))
	return r.t.view.courses.save(k, p)
}

func (r progressRepo) GetLanguage(_ context.Context, learnerID, languageID string) (*progress.LanguageProgress, error) {
	if err := r.t.begin("GetLanguage", false); err != nil {
		return nil, err
	}
	lp, ok := r.t.view.languages.get(pair{learnerID, languageID})
	if !ok {
		return nil, shared.ErrLanguageProgressMissing
	}
	return lp, nil
}

func (r progressRepo) SaveLanguage(_ context.Context, p *progress.LanguageProgress) error {
	if err := r.t.begin("SaveLanguage", true); err != nil {
		return err
	}
	k := pair{p.LearnerID, p.LanguageID}
	r.t.languages.touch(k, r.t.view.languages.version(k))
	return r.t.view.languages.save(k, p)
}

func (r progressRepo) ListLanguages(_ context.Context, learnerID string) ([]*progress.LanguageProgress, error) {
	if err := r.t.begin("ListLanguages", false); err != nil {
		return nil, err
	}
	rows := r.t.view.languages.filter(func(v *progress.LanguageProgress) bool {
		return v.LearnerID == learnerID
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].LanguageID < rows[j].LanguageID })
	return rows, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GAMIFICATION
// ══════════════════════════════════════════════════════════════════════════════

type gamificationRepo struct{ t *tx }

func (r gamificationRepo) GetProfile(_ context.Context, learnerID string) (*gamification.LearnerProfile, error) {
	if err := r.t.begin("GetProfile", false); err != nil {
		return nil, err
	}
	p, ok := r.t.view.profiles.get(learnerID)
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	return p, nil
}

func (r gamificationRepo) SaveProfile(_ context.Context, p *gamification.LearnerProfile) error {
	if err := r.t.begin("SaveProfile", true); err != nil {
		return err
	}
	r.t.profiles.touch(p.LearnerID, r.t.view.profiles.version(p.LearnerID))
	return r.t.view.profiles.save(p.LearnerID, p)
}

func (r gamificationRepo) GetDailyGoal(_ context.Context, learnerID string, day time.Time) (*gamification.DailyGoal, error) {
	if err := r.t.begin("GetDailyGoal", false); err != nil {
		return nil, err
	}
	g, ok := r.t.view.goals.get(dayKey{learnerID, day.UTC()})
	if !ok {
		return nil, shared.ErrDailyGoalNotFound
	}
	return g, nil
}

func (r gamificationRepo) SaveDailyGoal(_ context.Context, g *gamification.DailyGoal) error {
	if err := r.t.begin("SaveDailyGoal", true); err != nil {
		return err
	}
	k := dayKey{g.LearnerID, g.Day.UTC()}
	r.t.goals.touch(k, r.t.view.goals.version(k))
	return r.t.view.goals.save(k, g)
}

func (r gamificationRepo) ListUserAchievements(_ context.Context, learnerID string) ([]*gamification.UserAchievement, error) {
	if err := r.t.begin("ListUserAchievements", false); err != nil {
		return nil, err
	}
	rows := r.t.view.achievements.filter(func(v *gamification.UserAchievement) bool {
		return v.LearnerID == learnerID
	})
	sort.Slice(rows, func(i, j int) bool { return rows[i].AchievementID < rows[j].AchievementID })
	return rows, nil
}

func (r gamificationRepo) SaveUserAchievement(_ context.Context, a *gamification.UserAchievement) error {
	if err := r.t.begin("SaveUserAchievement", true); err != nil {
		return err
	}
	k := pair{a.LearnerID, a.AchievementID}
	r.t.achievements.touch(k, r.t.view.achievements.version(k))
	return r.t.view.achievements.save(k, a)
}

// ══════════════════════════════════════════════════════════════════════════════
// CERTIFICATION
// ══════════════════════════════════════════════════════════════════════════════

type certificationRepo struct{ t *tx }

func (r certificationRepo) Get(_ context.Context, learnerID, certificationID string) (*certification.UserCertification, error) {
	if err := r.t.begin("GetCertificate", false); err != nil {
		return nil, err
	}
	rows := r.t.view.certs.filter(func(v *certification.UserCertification) bool {
		return v.LearnerID == learnerID && v.CertificationID == certificationID
	})
	if len(rows) == 0 {
		return nil, shared.ErrCertificateNotFound
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].IssuedAt.After(rows[j].IssuedAt) })
	return rows[0], nil
}

func (r certificationRepo) GetByNumber(_ context.Context, number string) (*certification.UserCertification, error) {
	if err := r.t.begin("GetCertificateByNumber", false); err != nil {
		return nil, err
	}
	rows := r.t.view.certs.filter(func(v *certification.UserCertification) bool {
		return v.CertificateNumber == number
	})
	if len(rows) == 0 {
		return nil, shared.ErrCertificateNotFound
	}
	return rows[0], nil
}

func (r certificationRepo) NumberExists(ctx context.Context, number string) (bool, error) {
	_, err := r.GetByNumber(ctx, number)
	if shared.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (r certificationRepo) Create(_ context.Context, c *certification.UserCertification) error {
	if err := r.t.begin("CreateCertificate", true); err != nil {
		return err
	}
	for _, other := range r.t.view.certs.rows {
		if other.CertificateNumber == c.CertificateNumber {
			return shared.ErrCertificateNumberTaken
		}
		if other.LearnerID == c.LearnerID && other.CertificationID == c.CertificationID && !other.Revoked {
			return shared.ErrCertificateAlreadyIssued
		}
	}
	r.t.certs.touch(c.ID, absent)
	return r.t.view.certs.save(c.ID, c)
}

func (r certificationRepo) Update(_ context.Context, c *certification.UserCertification) error {
	if err := r.t.begin("UpdateCertificate", true); err != nil {
		return err
	}
	if _, ok := r.t.view.certs.get(c.ID); !ok {
		return shared.ErrCertificateNotFound
	}
	r.t.certs.touch(c.ID, r.t.view.certs.version(c.ID))
	return r.t.view.certs.save(c.ID, c)
}
