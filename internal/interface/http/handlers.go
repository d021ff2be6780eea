package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/alem-hub/lingo-progress/internal/application/command"
	"github.com/alem-hub/lingo-progress/internal/application/engine"
	"github.com/alem-hub/lingo-progress/internal/application/query"
	"github.com/alem-hub/lingo-progress/internal/domain/certification"
	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/internal/domain/progress"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
	"github.com/alem-hub/lingo-progress/internal/interface/http/handlers"
	"github.com/alem-hub/lingo-progress/pkg/logger"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST / RESPONSE DTOs
// ══════════════════════════════════════════════════════════════════════════════

type submitAnswerRequest struct {
	AnswerText string `json:"answer_text" validate:"required"`
	TimeSpent  *int   `json:"time_spent,omitempty" validate:"omitempty,gte=0"`
	HintsUsed  int    `json:"hints_used"`
}

type recordSessionRequest struct {
	DurationHours float64 `json:"duration_hours"`
	ActivityType  string  `json:"activity_type" validate:"required,max=64"`
	Description   string  `json:"description" validate:"max=1000"`
	Rating        *int    `json:"rating,omitempty"`
}

type startLessonResponse struct {
	Lesson    *progress.LessonProgress `json:"lesson"`
	Restarted bool                     `json:"restarted"`
}

type completeLessonResponse struct {
	Lesson               *progress.LessonProgress     `json:"lesson"`
	AlreadyCompleted     bool                         `json:"already_completed"`
	UnitCompleted        bool                         `json:"unit_completed"`
	CourseCompleted      bool                         `json:"course_completed"`
	XPAwarded            int                          `json:"xp_awarded"`
	UnlockedAchievements []engine.UnlockedAchievement `json:"unlocked_achievements"`
}

type recordSessionResponse struct {
	Profile              *gamification.LearnerProfile `json:"profile"`
	XPEarned             int                          `json:"xp_earned"`
	LevelUp              bool                         `json:"level_up"`
	NewLevel             int                          `json:"new_level"`
	Rank                 gamification.Rank            `json:"rank"`
	UnlockedAchievements []engine.UnlockedAchievement `json:"unlocked_achievements"`
}

type issueCertificationResponse struct {
	Certificate *certification.UserCertification `json:"certificate"`
	Eligibility certification.Eligibility        `json:"eligibility"`
	XPAwarded   int                              `json:"xp_awarded"`
}

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSON & EXERCISE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleSubmitAnswer handles POST /v1/exercises/{id}/answers.
func (s *Server) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := s.requireLearner(w, r)
	if !ok {
		return
	}
	var req submitAnswerRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.SubmitAnswer.Handle(r.Context(), command.SubmitAnswerCommand{
		LearnerID:  learnerID,
		ExerciseID: mux.Vars(r)["id"],
		AnswerText: req.AnswerText,
		TimeSpent:  req.TimeSpent,
		HintsUsed:  req.HintsUsed,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, result)
}

// handleStartLesson handles POST /v1/lessons/{id}/start.
func (s *Server) handleStartLesson(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := s.requireLearner(w, r)
	if !ok {
		return
	}
	result, err := s.deps.StartLesson.Handle(r.Context(), command.StartLessonCommand{
		LearnerID: learnerID,
		LessonID:  mux.Vars(r)["id"],
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, startLessonResponse{Lesson: result.Lesson, Restarted: result.Restarted})
}

// handleCompleteLesson handles POST /v1/lessons/{id}/complete.
func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := s.requireLearner(w, r)
	if !ok {
		return
	}
	result, err := s.deps.CompleteLesson.Handle(r.Context(), command.CompleteLessonCommand{
		LearnerID: learnerID,
		LessonID:  mux.Vars(r)["id"],
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, completeLessonResponse{
		Lesson:               result.Lesson,
		AlreadyCompleted:     result.AlreadyCompleted,
		UnitCompleted:        result.UnitCompleted,
		CourseCompleted:      result.CourseCompleted,
		XPAwarded:            result.XPAwarded,
		UnlockedAchievements: nonNil(result.UnlockedAchievements),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS & SESSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleGetProgress handles GET /v1/progress[?fresh=true].
func (s *Server) handleGetProgress(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := s.requireLearner(w, r)
	if !ok {
		return
	}
	result, err := s.deps.GetUserProgress.Handle(r.Context(), query.GetUserProgressQuery{
		LearnerID: learnerID,
		SkipCache: getQueryParamBool(r, "fresh"),
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleRecordSession handles POST /v1/sessions.
func (s *Server) handleRecordSession(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := s.requireLearner(w, r)
	if !ok {
		return
	}
	var req recordSessionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.deps.RecordSession.Handle(r.Context(), command.RecordSessionCommand{
		LearnerID:     learnerID,
		DurationHours: req.DurationHours,
		ActivityType:  req.ActivityType,
		Description:   req.Description,
		Rating:        req.Rating,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, recordSessionResponse{
		Profile:              result.Profile,
		XPEarned:             result.XPEarned,
		LevelUp:              result.LevelUp,
		NewLevel:             result.NewLevel,
		Rank:                 result.Rank,
		UnlockedAchievements: nonNil(result.UnlockedAchievements),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// CERTIFICATION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleCheckEligibility handles GET /v1/certifications/{id}/eligibility.
func (s *Server) handleCheckEligibility(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := s.requireLearner(w, r)
	if !ok {
		return
	}
	result, err := s.deps.CheckCertification.Handle(r.Context(), learnerID, mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleIssueCertification handles POST /v1/certifications/{id}/issue.
func (s *Server) handleIssueCertification(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := s.requireLearner(w, r)
	if !ok {
		return
	}
	result, err := s.deps.IssueCertification.Handle(r.Context(), command.IssueCertificationCommand{
		LearnerID:       learnerID,
		CertificationID: mux.Vars(r)["id"],
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, issueCertificationResponse{
		Certificate: result.Certificate,
		Eligibility: result.Eligibility,
		XPAwarded:   result.XPAwarded,
	})
}

// handleRevokeCertificate handles POST /v1/certificates/{number}/revoke.
func (s *Server) handleRevokeCertificate(w http.ResponseWriter, r *http.Request) {
	learnerID, ok := s.requireLearner(w, r)
	if !ok {
		return
	}
	result, err := s.deps.RevokeCertification.Handle(r.Context(), command.RevokeCertificationCommand{
		LearnerID:         learnerID,
		CertificateNumber: mux.Vars(r)["number"],
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleVerifyCertificate handles GET /v1/certificates/{number}/verify (public).
func (s *Server) handleVerifyCertificate(w http.ResponseWriter, r *http.Request) {
	result, err := s.deps.VerifyCertificate.Handle(r.Context(), mux.Vars(r)["number"])
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) requireLearner(w http.ResponseWriter, r *http.Request) (string, bool) {
	learnerID, ok := handlers.LearnerIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return "", false
	}
	return learnerID, true
}

// decodeBody decodes and validates a JSON body. It writes a 400 and returns
// false on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSONError(w, r, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body too large")
			return false
		}
		if errors.Is(err, io.EOF) {
			err = errors.New("empty body")
		}
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "invalid_json", "Malformed request body", err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeJSONErrorWithDetails(w, r, http.StatusBadRequest, "validation_error", "Request validation failed", err.Error())
		return false
	}
	return true
}

// statusForError maps the domain error taxonomy onto HTTP statuses.
func statusForError(err error) (int, string) {
	switch {
	case shared.IsValidation(err):
		return http.StatusBadRequest, "validation_error"
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusForbidden, "forbidden"
	case shared.IsAlreadyExists(err):
		return http.StatusConflict, "already_exists"
	case shared.IsConflict(err):
		return http.StatusConflict, "conflict"
	case errors.Is(err, shared.ErrNotEligible):
		return http.StatusUnprocessableEntity, "not_eligible"
	case shared.IsPrecondition(err):
		return http.StatusConflict, "precondition_failed"
	case errors.Is(err, shared.ErrTimeout), errors.Is(err, shared.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusForError(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			logger.Err(err),
			logger.String("path", r.URL.Path),
			logger.String("request_id", getRequestID(r.Context())),
		)
		writeJSONError(w, r, status, code, "An unexpected error occurred")
		return
	}

	message := err.Error()
	var de *shared.DomainError
	if errors.As(err, &de) {
		message = de.Message
	}
	writeJSONErrorWithDetails(w, r, status, code, message, detailsFor(de))
}

func detailsFor(de *shared.DomainError) string {
	if de == nil || de.Err == nil {
		return ""
	}
	return fmt.Sprint(de.Err)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
