package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/lingo-progress/internal/application/command"
	"github.com/alem-hub/lingo-progress/internal/application/engine"
	"github.com/alem-hub/lingo-progress/internal/application/query"
	"github.com/alem-hub/lingo-progress/internal/domain/catalog"
	"github.com/alem-hub/lingo-progress/internal/domain/certification"
	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/internal/domain/grading"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
	"github.com/alem-hub/lingo-progress/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/lingo-progress/internal/interface/http/handlers"
)

const (
	testSecret = "test-secret"
	testIssuer = "lingo-progress"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

type testServer struct {
	handler http.Handler
	auth    *handlers.JWTAuth
	token   string
}

// newTestServer wires a one-lesson course against the in-memory store.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cat := memory.NewCatalog()
	cat.AddLanguage(catalog.Language{ID: "lang-es", Code: "es", Name: "Spanish"})
	cat.AddCourse(catalog.Course{ID: "c1", LanguageID: "lang-es", Title: "Basics"})
	cat.AddUnit(catalog.Unit{ID: "u1", CourseID: "c1", Order: 1, XPReward: 20})
	cat.AddLesson(catalog.Lesson{ID: "l1", UnitID: "u1", Order: 1, XPReward: 10})
	cat.AddExercise(catalog.Exercise{ID: "e1", LessonID: "l1", Type: grading.TypeMultipleChoice, CorrectAnswer: "Hola", XPReward: 2})
	score := 101.0
	cat.AddCertification(certification.Certification{
		ID: "cert-a1", CourseID: "c1", Name: "Spanish A1",
		Criteria: certification.Criteria{MinimumScore: &score},
	})

	store := memory.NewStore()
	eng := engine.New(cat, engine.DefaultConfig(), nil)
	runner := command.NewRunner(store, nil, nil, nil, nil, command.DefaultRunnerConfig())
	auth := handlers.NewJWTAuth(testSecret, testIssuer)

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	cfg.MaxBodyBytes = 1 << 10

	srv := NewServer(cfg, Dependencies{
		SubmitAnswer:        command.NewSubmitAnswerHandler(cat, eng, runner, nil),
		StartLesson:         command.NewStartLessonHandler(cat, runner, nil),
		CompleteLesson:      command.NewCompleteLessonHandler(cat, eng, runner, nil),
		RecordSession:       command.NewRecordSessionHandler(eng, runner, nil),
		IssueCertification:  command.NewIssueCertificationHandler(cat, eng, runner, nil),
		RevokeCertification: command.NewRevokeCertificationHandler(runner, nil),
		GetUserProgress:     query.NewGetUserProgressHandler(store, nil, nil, nil, gamification.DefaultDailyGoalTargets(), nil),
		CheckCertification:  query.NewCheckCertificationHandler(store, cat),
		VerifyCertificate:   query.NewVerifyCertificateHandler(store),
		Auth:                auth,
	})

	token, err := auth.IssueToken("learner-1", time.Hour, time.Now())
	require.NoError(t, err)
	return &testServer{handler: srv.Handler(), auth: auth, token: token}
}

func (s *testServer) do(t *testing.T, method, path, token, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestServer_Authentication(t *testing.T) {
	s := newTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		rec, env := s.do(t, http.MethodPost, "/v1/lessons/l1/start", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
		require.NotNil(t, env.Error)
		assert.Equal(t, "missing_token", env.Error.Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		forged, err := handlers.NewJWTAuth("other-secret", testIssuer).IssueToken("learner-1", time.Hour, time.Now())
		require.NoError(t, err)
		rec, env := s.do(t, http.MethodGet, "/v1/progress", forged, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid_token", env.Error.Code)
	})

	t.Run("expired", func(t *testing.T) {
		old, err := s.auth.IssueToken("learner-1", time.Minute, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		rec, env := s.do(t, http.MethodGet, "/v1/progress", old, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "token_expired", env.Error.Code)
	})

	t.Run("public routes stay open", func(t *testing.T) {
		rec, _ := s.do(t, http.MethodGet, "/live", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})
}

func TestServer_LessonFlow(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodPost, "/v1/lessons/l1/start", s.token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env := s.do(t, http.MethodPost, "/v1/exercises/e1/answers", s.token, `{"answer_text":"Hola","time_spent":12}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var answer command.SubmitAnswerResult
	require.NoError(t, json.Unmarshal(env.Data, &answer))
	assert.True(t, answer.IsCorrect)
	assert.Equal(t, 2, answer.XPEarned)
	assert.NotEmpty(t, answer.AnswerID)

	rec, env = s.do(t, http.MethodPost, "/v1/lessons/l1/complete", s.token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var completed struct {
		UnitCompleted        bool              `json:"unit_completed"`
		CourseCompleted      bool              `json:"course_completed"`
		XPAwarded            int               `json:"xp_awarded"`
		UnlockedAchievements []json.RawMessage `json:"unlocked_achievements"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &completed))
	assert.True(t, completed.UnitCompleted)
	assert.True(t, completed.CourseCompleted)
	assert.Equal(t, 10+20+100, completed.XPAwarded)
	assert.NotNil(t, completed.UnlockedAchievements, "empty list, never null")

	rec, env = s.do(t, http.MethodGet, "/v1/progress?fresh=true", s.token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view query.UserProgressDTO
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "learner-1", view.LearnerID)
	assert.Equal(t, 132, view.Profile.TotalXP)
	assert.Equal(t, 2, view.Profile.Level)
	require.Len(t, view.Languages, 1)
	assert.Equal(t, 132, view.Languages[0].XPEarned)

	rec, env = s.do(t, http.MethodGet, "/v1/certifications/cert-a1/eligibility", s.token, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var eligibility certification.Eligibility
	require.NoError(t, json.Unmarshal(env.Data, &eligibility))
	assert.False(t, eligibility.Eligible)
}

func TestServer_ErrorResponses(t *testing.T) {
	s := newTestServer(t)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		status int
		code   string
	}{
		{"unknown exercise", http.MethodPost, "/v1/exercises/nope/answers", s.token, `{"answer_text":"x"}`, http.StatusNotFound, "not_found"},
		{"lesson not started", http.MethodPost, "/v1/exercises/e1/answers", s.token, `{"answer_text":"Hola"}`, http.StatusConflict, "precondition_failed"},
		{"malformed body", http.MethodPost, "/v1/exercises/e1/answers", s.token, `{"answer_text":`, http.StatusBadRequest, "invalid_json"},
		{"empty body", http.MethodPost, "/v1/sessions", s.token, "", http.StatusBadRequest, "invalid_json"},
		{"unknown field", http.MethodPost, "/v1/exercises/e1/answers", s.token, `{"answer_text":"Hola","bonus":1}`, http.StatusBadRequest, "invalid_json"},
		{"blank answer", http.MethodPost, "/v1/exercises/e1/answers", s.token, `{"answer_text":""}`, http.StatusBadRequest, "validation_error"},
		{"rating out of range", http.MethodPost, "/v1/sessions", s.token, `{"duration_hours":1,"activity_type":"reading","rating":9}`, http.StatusBadRequest, "validation_error"},
		{"body too large", http.MethodPost, "/v1/sessions", s.token, `{"activity_type":"` + strings.Repeat("a", 2048) + `"}`, http.StatusRequestEntityTooLarge, "payload_too_large"},
		{"not eligible", http.MethodPost, "/v1/certifications/cert-a1/issue", s.token, "", http.StatusUnprocessableEntity, "not_eligible"},
		{"unknown certification", http.MethodGet, "/v1/certifications/nope/eligibility", s.token, "", http.StatusNotFound, "not_found"},
		{"revoke unknown certificate", http.MethodPost, "/v1/certificates/CERT-NOPE/revoke", s.token, "", http.StatusNotFound, "not_found"},
		{"verify unknown certificate", http.MethodGet, "/v1/certificates/CERT-NOPE/verify", "", "", http.StatusNotFound, "not_found"},
		{"unknown route", http.MethodGet, "/v2/progress", "", "", http.StatusNotFound, "not_found"},
		{"wrong method", http.MethodDelete, "/health", "", "", http.StatusMethodNotAllowed, "method_not_allowed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := s.do(t, tc.method, tc.path, tc.token, tc.body)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.False(t, env.Success)
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.code, env.Error.Code)
		})
	}
}

func TestStatusForError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{shared.ErrInvalidHintsUsed, http.StatusBadRequest},
		{shared.ErrInvalidRating, http.StatusBadRequest},
		{shared.ErrLessonNotFound, http.StatusNotFound},
		{shared.ErrUnauthorized, http.StatusForbidden},
		{shared.ErrCertificateAlreadyIssued, http.StatusConflict},
		{shared.ErrOptimisticLock, http.StatusConflict},
		{shared.ErrCertificateNumberTaken, http.StatusConflict},
		{shared.ErrNotEligible, http.StatusUnprocessableEntity},
		{shared.ErrLessonNotStarted, http.StatusConflict},
		{shared.ErrCertificateRevoked, http.StatusConflict},
		{shared.ErrTimeout, http.StatusServiceUnavailable},
		{shared.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		status, _ := statusForError(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
	}
}

func TestServer_Health(t *testing.T) {
	checker := handlers.NewCompositeHealthChecker("test")
	checker.AddCheck("database", func(context.Context) error { return nil })
	checker.AddCheck("cache", func(context.Context) error { return errors.New("connection refused") })

	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	srv := NewServer(cfg, Dependencies{HealthChecker: checker})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var env struct {
		Data handlers.HealthStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Data.Healthy)
	assert.Equal(t, "Some checks failed: cache", env.Data.Message)
	assert.True(t, env.Data.Checks["database"].Healthy)
}

func TestServer_CORSPreflight(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimitPerMinute = 0
	cfg.AllowedOrigins = []string{"https://app.example"}
	srv := NewServer(cfg, Dependencies{})

	req := httptest.NewRequest(http.MethodOptions, "/v1/progress", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/v1/progress", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.Stop()

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
}
