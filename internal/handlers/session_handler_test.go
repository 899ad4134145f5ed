package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"intervu/interview/internal/config"
	"intervu/interview/internal/middleware"
	"intervu/interview/internal/models"
	"intervu/interview/internal/reasoning"
	"intervu/interview/internal/repositories"
	"intervu/interview/internal/session"
	"intervu/interview/internal/speech"
	"intervu/interview/internal/utils"
)

// stubProvider replays scripted responses keyed by prompt. The prompt stub
// below returns the mode name as the prompt, so scripts are keyed by mode.
type stubProvider struct {
	mu        sync.Mutex
	responses map[string][]string
	calls     map[string]int
}

func newStubProvider() *stubProvider {
	return &stubProvider{responses: map[string][]string{}, calls: map[string]int{}}
}

func (s *stubProvider) GenerateText(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[prompt]++
	queue := s.responses[prompt]
	if len(queue) == 0 {
		return "", fmt.Errorf("no scripted response for %q", prompt)
	}
	resp := queue[0]
	s.responses[prompt] = queue[1:]
	return resp, nil
}

func (s *stubProvider) GetProviderName() string { return "stub" }

func (s *stubProvider) callCount(mode string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[mode]
}

// promptStub records the data handed to each mode and echoes the mode back
// as the prompt.
type promptStub struct {
	mu      sync.Mutex
	records map[string][]map[string]string
}

func newPromptStub() *promptStub {
	return &promptStub{records: map[string][]map[string]string{}}
}

func (p *promptStub) BuildPrompt(mode string, data map[string]string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	copied := make(map[string]string, len(data))
	for k, v := range data {
		copied[k] = v
	}
	p.records[mode] = append(p.records[mode], copied)
	return mode, nil
}

func (p *promptStub) GetTemplates() []string { return nil }

func (p *promptStub) lastRecord(mode string) (map[string]string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	recs := p.records[mode]
	if len(recs) == 0 {
		return nil, false
	}
	return recs[len(recs)-1], true
}

type noopChannel struct{}

func (noopChannel) Open(ctx context.Context, listener speech.Listener) error { return nil }
func (noopChannel) SendAudio(data []byte) error                              { return nil }
func (noopChannel) Close() error                                             { return nil }

type handlerFixture struct {
	db         *gorm.DB
	router     http.Handler
	registry   *session.Registry
	provider   *stubProvider
	prompts    *promptStub
	interviews *repositories.InterviewRepository
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Interview{}, &models.InterviewQuestion{}, &models.Candidate{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	interviews := repositories.NewInterviewRepository(db)
	candidates := repositories.NewCandidateRepository(db)
	provider := newStubProvider()
	promptsRec := newPromptStub()
	gateway := reasoning.NewGateway(provider, promptsRec, time.Second, zap.NewNop())
	registry := session.NewRegistry(zap.NewNop())
	cfg := &config.Config{
		PauseWindow:     40 * time.Millisecond,
		FullscreenGrace: 50 * time.Millisecond,
		ViolationLimit:  3,
	}
	factory := speech.ChannelFactory(func() speech.Channel { return noopChannel{} })

	handler := NewSessionHandler(cfg, registry, interviews, candidates, gateway, nil, factory, zap.NewNop())

	r := chi.NewRouter()
	r.Route("/api/v1/session", func(r chi.Router) {
		r.With(middleware.ValidateRequest[*models.StartSessionRequest]()).Post("/start", handler.StartHandler)
		r.With(middleware.ValidateRequest[*models.ModerationRequest]()).Post("/response", handler.ResponseHandler)
		r.With(middleware.ValidateRequest[*models.FeedbackRequest]()).Post("/feedback", handler.FeedbackHandler)
		r.With(middleware.ValidateRequest[*models.GenerateRequest]()).Post("/generate", handler.GenerateHandler)
		r.With(middleware.ValidateRequest[*models.EndSessionRequest]()).Post("/end", handler.EndHandler)
	})

	t.Cleanup(func() {
		registry.Each(func(_ string, live *session.Live) {
			live.Controller.Terminate(session.ReasonCandidateEnded)
		})
	})

	return &handlerFixture{
		db:         db,
		router:     r,
		registry:   registry,
		provider:   provider,
		prompts:    promptsRec,
		interviews: interviews,
	}
}

func (f *handlerFixture) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *handlerFixture) seedInterview(t *testing.T, id string, status models.InterviewStatus) *models.Interview {
	t.Helper()
	interview := &models.Interview{
		InterviewID: id,
		CandidateID: "c-1",
		ScheduledAt: time.Now(),
		DurationMin: 30,
		Status:      status,
	}
	if err := f.db.Create(interview).Error; err != nil {
		t.Fatalf("failed to seed interview: %v", err)
	}
	return interview
}

func (f *handlerFixture) seedCandidate(t *testing.T) {
	t.Helper()
	candidate := &models.Candidate{
		CandidateID:   "c-1",
		Name:          "Ada",
		Email:         "ada@example.com",
		ResumeProfile: `{"skills":["Go","SQL"]}`,
	}
	if err := f.db.Create(candidate).Error; err != nil {
		t.Fatalf("failed to seed candidate: %v", err)
	}
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unparseable error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestStartSession(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedInterview(t, "iv-1", models.StatusPending)
	f.seedCandidate(t)
	f.provider.responses["greeting"] = []string{"Hello Ada, tell me about yourself."}

	rec := f.post(t, "/api/v1/session/start", models.StartSessionRequest{
		InterviewID: "iv-1", CandidateID: "c-1", Name: "Ada",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.StartSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unparseable body: %v", err)
	}
	if resp.Question != "Hello Ada, tell me about yourself." {
		t.Fatalf("unexpected question %q", resp.Question)
	}
	if resp.Section != models.SectionIntroduction {
		t.Fatalf("expected Introduction section, got %q", resp.Section)
	}
	if resp.DifficultyLevel != models.DefaultDifficulty {
		t.Fatalf("expected default difficulty, got %d", resp.DifficultyLevel)
	}

	claims, err := utils.ValidateSessionToken(resp.Token)
	if err != nil {
		t.Fatalf("returned token does not validate: %v", err)
	}
	if claims.InterviewID != "iv-1" || claims.CandidateID != "c-1" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if f.registry.Len() != 1 {
		t.Fatalf("expected one live session, got %d", f.registry.Len())
	}
}

func TestStartSessionNotFound(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.post(t, "/api/v1/session/start", models.StartSessionRequest{
		InterviewID: "missing", Name: "Ada",
	})

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "interview_not_found" {
		t.Fatalf("unexpected code %s", resp.Code)
	}
	if f.registry.Len() != 0 {
		t.Fatalf("failed start must not register a session, registry has %d", f.registry.Len())
	}
}

func TestStartSessionNotStartable(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedInterview(t, "iv-1", models.StatusCompleted)

	rec := f.post(t, "/api/v1/session/start", models.StartSessionRequest{
		InterviewID: "iv-1", Name: "Ada",
	})

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "interview_not_startable" {
		t.Fatalf("unexpected code %s", resp.Code)
	}
	if f.registry.Len() != 0 {
		t.Fatalf("failed start must not register a session, registry has %d", f.registry.Len())
	}
}

func TestStartSessionDuplicate(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedInterview(t, "iv-1", models.StatusPending)
	f.seedCandidate(t)
	f.provider.responses["greeting"] = []string{"Hello.", "Hello again."}

	first := f.post(t, "/api/v1/session/start", models.StartSessionRequest{
		InterviewID: "iv-1", Name: "Ada",
	})
	if first.Code != http.StatusOK {
		t.Fatalf("first start failed: %d %s", first.Code, first.Body.String())
	}

	second := f.post(t, "/api/v1/session/start", models.StartSessionRequest{
		InterviewID: "iv-1", Name: "Ada",
	})
	if second.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", second.Code)
	}
	if resp := decodeError(t, second); resp.Code != "session_exists" {
		t.Fatalf("unexpected code %s", resp.Code)
	}
}

func TestStartSessionMissingName(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.post(t, "/api/v1/session/start", models.StartSessionRequest{InterviewID: "iv-1"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "missing_name" {
		t.Fatalf("unexpected code %s", resp.Code)
	}
}

func TestResponseHandlerConfirm(t *testing.T) {
	f := newHandlerFixture(t)
	f.provider.responses["moderate"] = []string{
		`{"action": "confirm", "explanation": "Could you expand on that"}`,
	}

	rec := f.post(t, "/api/v1/session/response", models.ModerationRequest{
		Question: "What is a goroutine?", CandidateAnswer: "Some kind of thread",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.ModerationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unparseable body: %v", err)
	}
	if resp.Action != "confirm" {
		t.Fatalf("unexpected action %q", resp.Action)
	}
	want := "Could you expand on that. Shall we go to the next question?"
	if resp.Message != want {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestResponseHandlerNextStep(t *testing.T) {
	f := newHandlerFixture(t)
	f.provider.responses["moderate"] = []string{
		`{"action": "next_step", "explanation": "answered"}`,
	}

	rec := f.post(t, "/api/v1/session/response", models.ModerationRequest{
		Question: "What is a goroutine?", CandidateAnswer: "A lightweight thread managed by the runtime",
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp models.ModerationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unparseable body: %v", err)
	}
	if resp.Action != "next_step" {
		t.Fatalf("unexpected action %q", resp.Action)
	}
	if resp.Message != "" {
		t.Fatalf("next_step must not carry a message, got %q", resp.Message)
	}
}

func TestFeedbackIntroductionSkipsModel(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedInterview(t, "iv-1", models.StatusPending)

	rec := f.post(t, "/api/v1/session/feedback", models.FeedbackRequest{
		InterviewID:     "iv-1",
		Question:        "Please introduce yourself",
		CandidateAnswer: "I am Ada, a backend engineer",
		DifficultyLevel: models.DefaultDifficulty,
		Section:         models.SectionIntroduction,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.FeedbackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unparseable body: %v", err)
	}
	if !resp.InterviewQuestion.Correct || resp.InterviewQuestion.AIFeedback != "Great" {
		t.Fatalf("introduction turn graded unexpectedly: %+v", resp.InterviewQuestion)
	}
	if f.provider.callCount("grade") != 0 {
		t.Fatal("introduction turn must not reach the model")
	}

	turns, err := f.interviews.ListQuestions("iv-1")
	if err != nil {
		t.Fatalf("failed to list turns: %v", err)
	}
	if len(turns) != 1 || turns[0].Section != models.SectionIntroduction {
		t.Fatalf("unexpected persisted turns %+v", turns)
	}
}

func TestFeedbackGradesAndPersists(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedInterview(t, "iv-1", models.StatusPending)
	f.provider.responses["grade"] = []string{
		`{"correct": true, "aiFeedback": "Solid answer"}`,
	}

	rec := f.post(t, "/api/v1/session/feedback", models.FeedbackRequest{
		InterviewID:     "iv-1",
		Question:        "Explain channels",
		CandidateAnswer: "Typed conduits for goroutine communication",
		DifficultyLevel: 3,
		Section:         models.SectionSkills,
		ResumeProfile:   `{"skills":["Go"]}`,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.FeedbackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unparseable body: %v", err)
	}
	if !resp.InterviewQuestion.Correct || resp.InterviewQuestion.AIFeedback != "Solid answer" {
		t.Fatalf("unexpected grade %+v", resp.InterviewQuestion)
	}

	record, ok := f.prompts.lastRecord("grade")
	if !ok {
		t.Fatal("grade prompt was never built")
	}
	if record["Resume"] != `{"skills":["Go"]}` {
		t.Fatalf("supplied resume profile not forwarded, got %q", record["Resume"])
	}

	turns, err := f.interviews.ListQuestions("iv-1")
	if err != nil {
		t.Fatalf("failed to list turns: %v", err)
	}
	if len(turns) != 1 || turns[0].DifficultyLevel != 3 {
		t.Fatalf("unexpected persisted turns %+v", turns)
	}
}

func TestFeedbackDefaultsDifficulty(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedInterview(t, "iv-1", models.StatusPending)
	f.provider.responses["grade"] = []string{
		`{"correct": false, "aiFeedback": "Too vague"}`,
	}

	rec := f.post(t, "/api/v1/session/feedback", models.FeedbackRequest{
		InterviewID:     "iv-1",
		Question:        "Explain indexes",
		CandidateAnswer: "They make queries fast",
		Section:         models.SectionSkills,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	record, ok := f.prompts.lastRecord("grade")
	if !ok {
		t.Fatal("grade prompt was never built")
	}
	if record["Difficulty"] != "2" {
		t.Fatalf("omitted difficulty must default to 2 in the prompt, got %q", record["Difficulty"])
	}

	turns, err := f.interviews.ListQuestions("iv-1")
	if err != nil {
		t.Fatalf("failed to list turns: %v", err)
	}
	if len(turns) != 1 || turns[0].DifficultyLevel != models.DefaultDifficulty {
		t.Fatalf("unexpected persisted turns %+v", turns)
	}
}

func TestGenerateStepsDifficulty(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedInterview(t, "iv-1", models.StatusPending)
	f.seedCandidate(t)
	turn := &models.InterviewQuestion{
		InterviewID:     "iv-1",
		Content:         "Explain channels",
		CandidateAnswer: "Typed conduits",
		Correct:         true,
		AIFeedback:      "Good start",
		DifficultyLevel: 3,
		Section:         models.SectionSkills,
	}
	if err := f.interviews.CreateQuestion(turn); err != nil {
		t.Fatalf("failed to seed turn: %v", err)
	}
	f.provider.responses["generate"] = []string{
		`{"question": "How does the scheduler preempt goroutines?", "section": "Skills", "difficultyLevel": 4}`,
	}

	rec := f.post(t, "/api/v1/session/generate", models.GenerateRequest{
		InterviewID: "iv-1", RemainingMin: 20, DurationMin: 30,
	})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp models.GenerateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unparseable body: %v", err)
	}
	if resp.PreviousQuestionFeedback != "Good start" {
		t.Fatalf("unexpected previous feedback %q", resp.PreviousQuestionFeedback)
	}
	if resp.Question != "How does the scheduler preempt goroutines?" || resp.DifficultyLevel != 4 {
		t.Fatalf("unexpected question %+v", resp)
	}

	// a correct turn at 3 steps the requested difficulty to 4
	record, ok := f.prompts.lastRecord("generate")
	if !ok {
		t.Fatal("generate prompt was never built")
	}
	if record["Difficulty"] != "4" {
		t.Fatalf("expected difficulty 4 in prompt, got %q", record["Difficulty"])
	}
	if record["Resume"] != `{"skills":["Go","SQL"]}` {
		t.Fatalf("stored resume profile not used, got %q", record["Resume"])
	}
}

func TestEndSessionLive(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedInterview(t, "iv-1", models.StatusPending)
	f.seedCandidate(t)
	f.provider.responses["greeting"] = []string{"Hello Ada."}

	start := f.post(t, "/api/v1/session/start", models.StartSessionRequest{
		InterviewID: "iv-1", Name: "Ada",
	})
	if start.Code != http.StatusOK {
		t.Fatalf("start failed: %d %s", start.Code, start.Body.String())
	}

	rec := f.post(t, "/api/v1/session/end", models.EndSessionRequest{
		InterviewID: "iv-1", CandidateID: "c-1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	live, ok := f.registry.Get("iv-1")
	if ok {
		// the done watcher unregisters asynchronously
		select {
		case <-live.Controller.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("controller did not terminate")
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.registry.Len() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("terminated session was not unregistered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	interview, err := f.interviews.GetInterview("iv-1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if interview.Status != models.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", interview.Status)
	}
}

func TestEndSessionDirect(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedInterview(t, "iv-1", models.StatusPending)

	rec := f.post(t, "/api/v1/session/end", models.EndSessionRequest{
		InterviewID: "iv-1", CandidateID: "c-1", CompletionMin: 25,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	interview, err := f.interviews.GetInterview("iv-1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if interview.Status != models.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", interview.Status)
	}
	if interview.CompletionMin != 25 {
		t.Fatalf("expected completionMin 25, got %f", interview.CompletionMin)
	}
}

func TestEndSessionNotFound(t *testing.T) {
	f := newHandlerFixture(t)

	rec := f.post(t, "/api/v1/session/end", models.EndSessionRequest{
		InterviewID: "missing", CandidateID: "c-1",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "interview_not_found" {
		t.Fatalf("unexpected code %s", resp.Code)
	}
}

func TestEndSessionAlreadyCompleted(t *testing.T) {
	f := newHandlerFixture(t)
	f.seedInterview(t, "iv-1", models.StatusCompleted)

	rec := f.post(t, "/api/v1/session/end", models.EndSessionRequest{
		InterviewID: "iv-1", CandidateID: "c-1",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "already_completed" {
		t.Fatalf("unexpected code %s", resp.Code)
	}
}
