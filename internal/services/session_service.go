package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/mastery-service/internal/composer"
	"github.com/SAP-F-2025/mastery-service/internal/config"
	"github.com/SAP-F-2025/mastery-service/internal/events"
	"github.com/SAP-F-2025/mastery-service/internal/mastery"
	"github.com/SAP-F-2025/mastery-service/internal/models"
	"github.com/SAP-F-2025/mastery-service/internal/profile"
	"github.com/SAP-F-2025/mastery-service/internal/remediation"
	"github.com/SAP-F-2025/mastery-service/internal/utils"
	"github.com/SAP-F-2025/mastery-service/internal/validator"
)

// ===== REQUEST / RESPONSE TYPES =====

type StartSessionRequest struct {
	UserID        string                 `json:"user_id" validate:"required"`
	Subject       string                 `json:"subject" validate:"required"`
	Topic         string                 `json:"topic" validate:"required_without=Questions"`
	QuestionCount int                    `json:"question_count" validate:"required_without=Questions,omitempty,min=1,max=50"`
	Kind          models.QuestionKind    `json:"kind" validate:"omitempty,question_kind"`
	Difficulty    models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	UseWeakTopics bool                   `json:"use_weak_topics"`

	// Questions may be supplied directly, bypassing generation.
	Questions []models.Question `json:"questions" validate:"omitempty,min=1,dive"`
}

type SubmitAnswerRequest struct {
	QuestionID string `json:"question_id" validate:"required"`
	Answer     string `json:"answer"`
}

// QuestionView is a question as shown to the student: the correct answer
// stays server-side until scoring.
type QuestionView struct {
	ID         string                 `json:"id"`
	Text       string                 `json:"text"`
	Kind       models.QuestionKind    `json:"kind"`
	Options    []string               `json:"options,omitempty"`
	Topic      string                 `json:"topic"`
	Difficulty models.DifficultyLevel `json:"difficulty,omitempty"`
	Marks      int                    `json:"marks"`
}

type SessionResponse struct {
	SessionID string        `json:"session_id"`
	UserID    string        `json:"user_id"`
	Subject   string        `json:"subject"`
	Phase     mastery.Phase `json:"phase"`
	Attempt   int           `json:"attempt"`

	// Exactly one of the sections below is set, matching Phase.
	Questions   []QuestionView        `json:"questions,omitempty"`
	Answers     models.AttemptAnswer  `json:"answers,omitempty"`
	Remediation *remediation.State    `json:"remediation,omitempty"`
	Result      *models.SessionResult `json:"result,omitempty"`

	GenerationFailed bool `json:"generation_failed,omitempty"`
}

// ===== SERVICE =====

type SessionService interface {
	Start(ctx context.Context, req *StartSessionRequest) (*SessionResponse, error)
	Get(ctx context.Context, sessionID string) (*SessionResponse, error)
	SubmitAnswer(ctx context.Context, sessionID string, req *SubmitAnswerRequest) error
	SubmitQuiz(ctx context.Context, sessionID string) (*SessionResponse, error)
	AdvanceRemediation(ctx context.Context, sessionID string) (*SessionResponse, error)
	RetryGeneration(ctx context.Context, sessionID string) error
	Report(ctx context.Context, sessionID string) (*models.AssessmentReport, error)
	Abandon(ctx context.Context, sessionID string) error
}

type liveSession struct {
	id         string
	userID     string
	subject    string
	controller *mastery.Controller

	mu        sync.Mutex
	report    *models.AssessmentReport
	reportErr error
}

type sessionService struct {
	mu       sync.RWMutex
	sessions map[string]*liveSession
	byUser   map[string]string // userID -> active session ID

	profile   *profile.Store
	content   ContentService
	composer  *composer.Composer
	publisher events.EventPublisher
	validator *validator.Validator
	logger    utils.Logger
	tuning    config.Tuning
}

func NewSessionService(
	profileStore *profile.Store,
	content ContentService,
	quizComposer *composer.Composer,
	publisher events.EventPublisher,
	v *validator.Validator,
	logger utils.Logger,
	tuning config.Tuning,
) SessionService {
	return &sessionService{
		sessions:  make(map[string]*liveSession),
		byUser:    make(map[string]string),
		profile:   profileStore,
		content:   content,
		composer:  quizComposer,
		publisher: publisher,
		validator: v,
		logger:    logger,
		tuning:    tuning,
	}
}

func (s *sessionService) Start(ctx context.Context, req *StartSessionRequest) (*SessionResponse, error) {
	s.logger.Info("Starting mastery session",
		"user_id", req.UserID,
		"subject", req.Subject,
		"question_count", req.QuestionCount)

	if err := s.validator.Validate(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	sess := &liveSession{
		id:      uuid.NewString(),
		userID:  req.UserID,
		subject: req.Subject,
	}

	// Claim the user's slot before composing: composition calls the
	// generator, and without the claim two concurrent starts for the same
	// user would both pass the active-session check and both register.
	s.mu.Lock()
	if activeID, ok := s.byUser[req.UserID]; ok {
		existing, exists := s.sessions[activeID]
		// A claim with no registered session belongs to a concurrent
		// Start that is still composing its quiz.
		if !exists || existing.controller.State().Phase() != mastery.PhaseMastered {
			s.mu.Unlock()
			return nil, ErrSessionAlreadyActive
		}
	}
	s.byUser[req.UserID] = sess.id
	s.mu.Unlock()

	questions := req.Questions
	if len(questions) == 0 {
		plan, err := s.composer.Plan(ctx, &composer.ComposeRequest{
			UserID:        req.UserID,
			Subject:       req.Subject,
			Topic:         req.Topic,
			QuestionCount: req.QuestionCount,
			Kind:          req.Kind,
			Difficulty:    req.Difficulty,
			UseWeakTopics: req.UseWeakTopics,
		})
		if err != nil {
			s.releaseClaim(req.UserID, sess.id)
			return nil, err
		}
		questions, err = s.composer.Generate(ctx, plan)
		if err != nil {
			s.releaseClaim(req.UserID, sess.id)
			return nil, err
		}
	}

	sess.controller = mastery.NewController(
		mastery.Config{
			PassThreshold:  s.tuning.PassThreshold,
			FlashcardCount: s.tuning.FlashcardCount,
			Remediation: remediation.Config{
				NotesDwell:      s.tuning.NotesDwell,
				FlashcardsDwell: s.tuning.FlashcardsDwell,
			},
		},
		s.content,
		s.content,
		mastery.Hooks{
			OnMastered:           s.masteredHook(sess),
			OnRemediationStarted: s.remediationHook(sess),
		},
		s.logger.With("session_id", sess.id),
	)

	if err := sess.controller.Begin(questions); err != nil {
		s.releaseClaim(req.UserID, sess.id)
		return nil, err
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.publish(events.NewSessionEvent(events.EventSessionStarted, events.SessionStartedData{
		SessionID:     sess.id,
		UserID:        sess.userID,
		Subject:       sess.subject,
		QuestionCount: len(questions),
	}))

	s.logger.Info("Mastery session started", "session_id", sess.id, "user_id", req.UserID)
	return s.buildResponse(sess), nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*SessionResponse, error) {
	sess, err := s.find(sessionID)
	if err != nil {
		return nil, err
	}
	return s.buildResponse(sess), nil
}

func (s *sessionService) SubmitAnswer(ctx context.Context, sessionID string, req *SubmitAnswerRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	sess, err := s.find(sessionID)
	if err != nil {
		return err
	}
	return sess.controller.SubmitAnswer(req.QuestionID, req.Answer)
}

func (s *sessionService) SubmitQuiz(ctx context.Context, sessionID string) (*SessionResponse, error) {
	sess, err := s.find(sessionID)
	if err != nil {
		return nil, err
	}
	if _, err := sess.controller.SubmitQuiz(ctx); err != nil {
		return nil, err
	}
	return s.buildResponse(sess), nil
}

func (s *sessionService) AdvanceRemediation(ctx context.Context, sessionID string) (*SessionResponse, error) {
	sess, err := s.find(sessionID)
	if err != nil {
		return nil, err
	}
	// An early advance is a guarded no-op by design; the refreshed state
	// carries the remaining dwell either way.
	if _, err := sess.controller.AdvanceRemediation(); err != nil {
		return nil, err
	}
	return s.buildResponse(sess), nil
}

func (s *sessionService) RetryGeneration(ctx context.Context, sessionID string) error {
	sess, err := s.find(sessionID)
	if err != nil {
		return err
	}
	return sess.controller.RetryGeneration()
}

func (s *sessionService) Report(ctx context.Context, sessionID string) (*models.AssessmentReport, error) {
	sess, err := s.find(sessionID)
	if err != nil {
		return nil, err
	}
	if sess.controller.State().Phase() != mastery.PhaseMastered {
		return nil, NewBusinessRuleError("report_requires_mastery",
			"detailed report is only available once the session is mastered",
			map[string]interface{}{"session_id": sessionID})
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.report != nil {
		return sess.report, nil
	}
	if sess.reportErr != nil {
		// Surface the failure once and re-fire generation so a later
		// call can succeed instead of returning the same error forever.
		reportErr := sess.reportErr
		sess.reportErr = nil
		go s.generateReport(sess, sess.controller.Result())
		return nil, reportErr
	}
	return nil, ErrReportPending
}

func (s *sessionService) Abandon(ctx context.Context, sessionID string) error {
	sess, err := s.find(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, sessionID)
	if s.byUser[sess.userID] == sessionID {
		delete(s.byUser, sess.userID)
	}
	s.mu.Unlock()

	// No profile mutation: weakness updates only happen on the mastered
	// transition, which an abandoned session never reaches. In-flight
	// generator responses are discarded by the controller's epoch check.
	s.logger.Info("Mastery session abandoned", "session_id", sessionID, "user_id", sess.userID)
	return nil
}

// ===== TRANSITION HOOKS =====

func (s *sessionService) masteredHook(sess *liveSession) func(*models.SessionResult, int) {
	return func(result *models.SessionResult, attempt int) {
		ctx := context.Background()
		if err := s.profile.ApplySession(ctx, sess.userID, sess.subject, result); err != nil {
			s.logger.LogError(err, "Failed to apply session to weakness profile",
				"session_id", sess.id, "user_id", sess.userID)
		}

		s.publish(events.NewSessionCompletedEvent(sess.id, sess.userID, sess.subject, attempt, result))
		s.publish(events.NewSessionEvent(events.EventMasteryAchieved, events.MasteryAchievedData{
			SessionID:    sess.id,
			UserID:       sess.userID,
			Subject:      sess.subject,
			ScorePercent: result.ScorePercent,
			Attempts:     attempt,
		}))

		// Detached: the mastered transition never waits for the report.
		go s.generateReport(sess, result)
	}
}

func (s *sessionService) remediationHook(sess *liveSession) func(int, []string) {
	return func(attempt int, weakTopics []string) {
		s.publish(events.NewSessionEvent(events.EventRemediationStarted, events.RemediationStartedData{
			SessionID:  sess.id,
			UserID:     sess.userID,
			Attempt:    attempt,
			WeakTopics: weakTopics,
		}))
	}
}

func (s *sessionService) generateReport(sess *liveSession, result *models.SessionResult) {
	report, err := s.content.DetailedReport(context.Background(), sess.subject, result)

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err != nil {
		sess.reportErr = err
		s.logger.LogError(err, "Detailed report generation failed", "session_id", sess.id)
		return
	}
	sess.report = report
	sess.reportErr = nil
}

// ===== HELPERS =====

// releaseClaim frees the user's slot when a start fails between claiming
// and registering.
func (s *sessionService) releaseClaim(userID, sessionID string) {
	s.mu.Lock()
	if s.byUser[userID] == sessionID {
		delete(s.byUser, userID)
	}
	s.mu.Unlock()
}

func (s *sessionService) find(sessionID string) (*liveSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (s *sessionService) publish(event *events.SessionEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSessionEvent(context.Background(), event); err != nil {
		s.logger.LogError(err, "Failed to publish session event", "event_type", event.Type)
	}
}

func (s *sessionService) buildResponse(sess *liveSession) *SessionResponse {
	state := sess.controller.State()
	resp := &SessionResponse{
		SessionID: sess.id,
		UserID:    sess.userID,
		Subject:   sess.subject,
		Phase:     state.Phase(),
		Attempt:   sess.controller.Attempt(),
	}

	switch st := state.(type) {
	case mastery.Quiz:
		resp.Questions = questionViews(st.Questions)
		resp.Answers = st.Answers
	case mastery.Remediation:
		gate := st.Gate
		resp.Remediation = &gate
		resp.GenerationFailed = st.GenerationFailed
	case mastery.Mastered:
		resp.Result = st.Result
	}
	return resp
}

func questionViews(questions []models.Question) []QuestionView {
	views := make([]QuestionView, len(questions))
	for i, q := range questions {
		views[i] = QuestionView{
			ID:         q.ID,
			Text:       q.Text,
			Kind:       q.Kind,
			Options:    q.Options,
			Topic:      q.Topic,
			Difficulty: q.Difficulty,
			Marks:      q.MaxMarks(),
		}
	}
	return views
}
