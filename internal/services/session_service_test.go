package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/mastery-service/internal/composer"
	"github.com/SAP-F-2025/mastery-service/internal/config"
	"github.com/SAP-F-2025/mastery-service/internal/events"
	"github.com/SAP-F-2025/mastery-service/internal/generator"
	"github.com/SAP-F-2025/mastery-service/internal/mastery"
	"github.com/SAP-F-2025/mastery-service/internal/models"
	"github.com/SAP-F-2025/mastery-service/internal/profile"
	"github.com/SAP-F-2025/mastery-service/internal/repositories"
	"github.com/SAP-F-2025/mastery-service/internal/utils"
	"github.com/SAP-F-2025/mastery-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	service   SessionService
	store     *profile.Store
	publisher *events.MockEventPublisher
	client    *generator.MockClient
}

func newFixture(t *testing.T, responses ...string) *fixture {
	t.Helper()
	return newFixtureWithClient(t, generator.NewMockClient(responses...))
}

func newFixtureWithClient(t *testing.T, client generator.Client) *fixture {
	t.Helper()
	logger := utils.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	store := profile.NewStore(repositories.NewMemoryProfileRepository(), nil, logger, profile.DefaultConfig())
	content := NewContentService(client, logger)
	quizComposer := composer.New(store, client, logger, composer.Config{})
	publisher := events.NewMockEventPublisher(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	tuning := config.Tuning{
		PassThreshold:   60,
		WeakScoreCutoff: 70,
		SmoothingFactor: 0.7,
		NotesDwell:      5 * time.Millisecond,
		FlashcardsDwell: 5 * time.Millisecond,
		FlashcardCount:  4,
	}
	mock, _ := client.(*generator.MockClient)
	return &fixture{
		service:   NewSessionService(store, content, quizComposer, publisher, validator.New(), logger, tuning),
		store:     store,
		publisher: publisher,
		client:    mock,
	}
}

func startRequest(questions ...models.Question) *StartSessionRequest {
	return &StartSessionRequest{
		UserID:    "u1",
		Subject:   "Physics",
		Questions: questions,
	}
}

func testQuestions() []models.Question {
	return []models.Question{
		{ID: "q1", Text: "1", Kind: models.KindShortAnswer, CorrectAnswer: "a", Topic: "Kinematics"},
		{ID: "q2", Text: "2", Kind: models.KindShortAnswer, CorrectAnswer: "b", Topic: "Kinematics"},
		{ID: "q3", Text: "3", Kind: models.KindShortAnswer, CorrectAnswer: "c", Topic: "Energy"},
	}
}

func TestSessionService_StartValidatesRequest(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Start(context.Background(), &StartSessionRequest{Subject: "Physics"})
	assert.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestSessionService_StartRejectsSecondActiveSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Start(ctx, startRequest(testQuestions()...))
	require.NoError(t, err)

	_, err = f.service.Start(ctx, startRequest(testQuestions()...))
	assert.ErrorIs(t, err, ErrSessionAlreadyActive)
}

func TestSessionService_QuestionViewsHideCorrectAnswers(t *testing.T) {
	f := newFixture(t)
	resp, err := f.service.Start(context.Background(), startRequest(testQuestions()...))
	require.NoError(t, err)

	require.Len(t, resp.Questions, 3)
	assert.Equal(t, mastery.PhaseQuiz, resp.Phase)
	assert.Equal(t, 1, resp.Attempt)
}

func TestSessionService_PassUpdatesProfileAndPublishes(t *testing.T) {
	report := `{"overall_analysis":"good","strengths":["Kinematics"],"weaknesses":[],"detailed_feedback":[],"remediation_notes":""}`
	f := newFixture(t, report)
	ctx := context.Background()

	resp, err := f.service.Start(ctx, startRequest(testQuestions()...))
	require.NoError(t, err)
	id := resp.SessionID

	for qid, ans := range map[string]string{"q1": "a", "q2": "b", "q3": "wrong"} {
		require.NoError(t, f.service.SubmitAnswer(ctx, id, &SubmitAnswerRequest{QuestionID: qid, Answer: ans}))
	}

	resp, err = f.service.SubmitQuiz(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, mastery.PhaseMastered, resp.Phase)
	require.NotNil(t, resp.Result)
	assert.Equal(t, 67, resp.Result.ScorePercent)

	// Profile upserted for every topic in items.
	records, err := f.store.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, records, 2)

	// Events: started, completed, mastery achieved.
	published := f.publisher.GetPublishedEvents()
	types := make([]events.EventType, len(published))
	for i, e := range published {
		types[i] = e.Type
	}
	assert.Contains(t, types, events.EventSessionStarted)
	assert.Contains(t, types, events.EventSessionCompleted)
	assert.Contains(t, types, events.EventMasteryAchieved)

	// The detailed report resolves without blocking the transition.
	assert.Eventually(t, func() bool {
		rep, err := f.service.Report(ctx, id)
		return err == nil && rep.OverallAnalysis == "good"
	}, time.Second, 5*time.Millisecond)
}

func TestSessionService_FailEntersRemediationAndLoopsBack(t *testing.T) {
	notes := "Revise kinematics and energy."
	cards := `{"flashcards":[{"question":"q","answer":"a"},{"question":"q2","answer":"a2"}]}`
	f := newFixture(t, notes, cards)
	ctx := context.Background()

	resp, err := f.service.Start(ctx, startRequest(testQuestions()...))
	require.NoError(t, err)
	id := resp.SessionID

	for qid, ans := range map[string]string{"q1": "no", "q2": "no", "q3": "no"} {
		require.NoError(t, f.service.SubmitAnswer(ctx, id, &SubmitAnswerRequest{QuestionID: qid, Answer: ans}))
	}

	resp, err = f.service.SubmitQuiz(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, mastery.PhaseRemediation, resp.Phase)
	assert.Equal(t, 2, resp.Attempt)
	require.NotNil(t, resp.Remediation)

	// No profile mutation on the failing path.
	records, err := f.store.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, records)

	// Dwell, advance to flashcards, dwell, advance back to quiz.
	time.Sleep(10 * time.Millisecond)
	resp, err = f.service.AdvanceRemediation(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, resp.Remediation)

	time.Sleep(10 * time.Millisecond)
	resp, err = f.service.AdvanceRemediation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, mastery.PhaseQuiz, resp.Phase)
	assert.Equal(t, 2, resp.Attempt)
	assert.Empty(t, resp.Answers)
	assert.Len(t, resp.Questions, 3)
}

func TestSessionService_SubmitWithUnansweredRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.Start(ctx, startRequest(testQuestions()...))
	require.NoError(t, err)

	_, err = f.service.SubmitQuiz(ctx, resp.SessionID)
	assert.ErrorIs(t, err, mastery.ErrUnansweredQuestions)
	assert.True(t, IsInvalidSubmission(err))
}

func TestSessionService_ReportBeforeMastery(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.Start(ctx, startRequest(testQuestions()...))
	require.NoError(t, err)

	_, err = f.service.Report(ctx, resp.SessionID)
	var bre *BusinessRuleError
	assert.ErrorAs(t, err, &bre)
}

func TestSessionService_AbandonDiscardsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.service.Start(ctx, startRequest(testQuestions()...))
	require.NoError(t, err)
	require.NoError(t, f.service.Abandon(ctx, resp.SessionID))

	_, err = f.service.Get(ctx, resp.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Abandoning released the user's active slot.
	_, err = f.service.Start(ctx, startRequest(testQuestions()...))
	assert.NoError(t, err)

	// The abandoned session never touched the profile.
	records, err := f.store.Snapshot(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

// slowClient delays every generator call, widening the window between the
// active-session check and registration.
type slowClient struct {
	inner generator.Client
	delay time.Duration
}

func (c *slowClient) Generate(ctx context.Context, req generator.Request) (string, error) {
	time.Sleep(c.delay)
	return c.inner.Generate(ctx, req)
}

func TestSessionService_ConcurrentStartsRegisterOneSession(t *testing.T) {
	questionsJSON := `{"questions":[{"id":"q1","text":"t","kind":"short_answer","correct_answer":"a","topic":"Kinematics"}]}`
	f := newFixtureWithClient(t, &slowClient{
		inner: generator.NewMockClient(questionsJSON),
		delay: 50 * time.Millisecond,
	})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	ids := make([]string, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := f.service.Start(ctx, &StartSessionRequest{
				UserID:        "u1",
				Subject:       "Physics",
				Topic:         "Kinematics",
				QuestionCount: 1,
			})
			errs[i] = err
			if err == nil {
				ids[i] = resp.SessionID
			}
		}(i)
	}
	wg.Wait()

	started, rejected := 0, 0
	for i := range errs {
		if errs[i] == nil {
			started++
		} else {
			rejected++
			assert.ErrorIs(t, errs[i], ErrSessionAlreadyActive)
		}
	}
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, rejected)

	for _, id := range ids {
		if id == "" {
			continue
		}
		_, err := f.service.Get(ctx, id)
		assert.NoError(t, err)
	}
}

func TestSessionService_FailedComposeReleasesUserSlot(t *testing.T) {
	f := newFixture(t)
	f.client.SetError(&generator.TransportError{Err: errors.New("generator down")})
	ctx := context.Background()

	_, err := f.service.Start(ctx, &StartSessionRequest{
		UserID:        "u1",
		Subject:       "Physics",
		Topic:         "Kinematics",
		QuestionCount: 1,
	})
	require.Error(t, err)
	assert.True(t, IsRetryableGeneration(err))

	// The failed start must not leave the user's slot claimed.
	f.client.SetError(nil)
	_, err = f.service.Start(ctx, startRequest(testQuestions()...))
	assert.NoError(t, err)
}

func TestSessionService_ReportRetriesAfterTransportFailure(t *testing.T) {
	report := `{"overall_analysis":"solid","strengths":["Kinematics"],"weaknesses":[],"detailed_feedback":[],"remediation_notes":""}`
	f := newFixture(t, report)
	f.client.SetError(&generator.TransportError{Err: errors.New("generator down")})
	ctx := context.Background()

	resp, err := f.service.Start(ctx, startRequest(testQuestions()...))
	require.NoError(t, err)
	id := resp.SessionID

	for qid, ans := range map[string]string{"q1": "a", "q2": "b", "q3": "c"} {
		require.NoError(t, f.service.SubmitAnswer(ctx, id, &SubmitAnswerRequest{QuestionID: qid, Answer: ans}))
	}
	resp, err = f.service.SubmitQuiz(ctx, id)
	require.NoError(t, err)
	require.Equal(t, mastery.PhaseMastered, resp.Phase)

	// The transport failure surfaces as retryable, not as a dead end.
	var reportErr error
	require.Eventually(t, func() bool {
		_, err := f.service.Report(ctx, id)
		if err == nil || errors.Is(err, ErrReportPending) {
			return false
		}
		reportErr = err
		return true
	}, time.Second, 5*time.Millisecond)
	assert.True(t, IsRetryableGeneration(reportErr))

	// Once the generator recovers, polling converges on the report.
	f.client.SetError(nil)
	assert.Eventually(t, func() bool {
		rep, err := f.service.Report(ctx, id)
		return err == nil && rep.OverallAnalysis == "solid"
	}, time.Second, 5*time.Millisecond)
}

func TestSessionService_UnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.service.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.True(t, IsNotFound(err))
}
