// Package mastery implements the loop controller: the state machine that
// drives one quiz attempt through scoring, gated remediation and
// repeat-until-mastery.
package mastery

import (
	"context"
	"fmt"
	"sync"

	"github.com/SAP-F-2025/mastery-service/internal/models"
	"github.com/SAP-F-2025/mastery-service/internal/remediation"
	"github.com/SAP-F-2025/mastery-service/internal/scoring"
	"github.com/SAP-F-2025/mastery-service/internal/utils"
)

// DefaultFlashcardCount is how many flashcards a remediation gate requests
// when the config leaves it unset.
const DefaultFlashcardCount = 4

var (
	ErrNotIdle             = fmt.Errorf("loop already started")
	ErrQuizNotActive       = fmt.Errorf("quiz is not active")
	ErrRemediationInactive = fmt.Errorf("remediation is not active")
	ErrUnknownQuestion     = fmt.Errorf("question not in current set")
	ErrUnansweredQuestions = fmt.Errorf("quiz has unanswered questions")
	ErrEmptyQuestionSet    = fmt.Errorf("question set is empty")
)

// NotesSource produces remediation notes text for a weak-topic list.
type NotesSource interface {
	RemediationNotes(ctx context.Context, topics []string) (string, error)
}

// FlashcardSource produces remediation flashcards targeted at exactly the
// weak topics of the failed attempt.
type FlashcardSource interface {
	Flashcards(ctx context.Context, topics []string, count int) ([]models.Flashcard, error)
}

// Hooks are invoked synchronously during transitions. Long-running work
// (report generation, event publishing to a broker) belongs in the hook
// owner, detached from the transition.
type Hooks struct {
	OnMastered           func(result *models.SessionResult, attempt int)
	OnRemediationStarted func(attempt int, weakTopics []string)
}

type Config struct {
	PassThreshold  int
	FlashcardCount int
	Remediation    remediation.Config
}

// Controller runs one mastery loop. It is driven by discrete external
// events (submit, advance, generator responses) and is safe for concurrent
// callers; the generator fetches it spawns deliver their results back
// through an epoch check so responses for a superseded state are
// discarded.
type Controller struct {
	mu sync.Mutex

	cfg    Config
	notes  NotesSource
	cards  FlashcardSource
	hooks  Hooks
	logger utils.Logger

	phase     Phase
	questions []models.Question
	answers   models.AttemptAnswer
	attempt   int
	gate      *remediation.Gate
	result    *models.SessionResult
	genFailed bool

	// epoch bumps whenever the loop leaves remediation, invalidating
	// in-flight generator responses.
	epoch uint64
}

func NewController(cfg Config, notes NotesSource, cards FlashcardSource, hooks Hooks, logger utils.Logger) *Controller {
	if cfg.PassThreshold <= 0 {
		cfg.PassThreshold = scoring.PassThreshold
	}
	if cfg.FlashcardCount <= 0 {
		cfg.FlashcardCount = DefaultFlashcardCount
	}
	return &Controller{
		cfg:    cfg,
		notes:  notes,
		cards:  cards,
		hooks:  hooks,
		logger: logger,
		phase:  PhaseIdle,
	}
}

// Begin supplies the question set and moves Idle -> Quiz.
func (c *Controller) Begin(questions []models.Question) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseIdle {
		return ErrNotIdle
	}
	if len(questions) == 0 {
		return ErrEmptyQuestionSet
	}

	c.questions = questions
	c.answers = make(models.AttemptAnswer)
	c.attempt = 1
	c.phase = PhaseQuiz
	return nil
}

// SubmitAnswer records one answer during the quiz phase.
func (c *Controller) SubmitAnswer(questionID, answer string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseQuiz {
		return ErrQuizNotActive
	}
	if !c.hasQuestion(questionID) {
		return ErrUnknownQuestion
	}
	c.answers[questionID] = answer
	return nil
}

// SubmitQuiz freezes the answers and runs scoring. A submission with
// unanswered questions is rejected at this boundary; it never becomes a
// runtime error inside the machine. On pass the loop terminates in
// Mastered; on fail it enters the remediation gate and kicks off the
// notes request.
func (c *Controller) SubmitQuiz(ctx context.Context) (*models.SessionResult, error) {
	c.mu.Lock()

	if c.phase != PhaseQuiz {
		c.mu.Unlock()
		return nil, ErrQuizNotActive
	}
	for _, q := range c.questions {
		if _, ok := c.answers[q.ID]; !ok {
			c.mu.Unlock()
			return nil, ErrUnansweredQuestions
		}
	}

	c.phase = PhaseScoring
	result := scoring.ScoreWithThreshold(c.questions, c.answers, c.cfg.PassThreshold)
	c.result = result

	if result.Passed {
		c.phase = PhaseMastered
		attempt := c.attempt
		c.mu.Unlock()

		c.logger.Info("Quiz mastered",
			"score_percent", result.ScorePercent,
			"attempt", attempt)
		if c.hooks.OnMastered != nil {
			c.hooks.OnMastered(result, attempt)
		}
		return result, nil
	}

	c.attempt++
	c.genFailed = false
	c.gate = remediation.Begin(result.WeakTopics, c.cfg.Remediation)
	c.phase = PhaseRemediation
	attempt := c.attempt
	epoch := c.epoch
	topics := result.WeakTopics
	c.mu.Unlock()

	c.logger.Info("Quiz failed, entering remediation",
		"score_percent", result.ScorePercent,
		"attempt", attempt,
		"weak_topics", topics)
	if c.hooks.OnRemediationStarted != nil {
		c.hooks.OnRemediationStarted(attempt, topics)
	}
	go c.fetchNotes(epoch, topics)

	return result, nil
}

// AdvanceRemediation tries to move the gate forward. Before the dwell
// elapses this is a guarded no-op and the returned bool is false.
// Notes -> Flashcards triggers the flashcard request; completing the gate
// loops back to Quiz with cleared answers and the same question set.
func (c *Controller) AdvanceRemediation() (bool, error) {
	c.mu.Lock()

	if c.phase != PhaseRemediation || c.gate == nil {
		c.mu.Unlock()
		return false, ErrRemediationInactive
	}
	if !c.gate.Advance() {
		c.mu.Unlock()
		return false, nil
	}

	switch c.gate.Stage() {
	case remediation.StageFlashcards:
		epoch := c.epoch
		topics := c.gate.WeakTopics()
		c.genFailed = false
		c.mu.Unlock()
		go c.fetchFlashcards(epoch, topics)
		return true, nil

	case remediation.StageComplete:
		// Loop-back: same questions, fresh answers. Epoch bump discards
		// any generator response still in flight.
		c.epoch++
		c.answers = make(models.AttemptAnswer)
		c.gate = nil
		c.genFailed = false
		c.phase = PhaseQuiz
		attempt := c.attempt
		c.mu.Unlock()

		c.logger.Info("Remediation complete, restarting quiz", "attempt", attempt)
		return true, nil
	}

	c.mu.Unlock()
	return true, nil
}

// RetryGeneration refires the current remediation stage's generator
// request after a transport failure. No-op when nothing failed.
func (c *Controller) RetryGeneration() error {
	c.mu.Lock()

	if c.phase != PhaseRemediation || c.gate == nil {
		c.mu.Unlock()
		return ErrRemediationInactive
	}
	if !c.genFailed {
		c.mu.Unlock()
		return nil
	}
	c.genFailed = false
	epoch := c.epoch
	stage := c.gate.Stage()
	topics := c.gate.WeakTopics()
	c.mu.Unlock()

	switch stage {
	case remediation.StageNotes:
		go c.fetchNotes(epoch, topics)
	case remediation.StageFlashcards:
		go c.fetchFlashcards(epoch, topics)
	}
	return nil
}

// State returns a snapshot of the current loop state.
func (c *Controller) State() LoopState {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phase {
	case PhaseIdle:
		return Idle{}
	case PhaseQuiz:
		return Quiz{
			Questions: c.questions,
			Answers:   c.copyAnswers(),
			Attempt:   c.attempt,
		}
	case PhaseScoring:
		return Scoring{}
	case PhaseRemediation:
		return Remediation{
			Gate:             c.gate.Snapshot(),
			Attempt:          c.attempt,
			GenerationFailed: c.genFailed,
		}
	default:
		return Mastered{Result: c.result, Attempt: c.attempt}
	}
}

// Attempt returns the current attempt counter.
func (c *Controller) Attempt() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempt
}

// Result returns the latest scoring result, nil before the first scoring
// pass.
func (c *Controller) Result() *models.SessionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

func (c *Controller) hasQuestion(id string) bool {
	for _, q := range c.questions {
		if q.ID == id {
			return true
		}
	}
	return false
}

func (c *Controller) copyAnswers() models.AttemptAnswer {
	copied := make(models.AttemptAnswer, len(c.answers))
	for k, v := range c.answers {
		copied[k] = v
	}
	return copied
}

// fetchNotes runs detached from the transition that spawned it. The result
// is dropped unless the loop is still in the same remediation pass.
func (c *Controller) fetchNotes(epoch uint64, topics []string) {
	if c.notes == nil {
		return
	}
	text, err := c.notes.RemediationNotes(context.Background(), topics)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseRemediation || c.gate == nil || c.epoch != epoch {
		return
	}
	if err != nil {
		c.genFailed = true
		c.logger.LogError(err, "Remediation notes generation failed", "weak_topics", topics)
		return
	}
	c.gate.SetNotes(text)
}

func (c *Controller) fetchFlashcards(epoch uint64, topics []string) {
	if c.cards == nil {
		return
	}
	cards, err := c.cards.Flashcards(context.Background(), topics, c.cfg.FlashcardCount)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseRemediation || c.gate == nil || c.epoch != epoch {
		return
	}
	if err != nil {
		c.genFailed = true
		c.logger.LogError(err, "Remediation flashcard generation failed", "weak_topics", topics)
		return
	}
	c.gate.SetFlashcards(cards)
}
