// Package composer decides question count, kind mix and topic weighting
// for a new quiz attempt. Question generation itself is delegated to the
// external generator; the one rule enforced here is the weak-topic
// weighting of the request.
package composer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/SAP-F-2025/mastery-service/internal/generator"
	"github.com/SAP-F-2025/mastery-service/internal/models"
	"github.com/SAP-F-2025/mastery-service/internal/profile"
	"github.com/SAP-F-2025/mastery-service/internal/utils"
)

// DefaultWeakRatio is the minimum share of questions tagged against weak
// topics when weak-topic biasing is requested.
const DefaultWeakRatio = 0.4

const maxWeakTopicsPerQuiz = 5

type Config struct {
	WeakRatio float64
}

// ComposeRequest describes the quiz a caller wants.
type ComposeRequest struct {
	UserID        string                 `json:"user_id" validate:"required"`
	Subject       string                 `json:"subject" validate:"required"`
	Topic         string                 `json:"topic" validate:"required"`
	QuestionCount int                    `json:"question_count" validate:"required,min=1,max=50"`
	Kind          models.QuestionKind    `json:"kind" validate:"omitempty,question_kind"`
	Difficulty    models.DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	// UseWeakTopics opts in to biasing the mix toward the user's weak
	// topics from the weakness profile.
	UseWeakTopics bool `json:"use_weak_topics"`
}

// TopicWeight is one entry of the topic mix passed downstream.
type TopicWeight struct {
	Topic string `json:"topic"`
	Count int    `json:"count"`
	Weak  bool   `json:"weak"`
}

// QuizPlan is the composed request handed to the generator.
type QuizPlan struct {
	Subject       string                 `json:"subject"`
	QuestionCount int                    `json:"question_count"`
	Kind          models.QuestionKind    `json:"kind,omitempty"`
	Difficulty    models.DifficultyLevel `json:"difficulty,omitempty"`
	TopicMix      []TopicWeight          `json:"topic_mix"`
}

// WeakCount returns how many questions in the plan target weak topics.
func (p *QuizPlan) WeakCount() int {
	total := 0
	for _, tw := range p.TopicMix {
		if tw.Weak {
			total += tw.Count
		}
	}
	return total
}

type Composer struct {
	store  *profile.Store
	client generator.Client
	logger utils.Logger
	cfg    Config
}

func New(store *profile.Store, client generator.Client, logger utils.Logger, cfg Config) *Composer {
	if cfg.WeakRatio <= 0 || cfg.WeakRatio > 1 {
		cfg.WeakRatio = DefaultWeakRatio
	}
	return &Composer{
		store:  store,
		client: client,
		logger: logger,
		cfg:    cfg,
	}
}

// Plan builds the topic mix for a new attempt. With weak-topic biasing on
// and a non-empty weak list, at least ceil(WeakRatio * count) questions are
// tagged against weak topics, spread round-robin worst-first.
func (c *Composer) Plan(ctx context.Context, req *ComposeRequest) (*QuizPlan, error) {
	plan := &QuizPlan{
		Subject:       req.Subject,
		QuestionCount: req.QuestionCount,
		Kind:          req.Kind,
		Difficulty:    req.Difficulty,
	}

	var weakTopics []string
	if req.UseWeakTopics && c.store != nil {
		topics, err := c.store.WeakTopics(ctx, req.UserID, maxWeakTopicsPerQuiz, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to load weak topics: %w", err)
		}
		weakTopics = topics
	}

	if len(weakTopics) == 0 {
		plan.TopicMix = []TopicWeight{{Topic: req.Topic, Count: req.QuestionCount}}
		return plan, nil
	}

	weakCount := int(math.Ceil(c.cfg.WeakRatio * float64(req.QuestionCount)))
	if weakCount > req.QuestionCount {
		weakCount = req.QuestionCount
	}

	counts := make([]int, len(weakTopics))
	for i := 0; i < weakCount; i++ {
		counts[i%len(weakTopics)]++
	}
	for i, topic := range weakTopics {
		if counts[i] == 0 {
			continue
		}
		plan.TopicMix = append(plan.TopicMix, TopicWeight{Topic: topic, Count: counts[i], Weak: true})
	}
	if rest := req.QuestionCount - weakCount; rest > 0 {
		plan.TopicMix = append(plan.TopicMix, TopicWeight{Topic: req.Topic, Count: rest})
	}

	c.logger.Info("Composed weak-topic biased quiz plan",
		"user_id", req.UserID,
		"question_count", req.QuestionCount,
		"weak_count", weakCount,
		"weak_topics", weakTopics)
	return plan, nil
}

// Generate turns a plan into questions via the external generator.
func (c *Composer) Generate(ctx context.Context, plan *QuizPlan) ([]models.Question, error) {
	payload, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal quiz plan: %w", err)
	}

	raw, err := c.client.Generate(ctx, generator.Request{
		InstructionPrompt: quizInstruction(plan),
		ContextText:       string(payload),
	})
	if err != nil {
		return nil, err
	}
	return generator.ParseQuestions(raw)
}

func quizInstruction(plan *QuizPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a quiz of %d questions for the subject %q.\n", plan.QuestionCount, plan.Subject)
	b.WriteString("Honor the topic mix exactly as given, including per-topic counts.\n")
	if plan.Kind != "" {
		fmt.Fprintf(&b, "All questions must be of kind %q.\n", plan.Kind)
	}
	if plan.Difficulty != "" {
		fmt.Fprintf(&b, "Target difficulty: %s.\n", plan.Difficulty)
	}
	b.WriteString(`Respond with a JSON object: {"questions":[{"id","text","kind","options","correct_answer","topic","difficulty","marks"}]}.`)
	return b.String()
}
