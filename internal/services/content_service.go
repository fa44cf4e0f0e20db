package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/mastery-service/internal/generator"
	"github.com/SAP-F-2025/mastery-service/internal/models"
	"github.com/SAP-F-2025/mastery-service/internal/utils"
)

// ContentService adapts the external generator into the pieces the mastery
// loop consumes: remediation notes, remediation flashcards and the detailed
// assessment report. Parse failures recover with deterministic fallbacks so
// the loop can always proceed; transport failures propagate as retryable.
type contentService struct {
	client generator.Client
	logger utils.Logger
}

type ContentService interface {
	RemediationNotes(ctx context.Context, topics []string) (string, error)
	Flashcards(ctx context.Context, topics []string, count int) ([]models.Flashcard, error)
	DetailedReport(ctx context.Context, subject string, result *models.SessionResult) (*models.AssessmentReport, error)
}

func NewContentService(client generator.Client, logger utils.Logger) ContentService {
	return &contentService{
		client: client,
		logger: logger,
	}
}

func (s *contentService) RemediationNotes(ctx context.Context, topics []string) (string, error) {
	raw, err := s.client.Generate(ctx, generator.Request{
		InstructionPrompt: "You are a tutor. Write concise revision notes (max 300 words) covering exactly the listed topics. Plain text, no JSON.",
		ContextText:       "Topics the student struggled with: " + strings.Join(topics, ", "),
	})
	if err != nil {
		return "", err
	}
	notes := strings.TrimSpace(raw)
	if notes == "" {
		return fallbackNotes(topics), nil
	}
	return notes, nil
}

func (s *contentService) Flashcards(ctx context.Context, topics []string, count int) ([]models.Flashcard, error) {
	raw, err := s.client.Generate(ctx, generator.Request{
		InstructionPrompt: fmt.Sprintf(
			`Produce exactly %d revision flashcards targeted at the listed topics. Respond with JSON: {"flashcards":[{"question","answer"}]}.`, count),
		ContextText: "Weak topics: " + strings.Join(topics, ", "),
	})
	if err != nil {
		return nil, err
	}

	cards, err := generator.ParseFlashcards(raw)
	if err != nil {
		s.logger.Warn("Flashcard response unparseable, using fallback cards",
			"weak_topics", topics, "error", err)
		return fallbackFlashcards(topics, count), nil
	}
	if len(cards) > count {
		cards = cards[:count]
	}
	return cards, nil
}

func (s *contentService) DetailedReport(ctx context.Context, subject string, result *models.SessionResult) (*models.AssessmentReport, error) {
	raw, err := s.client.Generate(ctx, generator.Request{
		InstructionPrompt: `Analyze the quiz results. Respond with JSON: {"overall_analysis","strengths":[],"weaknesses":[],"detailed_feedback":[{"question_id","topic","comment"}],"remediation_notes"}.`,
		ContextText:       reportContext(subject, result),
	})
	if err != nil {
		return nil, err
	}

	report, err := generator.ParseReport(raw)
	if err != nil {
		s.logger.Warn("Report response unparseable, using fallback report",
			"subject", subject, "error", err)
		return FallbackReport(result), nil
	}
	return report, nil
}

// FallbackReport synthesizes a deterministic report from the scored items
// when the generator's output cannot be parsed.
func FallbackReport(result *models.SessionResult) *models.AssessmentReport {
	report := &models.AssessmentReport{
		OverallAnalysis: fmt.Sprintf("You scored %d%% on this attempt.", result.ScorePercent),
		Strengths:       []string{},
		Weaknesses:      append([]string{}, result.WeakTopics...),
	}

	strong := make(map[string]bool)
	for _, item := range result.Items {
		if item.IsCorrect {
			strong[item.Topic] = true
		}
	}
	for _, topic := range result.WeakTopics {
		delete(strong, topic)
	}
	for _, item := range result.Items {
		if strong[item.Topic] {
			report.Strengths = append(report.Strengths, item.Topic)
			strong[item.Topic] = false
		}
	}

	report.RemediationNotes = fallbackNotes(result.WeakTopics)
	return report
}

func fallbackNotes(topics []string) string {
	if len(topics) == 0 {
		return "No weak topics identified. Keep practicing to maintain mastery."
	}
	return "Focus your revision on: " + strings.Join(topics, ", ") + "."
}

func fallbackFlashcards(topics []string, count int) []models.Flashcard {
	if len(topics) == 0 {
		return nil
	}
	cards := make([]models.Flashcard, 0, count)
	for i := 0; i < count; i++ {
		topic := topics[i%len(topics)]
		cards = append(cards, models.Flashcard{
			Question: fmt.Sprintf("What is the key idea behind %s?", topic),
			Answer:   fmt.Sprintf("Review your notes on %s and restate its core principle in your own words.", topic),
		})
	}
	return cards
}

func reportContext(subject string, result *models.SessionResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Subject: %s\nScore: %d%%\nPassed: %t\n\nPer-question results:\n", subject, result.ScorePercent, result.Passed)
	for _, item := range result.Items {
		fmt.Fprintf(&b, "- [%s] question %s: submitted %q, expected %q, correct=%t\n",
			item.Topic, item.QuestionID, item.UserAnswer, item.CorrectAnswer, item.IsCorrect)
	}
	return b.String()
}
