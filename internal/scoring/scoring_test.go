package scoring

import (
	"testing"

	"github.com/SAP-F-2025/mastery-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mcq(id, topic, correct string, options ...string) models.Question {
	return models.Question{
		ID:            id,
		Text:          "q " + id,
		Kind:          models.KindMCQ,
		Options:       options,
		CorrectAnswer: correct,
		Topic:         topic,
	}
}

func short(id, topic, correct string) models.Question {
	return models.Question{
		ID:            id,
		Text:          "q " + id,
		Kind:          models.KindShortAnswer,
		CorrectAnswer: correct,
		Topic:         topic,
	}
}

func TestScore_ThresholdBoundary(t *testing.T) {
	// 3 of 5 correct = 60% -> passed, 2 of 5 = 40% -> failed.
	questions := []models.Question{
		short("q1", "A", "x"), short("q2", "A", "x"), short("q3", "A", "x"),
		short("q4", "A", "x"), short("q5", "A", "x"),
	}

	passing := models.AttemptAnswer{"q1": "x", "q2": "x", "q3": "x", "q4": "no", "q5": "no"}
	result := Score(questions, passing)
	assert.Equal(t, 60, result.ScorePercent)
	assert.True(t, result.Passed)

	failing := models.AttemptAnswer{"q1": "x", "q2": "x", "q3": "no", "q4": "no", "q5": "no"}
	result = Score(questions, failing)
	assert.Equal(t, 40, result.ScorePercent)
	assert.False(t, result.Passed)
}

func TestScore_CaseAndWhitespaceInsensitive(t *testing.T) {
	questions := []models.Question{short("q1", "Energy", "Joule")}
	result := Score(questions, models.AttemptAnswer{"q1": "  joule "})
	require.Len(t, result.Items, 1)
	assert.True(t, result.Items[0].IsCorrect)
}

func TestScore_UnansweredCountsIncorrect(t *testing.T) {
	questions := []models.Question{short("q1", "Energy", "Joule")}
	result := Score(questions, models.AttemptAnswer{})
	require.Len(t, result.Items, 1)
	assert.False(t, result.Items[0].IsCorrect)
	assert.Equal(t, "", result.Items[0].UserAnswer)
	assert.Equal(t, []string{"Energy"}, result.WeakTopics)
}

func TestScore_UnknownAnswerIDsIgnored(t *testing.T) {
	questions := []models.Question{short("q1", "Energy", "Joule")}
	result := Score(questions, models.AttemptAnswer{"q1": "joule", "ghost": "42"})
	assert.Equal(t, 100, result.ScorePercent)
	assert.Len(t, result.Items, 1)
}

func TestScore_EmptyQuestionSet(t *testing.T) {
	result := Score(nil, models.AttemptAnswer{"q1": "x"})
	assert.Equal(t, 0, result.ScorePercent)
	assert.False(t, result.Passed)
	assert.Empty(t, result.Items)
}

func TestScore_MCQPositionalTieBreak(t *testing.T) {
	// Duplicate option text: both the submitted "A" and the correct "A"
	// resolve to the first matching index, so the item is correct.
	q := mcq("q1", "Algebra", "A", "A", "B", "A")
	result := Score([]models.Question{q}, models.AttemptAnswer{"q1": "A"})
	assert.True(t, result.Items[0].IsCorrect)

	// A different option selected is wrong even though comparison by text
	// against another slot could have matched.
	result = Score([]models.Question{q}, models.AttemptAnswer{"q1": "B"})
	assert.False(t, result.Items[0].IsCorrect)
}

func TestScore_MCQAnswerOutsideOptionsFallsBackToText(t *testing.T) {
	q := mcq("q1", "Algebra", "4", "2", "3", "4")
	result := Score([]models.Question{q}, models.AttemptAnswer{"q1": " 4 "})
	assert.True(t, result.Items[0].IsCorrect)
}

func TestScore_Idempotent(t *testing.T) {
	questions := []models.Question{
		mcq("q1", "Kinematics", "v = u + at", "v = u + at", "s = ut", "F = ma"),
		short("q2", "Energy", "Joule"),
	}
	answers := models.AttemptAnswer{"q1": "F = ma", "q2": "joule"}

	first := Score(questions, answers)
	second := Score(questions, answers)
	assert.Equal(t, first, second)
}

func TestScore_EndToEndScenario(t *testing.T) {
	// 5 questions, 2 correct (Kinematics x2), 3 incorrect (Kinematics,
	// Energy, Energy).
	questions := []models.Question{
		short("q1", "Kinematics", "a"),
		short("q2", "Kinematics", "b"),
		short("q3", "Kinematics", "c"),
		short("q4", "Energy", "d"),
		short("q5", "Energy", "e"),
	}
	answers := models.AttemptAnswer{"q1": "a", "q2": "b", "q3": "wrong", "q4": "wrong", "q5": "wrong"}

	result := Score(questions, answers)
	assert.Equal(t, 40, result.ScorePercent)
	assert.False(t, result.Passed)
	assert.ElementsMatch(t, []string{"Kinematics", "Energy"}, result.WeakTopics)
}

func TestScoreWeighted_UsesMarks(t *testing.T) {
	q1 := short("q1", "A", "x")
	q1.Marks = 3
	q2 := short("q2", "B", "y")
	q2.Marks = 1

	// Only the 3-mark question correct: 3/4 = 75%.
	result := ScoreWeighted([]models.Question{q1, q2}, models.AttemptAnswer{"q1": "x"})
	assert.Equal(t, 75, result.ScorePercent)
	assert.True(t, result.Passed)

	// Binary reduction over the same inputs is 50%.
	binary := Score([]models.Question{q1, q2}, models.AttemptAnswer{"q1": "x"})
	assert.Equal(t, 50, binary.ScorePercent)
	assert.False(t, binary.Passed)
}
