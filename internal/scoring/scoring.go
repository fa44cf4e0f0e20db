// Package scoring grades a fixed question set against submitted answers.
// Everything here is pure: no I/O, no clock, deterministic for identical
// inputs.
package scoring

import (
	"math"
	"strings"

	"github.com/SAP-F-2025/mastery-service/internal/models"
)

// PassThreshold is the minimum score percent for a session to count as
// mastered. Single point of truth for the whole loop.
const PassThreshold = 60

// Score grades binary pass/fail: every question weighs the same regardless
// of its marks. Unanswered questions count as incorrect with an empty
// user answer. An empty question set yields a zero, failed result rather
// than an error so the loop can always leave its scoring step.
func Score(questions []models.Question, answers models.AttemptAnswer) *models.SessionResult {
	return score(questions, answers, false, PassThreshold)
}

// ScoreWithThreshold is Score with an explicit pass threshold, for callers
// that carry the threshold as configuration.
func ScoreWithThreshold(questions []models.Question, answers models.AttemptAnswer, threshold int) *models.SessionResult {
	return score(questions, answers, false, threshold)
}

// ScoreWeighted grades by marks: scorePercent = round(100 * marksObtained /
// maxMarks). Used for standalone quiz review, not by the mastery loop.
func ScoreWeighted(questions []models.Question, answers models.AttemptAnswer) *models.SessionResult {
	return score(questions, answers, true, PassThreshold)
}

func score(questions []models.Question, answers models.AttemptAnswer, weighted bool, threshold int) *models.SessionResult {
	result := &models.SessionResult{
		Items:      make([]models.ScoredItem, 0, len(questions)),
		WeakTopics: []string{},
	}
	if len(questions) == 0 {
		return result
	}

	correctCount := 0
	marksObtained := 0
	maxMarks := 0
	seenWeak := make(map[string]bool)

	for _, q := range questions {
		userAnswer := answers[q.ID]
		item := models.ScoredItem{
			QuestionID:    q.ID,
			UserAnswer:    userAnswer,
			CorrectAnswer: q.CorrectAnswer,
			Topic:         q.Topic,
			IsCorrect:     isCorrect(&q, userAnswer),
			MaxMarks:      q.MaxMarks(),
		}
		if item.IsCorrect {
			item.MarksObtained = item.MaxMarks
			correctCount++
		} else if !seenWeak[q.Topic] {
			seenWeak[q.Topic] = true
			result.WeakTopics = append(result.WeakTopics, q.Topic)
		}
		marksObtained += item.MarksObtained
		maxMarks += item.MaxMarks
		result.Items = append(result.Items, item)
	}

	if weighted {
		result.ScorePercent = roundPercent(marksObtained, maxMarks)
	} else {
		result.ScorePercent = roundPercent(correctCount, len(questions))
	}
	result.Passed = result.ScorePercent >= threshold
	return result
}

// isCorrect applies case-insensitive, whitespace-trimmed equality. For MCQ
// questions with an option list, positional equality takes over: the index
// of the submitted text within the options must equal the index of the
// correct answer within the same list. With duplicate option texts both
// sides resolve to the first matching index, which is the documented
// tie-break rule.
func isCorrect(q *models.Question, userAnswer string) bool {
	if strings.TrimSpace(userAnswer) == "" {
		return false
	}
	if q.Kind == models.KindMCQ && len(q.Options) > 0 {
		userIdx := optionIndex(q.Options, userAnswer)
		correctIdx := optionIndex(q.Options, q.CorrectAnswer)
		if userIdx >= 0 && correctIdx >= 0 {
			return userIdx == correctIdx
		}
	}
	return textEqual(userAnswer, q.CorrectAnswer)
}

// optionIndex returns the index of the first option equal to s under the
// normalized comparison, or -1.
func optionIndex(options []string, s string) int {
	for i, opt := range options {
		if textEqual(opt, s) {
			return i
		}
	}
	return -1
}

func textEqual(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func roundPercent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(whole)))
}
