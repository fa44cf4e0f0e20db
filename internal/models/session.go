package models

// ScoredItem is the graded form of one question. Derived once during
// scoring and never mutated afterwards.
type ScoredItem struct {
	QuestionID    string `json:"question_id"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`
	Topic         string `json:"topic"`
	MarksObtained int    `json:"marks_obtained"`
	MaxMarks      int    `json:"max_marks"`
}

// SessionResult is the outcome of one scoring pass. Created once per pass;
// immutable.
type SessionResult struct {
	Items        []ScoredItem `json:"items"`
	ScorePercent int          `json:"score_percent"`
	WeakTopics   []string     `json:"weak_topics"`
	Passed       bool         `json:"passed"`
}

// Flashcard is one remediation card produced by the content generator.
type Flashcard struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ItemFeedback is per-question commentary inside a detailed report.
type ItemFeedback struct {
	QuestionID string `json:"question_id"`
	Topic      string `json:"topic"`
	Comment    string `json:"comment"`
}

// AssessmentReport is the generator-produced analysis of a passed session.
// When the generator response cannot be parsed, a deterministic fallback
// report is synthesized from the scored items instead.
type AssessmentReport struct {
	OverallAnalysis  string         `json:"overall_analysis"`
	Strengths        []string       `json:"strengths"`
	Weaknesses       []string       `json:"weaknesses"`
	DetailedFeedback []ItemFeedback `json:"detailed_feedback"`
	RemediationNotes string         `json:"remediation_notes"`
}
