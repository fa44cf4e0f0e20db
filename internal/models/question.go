package models

type QuestionKind string

const (
	KindMCQ         QuestionKind = "mcq"
	KindShortAnswer QuestionKind = "short_answer"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "Easy"
	DifficultyMedium DifficultyLevel = "Medium"
	DifficultyHard   DifficultyLevel = "Hard"
)

// Question is one item of a quiz. The set is fixed once a session starts;
// remediation retries reuse the same questions unless the composer
// regenerates them.
type Question struct {
	ID            string          `json:"id" validate:"required"`
	Text          string          `json:"text" validate:"required"`
	Kind          QuestionKind    `json:"kind" validate:"required,question_kind"`
	Options       []string        `json:"options,omitempty" validate:"omitempty,unique"`
	CorrectAnswer string          `json:"correct_answer" validate:"required"`
	Topic         string          `json:"topic" validate:"required"`
	Difficulty    DifficultyLevel `json:"difficulty" validate:"omitempty,difficulty_level"`
	Marks         int             `json:"marks" validate:"omitempty,min=1"`
}

// MaxMarks returns the question's mark weight, defaulting to 1.
func (q *Question) MaxMarks() int {
	if q.Marks <= 0 {
		return 1
	}
	return q.Marks
}

// AttemptAnswer maps question ID to the submitted answer text. A missing
// key means unanswered.
type AttemptAnswer map[string]string
