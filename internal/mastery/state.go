package mastery

import (
	"github.com/SAP-F-2025/mastery-service/internal/models"
	"github.com/SAP-F-2025/mastery-service/internal/remediation"
)

// LoopState is the tagged variant over the loop's phases. Exactly one is
// active per session; illegal combinations (remediation without a stage,
// mastered without a result) are unrepresentable.
type LoopState interface {
	Phase() Phase
}

type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseQuiz        Phase = "quiz"
	PhaseScoring     Phase = "scoring"
	PhaseRemediation Phase = "remediation"
	PhaseMastered    Phase = "mastered"
)

// Idle is the initial state, before a question set is supplied.
type Idle struct{}

func (Idle) Phase() Phase { return PhaseIdle }

// Quiz is the answering phase. Answers is a copy; mutation goes through
// the controller.
type Quiz struct {
	Questions []models.Question    `json:"questions"`
	Answers   models.AttemptAnswer `json:"answers"`
	Attempt   int                  `json:"attempt"`
}

func (Quiz) Phase() Phase { return PhaseQuiz }

// Scoring is the transient grading phase. Scoring is pure and synchronous,
// so this state is only ever observed by the controller itself, but it is
// modeled so every transition in the table exists.
type Scoring struct{}

func (Scoring) Phase() Phase { return PhaseScoring }

// Remediation wraps the gate's current state plus the last generation
// failure, which the UI surfaces as retryable.
type Remediation struct {
	Gate             remediation.State `json:"gate"`
	Attempt          int               `json:"attempt"`
	GenerationFailed bool              `json:"generation_failed"`
}

func (Remediation) Phase() Phase { return PhaseRemediation }

// Mastered is the only terminal state.
type Mastered struct {
	Result  *models.SessionResult `json:"result"`
	Attempt int                   `json:"attempt"`
}

func (Mastered) Phase() Phase { return PhaseMastered }
