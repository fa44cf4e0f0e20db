// Package remediation implements the timed two-stage review gate a failing
// quiz attempt must pass through before a retry: mandatory notes, then
// mandatory flashcards, each with a minimum dwell time.
package remediation

import (
	"math"
	"time"

	"github.com/SAP-F-2025/mastery-service/internal/models"
)

type Stage string

const (
	StageNotes      Stage = "notes"
	StageFlashcards Stage = "flashcards"
	StageComplete   Stage = "complete"
)

// Default dwell durations. Overridable via Config.
const (
	DefaultNotesDwell      = 15 * time.Second
	DefaultFlashcardsDwell = 10 * time.Second
)

type Config struct {
	NotesDwell      time.Duration
	FlashcardsDwell time.Duration

	// Now is the clock. Defaults to time.Now; injected in tests.
	Now func() time.Time
}

// State is an immutable snapshot of the gate for rendering. Notes and
// Flashcards are nil while the corresponding generator request is still in
// flight; the UI shows a loading affordance for them.
type State struct {
	Stage            Stage              `json:"stage"`
	SecondsRemaining int                `json:"seconds_remaining"`
	Notes            string             `json:"notes,omitempty"`
	Flashcards       []models.Flashcard `json:"flashcards,omitempty"`
	WeakTopics       []string           `json:"weak_topics"`
}

// Gate tracks one remediation pass. The dwell countdown is wall-clock
// driven: remaining time is recomputed from the deadline on every call, so
// an Advance racing the timer is decided by the clock, not by a cached
// value.
type Gate struct {
	cfg        Config
	stage      Stage
	deadline   time.Time
	weakTopics []string
	notes      string
	flashcards []models.Flashcard
}

// Begin opens the gate in the notes stage for the given weak topics.
func Begin(weakTopics []string, cfg Config) *Gate {
	if cfg.NotesDwell <= 0 {
		cfg.NotesDwell = DefaultNotesDwell
	}
	if cfg.FlashcardsDwell <= 0 {
		cfg.FlashcardsDwell = DefaultFlashcardsDwell
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Gate{
		cfg:        cfg,
		stage:      StageNotes,
		deadline:   cfg.Now().Add(cfg.NotesDwell),
		weakTopics: weakTopics,
	}
}

// Advance moves the gate forward if the current stage's dwell has elapsed.
// Called early it is a guarded no-op, not an error: the returned bool
// reports whether a transition happened.
func (g *Gate) Advance() bool {
	if g.secondsRemaining() > 0 {
		return false
	}
	switch g.stage {
	case StageNotes:
		g.stage = StageFlashcards
		g.deadline = g.cfg.Now().Add(g.cfg.FlashcardsDwell)
		return true
	case StageFlashcards:
		g.stage = StageComplete
		return true
	default:
		return false
	}
}

// Stage returns the current stage.
func (g *Gate) Stage() Stage {
	return g.stage
}

// WeakTopics returns the topics this gate remediates.
func (g *Gate) WeakTopics() []string {
	return g.weakTopics
}

// SetNotes attaches generator-produced notes text.
func (g *Gate) SetNotes(notes string) {
	g.notes = notes
}

// SetFlashcards attaches the generator-produced card set.
func (g *Gate) SetFlashcards(cards []models.Flashcard) {
	g.flashcards = cards
}

// Snapshot returns the current gate state with the remaining dwell read
// from the clock at call time.
func (g *Gate) Snapshot() State {
	return State{
		Stage:            g.stage,
		SecondsRemaining: g.secondsRemaining(),
		Notes:            g.notes,
		Flashcards:       g.flashcards,
		WeakTopics:       g.weakTopics,
	}
}

func (g *Gate) secondsRemaining() int {
	if g.stage == StageComplete {
		return 0
	}
	remaining := g.deadline.Sub(g.cfg.Now())
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Seconds()))
}
