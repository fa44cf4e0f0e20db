package remediation

import (
	"testing"
	"time"

	"github.com/SAP-F-2025/mastery-service/internal/models"
	"github.com/stretchr/testify/assert"
)

// fakeClock lets tests move the gate's wall clock by hand.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestGate(topics ...string) (*Gate, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	gate := Begin(topics, Config{
		NotesDwell:      15 * time.Second,
		FlashcardsDwell: 10 * time.Second,
		Now:             clock.Now,
	})
	return gate, clock
}

func TestGate_BeginsInNotes(t *testing.T) {
	gate, _ := newTestGate("Energy")
	state := gate.Snapshot()
	assert.Equal(t, StageNotes, state.Stage)
	assert.Equal(t, 15, state.SecondsRemaining)
	assert.Equal(t, []string{"Energy"}, state.WeakTopics)
}

func TestGate_AdvanceBeforeDwellIsNoOp(t *testing.T) {
	gate, clock := newTestGate("Energy")
	clock.Advance(10 * time.Second) // 5s remaining

	before := gate.Snapshot()
	assert.Equal(t, 5, before.SecondsRemaining)

	assert.False(t, gate.Advance())
	after := gate.Snapshot()
	assert.Equal(t, before.Stage, after.Stage)
	assert.Equal(t, before.SecondsRemaining, after.SecondsRemaining)
}

func TestGate_AdvanceAfterDwell(t *testing.T) {
	gate, clock := newTestGate("Energy")

	clock.Advance(15 * time.Second)
	assert.True(t, gate.Advance())
	state := gate.Snapshot()
	assert.Equal(t, StageFlashcards, state.Stage)
	assert.Equal(t, 10, state.SecondsRemaining)

	// Flashcards dwell applies independently.
	assert.False(t, gate.Advance())
	clock.Advance(10 * time.Second)
	assert.True(t, gate.Advance())
	assert.Equal(t, StageComplete, gate.Stage())

	// Advancing a complete gate stays a no-op.
	assert.False(t, gate.Advance())
}

func TestGate_DwellReadAtCallTime(t *testing.T) {
	// The advance decision must come from the current clock, not from a
	// remaining value captured earlier.
	gate, clock := newTestGate("Energy")
	snapshot := gate.Snapshot()
	assert.Equal(t, 15, snapshot.SecondsRemaining)

	clock.Advance(15 * time.Second)
	assert.True(t, gate.Advance())
}

func TestGate_CardsUnsetWhileLoading(t *testing.T) {
	gate, clock := newTestGate("Energy", "Kinematics")
	clock.Advance(15 * time.Second)
	gate.Advance()

	assert.Nil(t, gate.Snapshot().Flashcards)

	cards := []models.Flashcard{{Question: "q", Answer: "a"}}
	gate.SetFlashcards(cards)
	assert.Equal(t, cards, gate.Snapshot().Flashcards)
}

func TestGate_DefaultDwells(t *testing.T) {
	gate := Begin([]string{"Energy"}, Config{})
	state := gate.Snapshot()
	assert.Equal(t, StageNotes, state.Stage)
	assert.Equal(t, 15, state.SecondsRemaining)
}
