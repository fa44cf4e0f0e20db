package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/mastery-service/internal/models"
)

type EventType string

const (
	EventSessionStarted     EventType = "session.started"
	EventSessionCompleted   EventType = "session.completed"
	EventRemediationStarted EventType = "remediation.started"
	EventMasteryAchieved    EventType = "mastery.achieved"
)

// SessionEvent is the envelope published to the session topic on loop
// transitions. Publishing is fire-and-forget relative to the transition.
type SessionEvent struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

type SessionStartedData struct {
	SessionID     string `json:"session_id"`
	UserID        string `json:"user_id"`
	Subject       string `json:"subject"`
	QuestionCount int    `json:"question_count"`
}

type SessionCompletedData struct {
	SessionID    string   `json:"session_id"`
	UserID       string   `json:"user_id"`
	Subject      string   `json:"subject"`
	ScorePercent int      `json:"score_percent"`
	Passed       bool     `json:"passed"`
	Attempt      int      `json:"attempt"`
	WeakTopics   []string `json:"weak_topics"`
}

type RemediationStartedData struct {
	SessionID  string   `json:"session_id"`
	UserID     string   `json:"user_id"`
	Attempt    int      `json:"attempt"`
	WeakTopics []string `json:"weak_topics"`
}

type MasteryAchievedData struct {
	SessionID    string `json:"session_id"`
	UserID       string `json:"user_id"`
	Subject      string `json:"subject"`
	ScorePercent int    `json:"score_percent"`
	Attempts     int    `json:"attempts"`
}

// NewSessionEvent builds an envelope with a fresh ID and timestamp.
func NewSessionEvent(eventType EventType, data interface{}) *SessionEvent {
	return &SessionEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    "mastery-service",
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// NewSessionCompletedEvent builds the completion event from a scored result.
func NewSessionCompletedEvent(sessionID, userID, subject string, attempt int, result *models.SessionResult) *SessionEvent {
	return NewSessionEvent(EventSessionCompleted, SessionCompletedData{
		SessionID:    sessionID,
		UserID:       userID,
		Subject:      subject,
		ScorePercent: result.ScorePercent,
		Passed:       result.Passed,
		Attempt:      attempt,
		WeakTopics:   result.WeakTopics,
	})
}
