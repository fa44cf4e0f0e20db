package models

import (
	"time"

	"gorm.io/datatypes"
)

type PerformanceTrend string

const (
	TrendImproving PerformanceTrend = "Improving"
	TrendDeclining PerformanceTrend = "Declining"
	TrendStable    PerformanceTrend = "Stable"
)

// WeaknessRecord is the rolling per-topic performance record. It is the
// only entity with cross-session lifetime: created on first encounter of a
// topic, updated on every completed session that references it, never
// deleted.
//
// Invariants: TotalAttempts is monotonically non-decreasing; Score stays
// in [0,100].
type WeaknessRecord struct {
	ID      uint   `json:"id" gorm:"primaryKey"`
	UserID  string `json:"user_id" gorm:"not null;size:64;uniqueIndex:idx_user_topic"`
	Topic   string `json:"topic" gorm:"not null;size:200;uniqueIndex:idx_user_topic"`
	Subject string `json:"subject" gorm:"size:200;index"`

	Score         int              `json:"score" gorm:"not null" validate:"min=0,max=100"`
	TotalAttempts int              `json:"total_attempts" gorm:"not null;default:0"`
	RecentTrend   PerformanceTrend `json:"recent_trend" gorm:"size:16;default:Stable"`

	// ScoreHistory keeps the most recent smoothed scores, newest last.
	ScoreHistory datatypes.JSON `json:"score_history" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (WeaknessRecord) TableName() string {
	return "weakness_records"
}
