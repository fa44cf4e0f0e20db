package repositories

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/mastery-service/internal/models"
)

var ErrRecordNotFound = errors.New("record not found")

// IsNotFoundError checks if error represents a missing record
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// ProfileRepository is the abstract key-value contract the Weakness Profile
// Store is specified against: per-user, per-topic records. PutAll must make
// one session's updates visible all-or-nothing; a concurrent List never
// observes a session applied to some topics and not others.
type ProfileRepository interface {
	Get(ctx context.Context, userID, topic string) (*models.WeaknessRecord, error)
	PutAll(ctx context.Context, userID string, records []*models.WeaknessRecord) error
	List(ctx context.Context, userID string) ([]*models.WeaknessRecord, error)
	ListBySubject(ctx context.Context, userID, subject string) ([]*models.WeaknessRecord, error)
}
