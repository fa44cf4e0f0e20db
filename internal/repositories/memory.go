package repositories

import (
	"context"
	"sync"

	"github.com/SAP-F-2025/mastery-service/internal/models"
)

// memoryProfileRepository keeps records in process memory. Used in tests
// and as the default when no database is configured.
type memoryProfileRepository struct {
	mu      sync.RWMutex
	records map[string]map[string]models.WeaknessRecord // userID -> topic -> record
}

func NewMemoryProfileRepository() ProfileRepository {
	return &memoryProfileRepository{
		records: make(map[string]map[string]models.WeaknessRecord),
	}
}

func (r *memoryProfileRepository) Get(ctx context.Context, userID, topic string) (*models.WeaknessRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[userID][topic]
	if !ok {
		return nil, ErrRecordNotFound
	}
	copied := rec
	return &copied, nil
}

func (r *memoryProfileRepository) PutAll(ctx context.Context, userID string, records []*models.WeaknessRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byTopic, ok := r.records[userID]
	if !ok {
		byTopic = make(map[string]models.WeaknessRecord)
		r.records[userID] = byTopic
	}
	for _, rec := range records {
		byTopic[rec.Topic] = *rec
	}
	return nil
}

func (r *memoryProfileRepository) List(ctx context.Context, userID string) ([]*models.WeaknessRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.WeaknessRecord, 0, len(r.records[userID]))
	for _, rec := range r.records[userID] {
		copied := rec
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memoryProfileRepository) ListBySubject(ctx context.Context, userID, subject string) ([]*models.WeaknessRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.WeaknessRecord
	for _, rec := range r.records[userID] {
		if rec.Subject == subject {
			copied := rec
			out = append(out, &copied)
		}
	}
	return out, nil
}
