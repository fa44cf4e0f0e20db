package postgres

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/mastery-service/internal/models"
	"github.com/SAP-F-2025/mastery-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfilePostgreSQL struct {
	db *gorm.DB
}

func NewProfilePostgreSQL(db *gorm.DB) repositories.ProfileRepository {
	return &ProfilePostgreSQL{db: db}
}

func (p ProfilePostgreSQL) Get(ctx context.Context, userID, topic string) (*models.WeaknessRecord, error) {
	var record models.WeaknessRecord
	err := p.db.WithContext(ctx).
		Where("user_id = ? AND topic = ?", userID, topic).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrRecordNotFound
		}
		return nil, err
	}
	return &record, nil
}

// PutAll upserts one session's records in a single transaction so a
// concurrent reader sees either none or all of the session's updates.
func (p ProfilePostgreSQL) PutAll(ctx context.Context, userID string, records []*models.WeaknessRecord) error {
	if len(records) == 0 {
		return nil
	}
	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, record := range records {
			record.UserID = userID
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "user_id"}, {Name: "topic"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"subject", "score", "total_attempts", "recent_trend", "score_history", "updated_at",
				}),
			}).Create(record).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (p ProfilePostgreSQL) List(ctx context.Context, userID string) ([]*models.WeaknessRecord, error) {
	var records []*models.WeaknessRecord
	err := p.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("score ASC, total_attempts DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (p ProfilePostgreSQL) ListBySubject(ctx context.Context, userID, subject string) ([]*models.WeaknessRecord, error) {
	var records []*models.WeaknessRecord
	err := p.db.WithContext(ctx).
		Where("user_id = ? AND subject = ?", userID, subject).
		Order("score ASC, total_attempts DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}
