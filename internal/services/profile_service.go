package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/mastery-service/internal/models"
	"github.com/SAP-F-2025/mastery-service/internal/profile"
	"github.com/SAP-F-2025/mastery-service/internal/utils"
)

type ProfileService interface {
	Snapshot(ctx context.Context, userID string) ([]*models.WeaknessRecord, error)
	SnapshotBySubject(ctx context.Context, userID, subject string) ([]*models.WeaknessRecord, error)
	WeakTopics(ctx context.Context, userID string, maxCount, scoreBelow int) ([]string, error)
	ExportToExcel(ctx context.Context, userID string) ([]byte, error)
}

type profileService struct {
	store  *profile.Store
	logger utils.Logger
}

func NewProfileService(store *profile.Store, logger utils.Logger) ProfileService {
	return &profileService{
		store:  store,
		logger: logger,
	}
}

func (s *profileService) Snapshot(ctx context.Context, userID string) ([]*models.WeaknessRecord, error) {
	return s.store.Snapshot(ctx, userID)
}

func (s *profileService) SnapshotBySubject(ctx context.Context, userID, subject string) ([]*models.WeaknessRecord, error) {
	return s.store.SnapshotBySubject(ctx, userID, subject)
}

func (s *profileService) WeakTopics(ctx context.Context, userID string, maxCount, scoreBelow int) ([]string, error) {
	return s.store.WeakTopics(ctx, userID, maxCount, scoreBelow)
}

// ExportToExcel writes the user's weakness profile as an xlsx workbook,
// worst topics first.
func (s *profileService) ExportToExcel(ctx context.Context, userID string) ([]byte, error) {
	records, err := s.store.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheetName := "Weakness Profile"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Topic", "Subject", "Score", "Total Attempts", "Recent Trend", "Score History"}
	for i, header := range headers {
		cell := fmt.Sprintf("%c1", 'A'+i)
		f.SetCellValue(sheetName, cell, header)
	}

	for rowIndex, record := range records {
		row := []interface{}{
			record.Topic,
			record.Subject,
			record.Score,
			record.TotalAttempts,
			string(record.RecentTrend),
			historyString(record.ScoreHistory),
		}
		for colIndex, value := range row {
			cell := fmt.Sprintf("%c%d", 'A'+colIndex, rowIndex+2)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Exported weakness profile", "user_id", userID, "topics", len(records))
	return buf.Bytes(), nil
}

func historyString(history []byte) string {
	var scores []int
	if err := json.Unmarshal(history, &scores); err != nil {
		return ""
	}
	out := ""
	for i, score := range scores {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%d", score)
	}
	return out
}
