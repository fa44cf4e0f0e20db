// Package profile implements the per-user Weakness Profile: a rolling
// per-topic performance record updated by completed quiz sessions and read
// by quiz composition to bias topic selection.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/SAP-F-2025/mastery-service/internal/cache"
	"github.com/SAP-F-2025/mastery-service/internal/models"
	"github.com/SAP-F-2025/mastery-service/internal/repositories"
	"github.com/SAP-F-2025/mastery-service/internal/utils"
)

// Default tunables of the update algorithm. Overridable via Config.
const (
	DefaultSmoothingFactor = 0.7
	DefaultWeakScoreCutoff = 70
	DefaultTrendDelta      = 5

	maxHistoryLength = 20
	cacheTTL         = 10 * time.Minute
)

// Config carries the tunables of the smoothing/update algorithm.
type Config struct {
	// SmoothingFactor is the weight of the old score in the exponential
	// smoothing update: score' = round(f*score + (1-f)*sample).
	SmoothingFactor float64
	// WeakScoreCutoff is the default score below which a topic is weak.
	WeakScoreCutoff int
	// TrendDelta is the minimum score movement that counts as a trend.
	TrendDelta int
}

func DefaultConfig() Config {
	return Config{
		SmoothingFactor: DefaultSmoothingFactor,
		WeakScoreCutoff: DefaultWeakScoreCutoff,
		TrendDelta:      DefaultTrendDelta,
	}
}

// Store owns all WeaknessRecord mutation. Records are persisted through the
// abstract ProfileRepository; a session's updates are applied in one
// repository call so readers get all-or-nothing visibility per session.
type Store struct {
	repo   repositories.ProfileRepository
	cache  cache.CacheService
	logger utils.Logger
	cfg    Config
}

func NewStore(repo repositories.ProfileRepository, cacheService cache.CacheService, logger utils.Logger, cfg Config) *Store {
	if cfg.SmoothingFactor <= 0 || cfg.SmoothingFactor >= 1 {
		cfg.SmoothingFactor = DefaultSmoothingFactor
	}
	if cfg.WeakScoreCutoff <= 0 {
		cfg.WeakScoreCutoff = DefaultWeakScoreCutoff
	}
	if cfg.TrendDelta <= 0 {
		cfg.TrendDelta = DefaultTrendDelta
	}
	return &Store{
		repo:   repo,
		cache:  cacheService,
		logger: logger,
		cfg:    cfg,
	}
}

// Upsert records one answer sample for a topic.
func (s *Store) Upsert(ctx context.Context, userID, topic, subject string, isCorrect bool) error {
	record, err := s.repo.Get(ctx, userID, topic)
	if err != nil && !repositories.IsNotFoundError(err) {
		return fmt.Errorf("failed to load weakness record: %w", err)
	}
	record = s.applySample(record, topic, subject, isCorrect)
	if err := s.repo.PutAll(ctx, userID, []*models.WeaknessRecord{record}); err != nil {
		return fmt.Errorf("failed to store weakness record: %w", err)
	}
	s.invalidate(ctx, userID)
	return nil
}

// ApplySession folds every scored item of a completed session into the
// profile as one atomic step. A topic answered several times in the same
// session contributes one sample per item, in item order.
func (s *Store) ApplySession(ctx context.Context, userID, subject string, result *models.SessionResult) error {
	if result == nil || len(result.Items) == 0 {
		return nil
	}

	updated := make(map[string]*models.WeaknessRecord)
	for _, item := range result.Items {
		record, ok := updated[item.Topic]
		if !ok {
			loaded, err := s.repo.Get(ctx, userID, item.Topic)
			if err != nil && !repositories.IsNotFoundError(err) {
				return fmt.Errorf("failed to load weakness record: %w", err)
			}
			record = loaded
		}
		updated[item.Topic] = s.applySample(record, item.Topic, subject, item.IsCorrect)
	}

	records := make([]*models.WeaknessRecord, 0, len(updated))
	for _, record := range updated {
		records = append(records, record)
	}
	if err := s.repo.PutAll(ctx, userID, records); err != nil {
		return fmt.Errorf("failed to store session profile update: %w", err)
	}

	s.invalidate(ctx, userID)
	s.logger.Info("Weakness profile updated",
		"user_id", userID,
		"subject", subject,
		"topics", len(records),
		"score_percent", result.ScorePercent)
	return nil
}

// Snapshot returns all records for a user, worst score first.
func (s *Store) Snapshot(ctx context.Context, userID string) ([]*models.WeaknessRecord, error) {
	return s.snapshot(ctx, snapshotKey(userID), func() ([]*models.WeaknessRecord, error) {
		return s.repo.List(ctx, userID)
	})
}

// SnapshotBySubject returns the user's records for one subject, worst
// score first.
func (s *Store) SnapshotBySubject(ctx context.Context, userID, subject string) ([]*models.WeaknessRecord, error) {
	return s.snapshot(ctx, subjectKey(userID, subject), func() ([]*models.WeaknessRecord, error) {
		return s.repo.ListBySubject(ctx, userID, subject)
	})
}

func (s *Store) snapshot(ctx context.Context, key string, list func() ([]*models.WeaknessRecord, error)) ([]*models.WeaknessRecord, error) {
	if s.cache != nil {
		var cached []*models.WeaknessRecord
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}

	records, err := list()
	if err != nil {
		return nil, fmt.Errorf("failed to list weakness records: %w", err)
	}
	sortRecords(records)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, records, cacheTTL); err != nil {
			s.logger.Warn("Failed to cache profile snapshot", "key", key, "error", err)
		}
	}
	return records, nil
}

// WeakTopics returns up to maxCount topic names with score < scoreBelow,
// worst score first, ties broken by highest attempt count. scoreBelow <= 0
// means the configured cutoff.
func (s *Store) WeakTopics(ctx context.Context, userID string, maxCount, scoreBelow int) ([]string, error) {
	if scoreBelow <= 0 {
		scoreBelow = s.cfg.WeakScoreCutoff
	}
	records, err := s.Snapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	topics := make([]string, 0, maxCount)
	for _, record := range records {
		if record.Score >= scoreBelow {
			continue
		}
		topics = append(topics, record.Topic)
		if maxCount > 0 && len(topics) >= maxCount {
			break
		}
	}
	return topics, nil
}

// applySample returns the updated record for one answer sample. record may
// be nil for a first encounter.
func (s *Store) applySample(record *models.WeaknessRecord, topic, subject string, isCorrect bool) *models.WeaknessRecord {
	sample := 0
	if isCorrect {
		sample = 100
	}

	if record == nil {
		record = &models.WeaknessRecord{
			Topic:       topic,
			Subject:     subject,
			Score:       sample,
			RecentTrend: models.TrendStable,
		}
		record.TotalAttempts = 1
		record.ScoreHistory = appendHistory(nil, sample)
		return record
	}

	previous := record.Score
	smoothed := int(math.Round(s.cfg.SmoothingFactor*float64(previous) + (1-s.cfg.SmoothingFactor)*float64(sample)))
	record.Score = clampScore(smoothed)
	record.TotalAttempts++
	record.RecentTrend = s.trend(record.Score - previous)
	if subject != "" {
		record.Subject = subject
	}
	record.ScoreHistory = appendHistory(record.ScoreHistory, record.Score)
	return record
}

func (s *Store) trend(delta int) models.PerformanceTrend {
	switch {
	case delta > s.cfg.TrendDelta:
		return models.TrendImproving
	case delta < -s.cfg.TrendDelta:
		return models.TrendDeclining
	default:
		return models.TrendStable
	}
}

// invalidate drops every cached snapshot of the user, full and per-subject.
// The subject keys are wildcarded; a bare prefix wildcard would also catch
// users whose ID extends this one.
func (s *Store) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, snapshotKey(userID)); err != nil {
		s.logger.Warn("Failed to invalidate profile cache", "user_id", userID, "error", err)
	}
	if err := s.cache.DeletePattern(ctx, subjectKey(userID, "*")); err != nil {
		s.logger.Warn("Failed to invalidate subject snapshots", "user_id", userID, "error", err)
	}
}

func snapshotKey(userID string) string {
	return "profile:snapshot:" + userID
}

func subjectKey(userID, subject string) string {
	return snapshotKey(userID) + ":subject:" + subject
}

func sortRecords(records []*models.WeaknessRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Score != records[j].Score {
			return records[i].Score < records[j].Score
		}
		return records[i].TotalAttempts > records[j].TotalAttempts
	})
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func appendHistory(history []byte, score int) []byte {
	var scores []int
	if len(history) > 0 {
		// A corrupt history column is dropped rather than surfaced; the
		// smoothed score is the source of truth.
		_ = json.Unmarshal(history, &scores)
	}
	scores = append(scores, score)
	if len(scores) > maxHistoryLength {
		scores = scores[len(scores)-maxHistoryLength:]
	}
	out, _ := json.Marshal(scores)
	return out
}
