package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/HuiYanWanXiang/HuiYanWanXiang/internal/domain"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// JobRecordRepository stores the history of finished jobs.
type JobRecordRepository struct {
	db *gorm.DB
}

// NewJobRecordRepository creates a new JobRecordRepository.
// Parameters:
//   - db: GORM database handle used for queries.
//
// Returns:
//   - *JobRecordRepository: repository instance bound to db.
func NewJobRecordRepository(db *gorm.DB) *JobRecordRepository {
	return &JobRecordRepository{db: db}
}

// Save inserts the record or overwrites the row with the same id.
func (r *JobRecordRepository) Save(ctx context.Context, rec *domain.JobRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(rec).Error
}

// GetByID retrieves a record by job id.
func (r *JobRecordRepository) GetByID(ctx context.Context, id string) (*domain.JobRecord, error) {
	var rec domain.JobRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns the newest records first, optionally filtered by kind.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - kind: job kind filter; empty lists every kind.
//   - limit: maximum rows; values <= 0 use the default of 50.
//
// Returns:
//   - []domain.JobRecord: matching records.
//   - error: non-nil if the query fails.
func (r *JobRecordRepository) List(ctx context.Context, kind domain.JobKind, limit int) ([]domain.JobRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	query := r.db.WithContext(ctx).Model(&domain.JobRecord{})
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}

	var recs []domain.JobRecord
	if err := query.Order("created_at DESC").Limit(limit).Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// CountByStatus returns the number of records per status.
func (r *JobRecordRepository) CountByStatus(ctx context.Context, kind domain.JobKind) (map[domain.JobStatus]int64, error) {
	type row struct {
		Status domain.JobStatus
		Count  int64
	}
	var rows []row

	query := r.db.WithContext(ctx).Model(&domain.JobRecord{}).Select("status, COUNT(*) AS count")
	if kind != "" {
		query = query.Where("kind = ?", kind)
	}
	if err := query.Group("status").Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[domain.JobStatus]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.Count
	}
	return out, nil
}
