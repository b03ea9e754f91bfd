package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/reelcraft/api/internal/model"
)

// JobStore persists job rows. Writes for a given job id only ever come from
// that job's own task, so there is no cross-writer contention per row.
type JobStore struct {
	db *gorm.DB
}

func NewJobStore(db *gorm.DB) *JobStore {
	return &JobStore{db: db}
}

func (s *JobStore) Create(ctx context.Context, job *model.Job) error {
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *JobStore) Get(ctx context.Context, id string) (*model.Job, error) {
	var job model.Job
	err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	return &job, nil
}

// Update writes the given column set for a job id. Columns is a partial
// update so terminal transitions and progress writes touch only their fields.
func (s *JobStore) Update(ctx context.Context, id string, columns map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&model.Job{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return fmt.Errorf("failed to update job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns jobs newest-first, optionally filtered by status.
func (s *JobStore) List(ctx context.Context, status *model.JobStatus, limit, offset int) ([]model.Job, error) {
	q := s.db.WithContext(ctx).Model(&model.Job{}).Order("created_at DESC")
	if status != nil {
		q = q.Where("status = ?", *status)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var jobs []model.Job
	if err := q.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}
