package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/reelcraft/api/internal/model"
)

// VideoStore persists completed video rows.
type VideoStore struct {
	db *gorm.DB
}

func NewVideoStore(db *gorm.DB) *VideoStore {
	return &VideoStore{db: db}
}

func (s *VideoStore) Create(ctx context.Context, video *model.Video) error {
	if err := s.db.WithContext(ctx).Create(video).Error; err != nil {
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}

func (s *VideoStore) Get(ctx context.Context, id uint) (*model.Video, error) {
	var video model.Video
	err := s.db.WithContext(ctx).First(&video, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load video: %w", err)
	}
	return &video, nil
}

// FindBySourceURL returns the video generated for a source URL, or
// ErrNotFound. This lookup backs the reuse policy.
func (s *VideoStore) FindBySourceURL(ctx context.Context, sourceURL string) (*model.Video, error) {
	var video model.Video
	err := s.db.WithContext(ctx).First(&video, "source_url = ?", sourceURL).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up video by source url: %w", err)
	}
	return &video, nil
}

func (s *VideoStore) Update(ctx context.Context, id uint, columns map[string]interface{}) error {
	res := s.db.WithContext(ctx).Model(&model.Video{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return fmt.Errorf("failed to update video: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *VideoStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&model.Video{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete video: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns videos newest-first.
func (s *VideoStore) List(ctx context.Context, limit, offset int) ([]model.Video, error) {
	q := s.db.WithContext(ctx).Model(&model.Video{}).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}

	var videos []model.Video
	if err := q.Find(&videos).Error; err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	return videos, nil
}
