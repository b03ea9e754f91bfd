package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reelcraft/api/internal/client"
	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/internal/store"
	"github.com/reelcraft/api/pkg/logger"
)

// VideoService answers queries over generated videos and removes them along
// with their stored files.
type VideoService struct {
	videos  *store.VideoStore
	storage client.StorageClient // nil when cloud storage is disabled
	log     *logger.Logger
}

func NewVideoService(videos *store.VideoStore, storage client.StorageClient, log *logger.Logger) *VideoService {
	return &VideoService{videos: videos, storage: storage, log: log}
}

func (s *VideoService) Get(ctx context.Context, id uint) (*model.Video, error) {
	return s.videos.Get(ctx, id)
}

func (s *VideoService) List(ctx context.Context, limit, offset int) ([]model.Video, error) {
	return s.videos.List(ctx, limit, offset)
}

// FindBySourceURL backs the reuse policy: at most one generation per URL.
func (s *VideoService) FindBySourceURL(ctx context.Context, sourceURL string) (*model.Video, error) {
	return s.videos.FindBySourceURL(ctx, sourceURL)
}

// Delete removes the video row and its underlying file. A failed file removal
// is logged but does not keep the row alive; the row is the source of truth.
func (s *VideoService) Delete(ctx context.Context, id uint) error {
	video, err := s.videos.Get(ctx, id)
	if err != nil {
		return err
	}

	switch video.StorageLocation {
	case model.StorageCloud:
		if s.storage != nil {
			key := fmt.Sprintf("videos/%d/%s", video.ID, filepath.Base(video.FilePath))
			if err := s.storage.Delete(ctx, key); err != nil {
				s.log.Warn("failed to delete cloud object", "video_id", video.ID, "error", err)
			}
		}
	default:
		if video.FilePath != "" {
			if err := os.Remove(video.FilePath); err != nil && !os.IsNotExist(err) {
				s.log.Warn("failed to delete video file", "video_id", video.ID, "error", err)
			}
		}
	}

	return s.videos.Delete(ctx, id)
}
