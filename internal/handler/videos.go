package handler

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/internal/service"
	"github.com/reelcraft/api/internal/store"
	"github.com/reelcraft/api/pkg/response"
)

type VideoHandler struct {
	videos *service.VideoService
}

func NewVideoHandler(videos *service.VideoService) *VideoHandler {
	return &VideoHandler{videos: videos}
}

func parseVideoID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

// List handles GET /api/videos
func (h *VideoHandler) List(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	videos, err := h.videos.List(c.Context(), limit, offset)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, model.VideoListResponse{
		Videos: videos,
		Count:  len(videos),
	})
}

// Get handles GET /api/videos/:id
func (h *VideoHandler) Get(c *fiber.Ctx) error {
	id, err := parseVideoID(c)
	if err != nil {
		return response.ValidationError(c, "Invalid video ID", nil)
	}

	video, err := h.videos.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Video not found")
		}
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, video)
}

// ServeFile handles GET /api/videos/:id/file. Local videos stream from disk;
// cloud videos redirect to their public URL.
func (h *VideoHandler) ServeFile(c *fiber.Ctx) error {
	id, err := parseVideoID(c)
	if err != nil {
		return response.ValidationError(c, "Invalid video ID", nil)
	}

	video, err := h.videos.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Video not found")
		}
		return response.ServiceError(c, err.Error())
	}

	if video.StorageLocation == model.StorageCloud {
		return c.Redirect(video.FilePath, fiber.StatusTemporaryRedirect)
	}
	return c.SendFile(video.FilePath)
}

// Delete handles DELETE /api/videos/:id
func (h *VideoHandler) Delete(c *fiber.Ctx) error {
	id, err := parseVideoID(c)
	if err != nil {
		return response.ValidationError(c, "Invalid video ID", nil)
	}

	if err := h.videos.Delete(c.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Video not found")
		}
		return response.ServiceError(c, err.Error())
	}
	return c.SendStatus(fiber.StatusNoContent)
}
