package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/reelcraft/api/internal/job"
	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/internal/store"
	"github.com/reelcraft/api/pkg/response"
)

type JobHandler struct {
	manager *job.Manager
}

func NewJobHandler(manager *job.Manager) *JobHandler {
	return &JobHandler{manager: manager}
}

// Status handles GET /api/jobs/:jobId
func (h *JobHandler) Status(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	j, err := h.manager.GetStatus(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, j)
}

// Cancel handles POST /api/jobs/:jobId/cancel
func (h *JobHandler) Cancel(c *fiber.Ctx) error {
	jobID := c.Params("jobId")
	if jobID == "" {
		return response.ValidationError(c, "Job ID is required", nil)
	}

	cancelled, err := h.manager.Cancel(c.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return response.NotFound(c, "Job not found")
		}
		return response.ServiceError(c, err.Error())
	}

	if !cancelled {
		return response.OK(c, model.CancelResponse{
			Status:  "not_running",
			Message: "Job already finished",
		})
	}
	return response.OK(c, model.CancelResponse{
		Status:  "cancelling",
		Message: "Cancellation requested",
	})
}

// List handles GET /api/jobs
func (h *JobHandler) List(c *fiber.Ctx) error {
	var status *model.JobStatus
	if raw := c.Query("status"); raw != "" {
		s := model.JobStatus(raw)
		if !s.IsValid() {
			return response.ValidationError(c, "Invalid status filter", nil)
		}
		status = &s
	}

	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	jobs, err := h.manager.List(c.Context(), status, limit, offset)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	return response.OK(c, model.JobListResponse{
		Jobs:  jobs,
		Count: len(jobs),
	})
}
