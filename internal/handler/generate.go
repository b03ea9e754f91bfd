package handler

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/reelcraft/api/internal/model"
	"github.com/reelcraft/api/pkg/response"
)

// Generator starts a generation (or reuses an existing video) for a URL.
type Generator interface {
	Start(ctx context.Context, url string) (jobID string, reused bool, err error)
}

type GenerateHandler struct {
	pipeline  Generator
	validator *validator.Validate
}

func NewGenerateHandler(pipeline Generator, v *validator.Validate) *GenerateHandler {
	return &GenerateHandler{
		pipeline:  pipeline,
		validator: v,
	}
}

// Generate handles POST /api/generate-video. A URL that already has a video
// gets a synthesized completed job instead of a new generation.
func (h *GenerateHandler) Generate(c *fiber.Ctx) error {
	var req model.GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	jobID, reused, err := h.pipeline.Start(c.Context(), req.URL)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}

	if reused {
		return response.OK(c, model.GenerateResponse{
			JobID:   jobID,
			Status:  model.JobStatusCompleted,
			Message: "Video already generated for this URL",
			Reused:  true,
		})
	}

	return response.Accepted(c, model.GenerateResponse{
		JobID:   jobID,
		Status:  model.JobStatusPending,
		Message: "Video generation started",
	})
}

func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
