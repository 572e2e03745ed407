package handler

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/satria-go-api/internal/dto"
	"github.com/noah-isme/satria-go-api/internal/service"
	"github.com/noah-isme/satria-go-api/internal/utils"
)

// WorkloadHandler exposes the faculty workload aggregation endpoint.
type WorkloadHandler struct {
	service service.WorkloadService
	logger  zerolog.Logger
}

func NewWorkloadHandler(service service.WorkloadService, logger zerolog.Logger) *WorkloadHandler {
	return &WorkloadHandler{
		service: service,
		logger:  logger.With().Str("component", "workload_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *WorkloadHandler) Register(router fiber.Router) {
	router.Get("/:id/workload", h.getWorkload)
}

func (h *WorkloadHandler) getWorkload(c *fiber.Ctx) error {
	facultyID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	req := dto.WorkloadRequest{FacultyID: facultyID}
	if from := c.Query("from"); from != "" {
		parsed, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "from must be an RFC3339 timestamp")
		}
		req.From = &parsed
	}
	if to := c.Query("to"); to != "" {
		parsed, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "to must be an RFC3339 timestamp")
		}
		req.To = &parsed
	}
	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return utils.SendError(c, fiber.StatusBadRequest, "to must not be before from")
	}

	workload, err := h.service.GetFacultyWorkload(c.Context(), req)
	if err != nil {
		var validationErrors validator.ValidationErrors
		switch {
		case errors.Is(err, service.ErrFacultyNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "faculty member not found")
		case errors.As(err, &validationErrors):
			return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("workload aggregation failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
		}
	}

	return utils.SendSuccess(c, "workload retrieved", workload)
}
