package api

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"vigil-go/internal/domain"
	"vigil-go/internal/lifecycle"
)

// AlertHandler handles HTTP requests for alert definition lifecycle.
type AlertHandler struct {
	service *lifecycle.Service
	logger  *slog.Logger
}

// NewAlertHandler creates a new alert handler.
func NewAlertHandler(service *lifecycle.Service, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{
		service: service,
		logger:  logger,
	}
}

// alertView adds whether the definition can currently fire.
type alertView struct {
	*domain.Alert
	Inert bool `json:"inert"`
}

func (h *AlertHandler) view(alert *domain.Alert) alertView {
	return alertView{Alert: alert, Inert: h.service.Inert(alert)}
}

// Create handles POST /v1/alerts
// Creates a new enabled alert definition.
func (h *AlertHandler) Create(c *fiber.Ctx) error {
	var req domain.CreateAlertRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("failed to parse request body", "error", err)
		return BadRequest(c, "invalid request body")
	}

	alert, err := h.service.Create(c.Context(), &req)
	if err != nil {
		if isValidationError(err) {
			return ValidationError(c, err.Error())
		}
		h.logger.Error("failed to create alert", "error", err)
		return InternalError(c, "failed to create alert")
	}

	return Created(c, h.view(alert))
}

// List handles GET /v1/alerts
// Returns alert definitions matching query parameters.
func (h *AlertHandler) List(c *fiber.Ctx) error {
	filter := domain.AlertFilter{
		TriggerKind:      c.Query("trigger_kind"),
		NotificationKind: c.Query("notification_kind"),
	}

	if status := c.Query("status"); status != "" {
		filter.Status = domain.AlertStatus(status)
		if !filter.Status.IsValid() {
			return ValidationError(c, domain.ErrInvalidStatus.Error())
		}
	}

	if limit := c.Query("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			filter.Limit = l
		}
	}
	if offset := c.Query("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil && o >= 0 {
			filter.Offset = o
		}
	}

	if filter.Limit == 0 {
		filter.Limit = 100
	}

	alerts, err := h.service.List(c.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list alerts", "error", err)
		return InternalError(c, "failed to list alerts")
	}

	views := make([]alertView, 0, len(alerts))
	for _, a := range alerts {
		views = append(views, h.view(a))
	}
	return Success(c, views)
}

// GetByID handles GET /v1/alerts/:id
func (h *AlertHandler) GetByID(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return BadRequest(c, "id is required")
	}

	alert, err := h.service.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrAlertNotFound) {
			return NotFound(c, "alert not found")
		}
		h.logger.Error("failed to get alert", "alertID", id, "error", err)
		return InternalError(c, "failed to get alert")
	}

	return Success(c, h.view(alert))
}

// SetStatus handles PUT /v1/alerts/:id/status
// Enables or disables an alert definition.
func (h *AlertHandler) SetStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return BadRequest(c, "id is required")
	}

	var req domain.SetStatusRequest
	if err := c.BodyParser(&req); err != nil {
		h.logger.Debug("failed to parse request body", "error", err)
		return BadRequest(c, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return ValidationError(c, err.Error())
	}

	alert, err := h.service.SetStatus(c.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, domain.ErrAlertNotFound) {
			return NotFound(c, "alert not found")
		}
		h.logger.Error("failed to update alert status", "alertID", id, "error", err)
		return InternalError(c, "failed to update alert status")
	}

	return Success(c, h.view(alert))
}

// Delete handles DELETE /v1/alerts/:id
func (h *AlertHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return BadRequest(c, "id is required")
	}

	if err := h.service.Delete(c.Context(), id); err != nil {
		if errors.Is(err, domain.ErrAlertNotFound) {
			return NotFound(c, "alert not found")
		}
		h.logger.Error("failed to delete alert", "alertID", id, "error", err)
		return InternalError(c, "failed to delete alert")
	}

	return NoContent(c)
}

// isValidationError reports whether err came from request validation.
func isValidationError(err error) bool {
	return errors.Is(err, domain.ErrEmptyAuthorID) ||
		errors.Is(err, domain.ErrEmptyTriggerKind) ||
		errors.Is(err, domain.ErrEmptyNotificationKind) ||
		errors.Is(err, domain.ErrInvalidStatus) ||
		errors.Is(err, domain.ErrEmptyRecordID) ||
		errors.Is(err, domain.ErrEmptyConnector) ||
		errors.Is(err, domain.ErrEmptyAction)
}
