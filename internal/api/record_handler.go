package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"vigil-go/internal/domain"
	"vigil-go/internal/ingest"
	"vigil-go/internal/processor"
	"vigil-go/internal/store"
)

// RecordHandler handles record intake and the facts recorded per record.
type RecordHandler struct {
	ingest     *ingest.Service
	processor  *processor.Service
	tracker    store.DedupTracker
	highlights store.HighlightStore
	logger     *slog.Logger
}

// NewRecordHandler creates a new record handler.
func NewRecordHandler(
	ingestService *ingest.Service,
	processorService *processor.Service,
	tracker store.DedupTracker,
	highlights store.HighlightStore,
	logger *slog.Logger,
) *RecordHandler {
	return &RecordHandler{
		ingest:     ingestService,
		processor:  processorService,
		tracker:    tracker,
		highlights: highlights,
		logger:     logger,
	}
}

// Ingest handles POST /v1/records
// Validates a record and publishes it to the message queue.
// Returns 202 Accepted immediately - matching happens asynchronously.
func (h *RecordHandler) Ingest(c *fiber.Ctx) error {
	var rec domain.Record
	if err := c.BodyParser(&rec); err != nil {
		h.logger.Debug("failed to parse record body", "error", err)
		return BadRequest(c, "invalid request body")
	}

	if err := h.ingest.IngestRecord(c.Context(), &rec); err != nil {
		if isValidationError(err) {
			h.logger.Debug("record validation failed", "error", err)
			return ValidationError(c, err.Error())
		}
		h.logger.Error("failed to ingest record", "error", err, "recordID", rec.ID)
		return InternalError(c, "failed to ingest record")
	}

	return Accepted(c, map[string]string{
		"status":    "accepted",
		"record_id": rec.ID,
	})
}

// Evaluate handles POST /v1/records/evaluate
// Runs matching and dispatch synchronously and returns the report.
func (h *RecordHandler) Evaluate(c *fiber.Ctx) error {
	var rec domain.Record
	if err := c.BodyParser(&rec); err != nil {
		h.logger.Debug("failed to parse record body", "error", err)
		return BadRequest(c, "invalid request body")
	}

	if err := ingest.Prepare(&rec); err != nil {
		return ValidationError(c, err.Error())
	}

	report, err := h.processor.ProcessRecord(c.Context(), &rec)
	if err != nil {
		h.logger.Error("record evaluation failed", "recordID", rec.ID, "error", err)
		return Unavailable(c, "alert storage unavailable")
	}

	return Success(c, report)
}

// FiredAlerts handles GET /v1/records/:id/alerts
// Lists the dedup markers written for a record.
func (h *RecordHandler) FiredAlerts(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return BadRequest(c, "id is required")
	}

	markers, err := h.tracker.ListByRecord(c.Context(), id)
	if err != nil {
		h.logger.Error("failed to list dedup markers", "recordID", id, "error", err)
		return InternalError(c, "failed to list fired alerts")
	}
	if markers == nil {
		markers = []*domain.DedupMarker{}
	}

	return Success(c, markers)
}

// Highlights handles GET /v1/records/:id/highlights
func (h *RecordHandler) Highlights(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return BadRequest(c, "id is required")
	}
	if h.highlights == nil {
		return NotFound(c, "highlights are not enabled")
	}

	marks, err := h.highlights.ListByRecord(c.Context(), id)
	if err != nil {
		h.logger.Error("failed to list highlights", "recordID", id, "error", err)
		return InternalError(c, "failed to list highlights")
	}
	if marks == nil {
		marks = []*domain.HighlightMark{}
	}

	return Success(c, marks)
}
