package api

import (
	"github.com/gofiber/fiber/v2"

	"vigil-go/internal/notifier"
	"vigil-go/internal/registry"
	"vigil-go/internal/trigger"
)

// RegistryHandler exposes the registered trigger and notifier kinds so an
// authoring UI can render its forms. It is read-only.
type RegistryHandler struct {
	triggers  *trigger.Registry
	notifiers *notifier.Registry
}

// NewRegistryHandler creates a new registry handler.
func NewRegistryHandler(triggers *trigger.Registry, notifiers *notifier.Registry) *RegistryHandler {
	return &RegistryHandler{
		triggers:  triggers,
		notifiers: notifiers,
	}
}

// kindsResponse lists available kinds and the registrations that were refused.
type kindsResponse struct {
	Kinds    []registry.Descriptor `json:"kinds"`
	Rejected []registry.Rejection  `json:"rejected"`
}

// Triggers handles GET /v1/triggers
func (h *RegistryHandler) Triggers(c *fiber.Ctx) error {
	return Success(c, kindsResponse{
		Kinds:    h.triggers.Describe(),
		Rejected: h.triggers.Rejected(),
	})
}

// Notifiers handles GET /v1/notifiers
func (h *RegistryHandler) Notifiers(c *fiber.Ctx) error {
	return Success(c, kindsResponse{
		Kinds:    h.notifiers.Describe(),
		Rejected: h.notifiers.Rejected(),
	})
}
