package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"tour-booking-webapp/booking"
	"tour-booking-webapp/database"
	"tour-booking-webapp/errors"
)

const readinessTimeout = 2 * time.Second

type Handlers struct {
	workflow *booking.Workflow
	store    database.Store
	log      *slog.Logger
}

func New(workflow *booking.Workflow, store database.Store, log *slog.Logger) *Handlers {
	return &Handlers{workflow: workflow, store: store, log: log}
}

func (h *Handlers) Welcome(c *fiber.Ctx) error {
	h.log.Debug("welcome page loaded")

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "Tours for the soul",
		"data": fiber.Map{
			"tours": "/tours/",
		}})
}

func (h *Handlers) SuccessBook(c *fiber.Ctx) error {
	h.log.Debug("booking success page loaded")

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "tour booked",
		"data":    "Our manager will contact you within 24 hours. Please expect a call!"})
}

func (h *Handlers) Healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handlers) Readyz(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.log.Error("readiness check failed", "error", err)
		return errors.RaiseServiceUnavailableError(c, fmt.Sprintf("storage is not available: %v", err))
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
