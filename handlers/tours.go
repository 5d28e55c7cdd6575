package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"tour-booking-webapp/errors"
)

func (h *Handlers) GetTours(c *fiber.Ctx) error {
	listing, err := h.workflow.ListTours(c.UserContext())
	if err != nil {
		h.log.Error("server side problem occured while listing tours", "error", err)
		return errors.RaiseInternalServerError(c, fmt.Sprintf("database error: %v", err))
	}

	if listing.Empty {
		return c.JSON(fiber.Map{
			"status":  "empty",
			"message": "no tours have been added yet",
			"data":    listing.Tours})
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": fmt.Sprintf("%d tours", len(listing.Tours)),
		"data":    listing.Tours})
}
