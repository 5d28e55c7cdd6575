package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"tour-booking-webapp/booking"
	"tour-booking-webapp/errors"
	"tour-booking-webapp/validation"
)

const SuccessBookPath = "/success_book/"

func (h *Handlers) GetBookTour(c *fiber.Ctx) error {
	tourId := c.Params("tourId")

	res, err := h.workflow.View(c.UserContext(), tourId)
	if err != nil {
		h.log.Error("server side problem occured while loading tour", "tour_id", tourId, "error", err)
		return errors.RaiseInternalServerError(c, fmt.Sprintf("database error: %v", err))
	}
	if res.State == booking.TourLookupFailed {
		return errors.RaiseNotFoundError(c, fmt.Sprintf("tour %v not found", tourId))
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": "book tour",
		"data":    bookingPage(res)})
}

func (h *Handlers) PostBookTour(c *fiber.Ctx) error {
	tourId := c.Params("tourId")

	form := new(validation.BookingForm)
	if err := c.BodyParser(form); err == fiber.ErrUnprocessableEntity {
		// no body or an unknown content type counts as an empty form
		*form = validation.BookingForm{}
	} else if err != nil {
		h.log.Warn("cannot parse booking form", "tour_id", tourId, "error", err)
		return errors.RaiseBadRequestError(c, fmt.Sprintf("unreadable booking form: %v", err))
	}

	res, err := h.workflow.Submit(c.UserContext(), tourId, *form)
	if err != nil {
		h.log.Error("server side problem occured while booking tour", "tour_id", tourId, "error", err)
		return errors.RaiseInternalServerError(c, fmt.Sprintf("database error: %v", err))
	}

	switch res.State {
	case booking.TourLookupFailed:
		return errors.RaiseNotFoundError(c, fmt.Sprintf("tour %v not found", tourId))
	case booking.FormInvalid, booking.CapacityExceeded:
		return errors.RaiseValidationError(c, bookingPage(res))
	case booking.Booked:
		return c.Redirect(SuccessBookPath)
	default:
		return errors.RaiseInternalServerError(c, fmt.Sprintf("unexpected booking state %v", res.State))
	}
}

func bookingPage(res booking.Result) fiber.Map {
	errs := res.Errors
	if errs == nil {
		errs = validation.FieldErrors{}
	}
	return fiber.Map{
		"tour":   res.Tour,
		"form":   res.Form,
		"errors": errs,
	}
}
