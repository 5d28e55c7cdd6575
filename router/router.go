package router

import (
	"tour-booking-webapp/handlers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

// SetupRoutes registers the public pages. limiter guards booking
// submissions and may be nil.
func SetupRoutes(app *fiber.App, h *handlers.Handlers, limiter fiber.Handler) {
	app.Get("/healthz", h.Healthz)
	app.Get("/readyz", h.Readyz)

	api := app.Group("/", logger.New())
	api.Get("/", h.Welcome)

	//Tours
	tours := api.Group("/tours")
	tours.Get("/", h.GetTours)

	//Booking
	book := tours.Group("/book/:tourId")
	book.Get("/", h.GetBookTour)
	if limiter != nil {
		book.Post("/", limiter, h.PostBookTour)
	} else {
		book.Post("/", h.PostBookTour)
	}

	api.Get(handlers.SuccessBookPath, h.SuccessBook)
}
