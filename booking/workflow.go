// Package booking drives a visitor from the tour page to a confirmed
// reservation: tour lookup, form validation, the capacity check, persistence
// and the confirmation email.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tour-booking-webapp/config"
	"tour-booking-webapp/database"
	"tour-booking-webapp/model"
	"tour-booking-webapp/notify"
	"tour-booking-webapp/validation"
)

type State int

const (
	Idle State = iota
	TourLookupFailed
	FormInvalid
	CapacityExceeded
	Booked
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case TourLookupFailed:
		return "tour_lookup_failed"
	case FormInvalid:
		return "form_invalid"
	case CapacityExceeded:
		return "capacity_exceeded"
	case Booked:
		return "booked"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Notifier accepts a message for delivery. It must not block the request.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message)
}

// Result is what the booking page needs to render the outcome.
type Result struct {
	State   State
	Tour    model.Tour
	Form    validation.BookingForm
	Errors  validation.FieldErrors
	Booking model.Booking
}

type Listing struct {
	Tours []model.Tour
	Empty bool
}

type Workflow struct {
	Store    database.Store
	Notifier Notifier
	Log      *slog.Logger
	// Mode is config.CapacityAtomic or config.CapacityLegacy.
	Mode string
	// From is the sender address of confirmation emails.
	From string
	Now  func() time.Time
}

func (w *Workflow) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now().UTC()
}

// View handles a plain page load: the tour and an empty form.
func (w *Workflow) View(ctx context.Context, tourID string) (Result, error) {
	w.Log.Debug("tour page loaded", "tour_id", tourID)

	tour, res, err := w.lookupTour(ctx, tourID)
	if err != nil || res.State == TourLookupFailed {
		return res, err
	}
	return Result{State: Idle, Tour: tour, Errors: validation.FieldErrors{}}, nil
}

// Submit processes a booking form for the tour. The returned error is set
// only for infrastructure failures; every outcome a visitor can cause is
// reported through Result.State.
func (w *Workflow) Submit(ctx context.Context, tourID string, form validation.BookingForm) (Result, error) {
	w.Log.Debug("tour page loaded", "tour_id", tourID)

	tour, res, err := w.lookupTour(ctx, tourID)
	if err != nil || res.State == TourLookupFailed {
		return res, err
	}
	res = Result{Tour: tour, Form: form}

	draft, fieldErrs := validation.ValidateBookingForm(w.Log, form)
	if len(fieldErrs) > 0 {
		res.State = FormInvalid
		res.Errors = fieldErrs
		return res, nil
	}

	booking := draft.Booking()
	booking.TourId = tour.Id
	booking.CreatedAt = w.now()

	var booked model.Tour
	if w.Mode == config.CapacityLegacy {
		booked, err = w.reserveLegacy(ctx, tour, &booking)
	} else {
		booked, err = w.Store.BookSeats(ctx, &booking)
	}

	switch {
	case errors.Is(err, database.ErrNotEnoughPlaces):
		w.Log.Warn("not enough places for booking",
			"tour_id", tourID, "requested", booking.NumberOfPeople, "available", w.availablePlaces(ctx, tour))
		res.State = CapacityExceeded
		res.Errors = validation.FieldErrors{}
		res.Errors.Add(validation.FieldNumberOfPeople, validation.MsgNotEnoughPlaces)
		return res, nil
	case errors.Is(err, database.ErrTourNotFound):
		w.Log.Error("tour disappeared during booking", "tour_id", tourID)
		return Result{State: TourLookupFailed}, nil
	case err != nil:
		return res, fmt.Errorf("book tour %s: %w", tourID, err)
	}

	w.Log.Info("tour booked",
		"email", booking.Email, "tour", booked.Title, "number_of_people", booking.NumberOfPeople)

	w.Notifier.Notify(ctx, notify.BookingConfirmation(w.From, booking.Email, booked, booking.NumberOfPeople))

	res.State = Booked
	res.Tour = booked
	res.Booking = booking
	return res, nil
}

// reserveLegacy compares against the snapshot loaded at the start of the
// request and writes the counters back unconditionally. Two concurrent
// requests can both pass the check.
func (w *Workflow) reserveLegacy(ctx context.Context, tour model.Tour, booking *model.Booking) (model.Tour, error) {
	n := booking.NumberOfPeople
	if n > tour.AvailablePlaces {
		return model.Tour{}, fmt.Errorf("%w: requested %d, available %d",
			database.ErrNotEnoughPlaces, n, tour.AvailablePlaces)
	}

	tour.AvailablePlaces -= n
	tour.OccupiedPlaces += n
	if err := w.Store.UpdateTour(ctx, tour); err != nil {
		return model.Tour{}, err
	}
	if err := w.Store.CreateBooking(ctx, booking); err != nil {
		return model.Tour{}, err
	}
	return tour, nil
}

func (w *Workflow) lookupTour(ctx context.Context, tourID string) (model.Tour, Result, error) {
	tour, err := w.Store.GetTour(ctx, tourID)
	if errors.Is(err, database.ErrTourNotFound) {
		w.Log.Error("tour page unavailable, tour may not exist", "tour_id", tourID)
		return model.Tour{}, Result{State: TourLookupFailed}, nil
	}
	if err != nil {
		return model.Tour{}, Result{}, fmt.Errorf("read tour %s: %w", tourID, err)
	}
	return tour, Result{}, nil
}

// availablePlaces reports the freshest known free place count for logging.
func (w *Workflow) availablePlaces(ctx context.Context, snapshot model.Tour) int {
	if w.Mode == config.CapacityLegacy {
		return snapshot.AvailablePlaces
	}
	if current, err := w.Store.GetTour(ctx, snapshot.Id.Hex()); err == nil {
		return current.AvailablePlaces
	}
	return snapshot.AvailablePlaces
}

// ListTours returns every tour. Listing.Empty is set when there are none.
func (w *Workflow) ListTours(ctx context.Context) (Listing, error) {
	w.Log.Debug("tours page loaded")

	tours, err := w.Store.ListTours(ctx)
	if err != nil {
		return Listing{}, fmt.Errorf("list tours: %w", err)
	}
	if len(tours) == 0 {
		w.Log.Warn("tours page is empty, no tours in the database")
		return Listing{Tours: []model.Tour{}, Empty: true}, nil
	}

	w.Log.Info("tours listed", "count", len(tours))
	return Listing{Tours: tours}, nil
}
