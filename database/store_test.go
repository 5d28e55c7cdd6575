package database

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tour-booking-webapp/model"
)

func newTour(title string, places int) *model.Tour {
	return &model.Tour{
		Title:           title,
		Description:     "three days in the mountains",
		Place:           "Altai",
		StartDate:       time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC),
		DurationDays:    3,
		MaxPeople:       places,
		AvailablePlaces: places,
		PricePerPerson:  model.NewMoney(15000, 50),
	}
}

func newBooking(tourId primitive.ObjectID, people int) *model.Booking {
	return &model.Booking{
		Name:           "Ivan Petrov",
		Email:          "ivan@example.com",
		Phone:          "+79161234567",
		NumberOfPeople: people,
		TourId:         tourId,
	}
}

// runStoreSuite checks the behaviour every Store implementation shares.
func runStoreSuite(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("create and get tour", func(t *testing.T) {
		tour := newTour("Altai trip", 10)
		require.NoError(t, store.CreateTour(ctx, tour))
		require.False(t, tour.Id.IsZero())
		t.Cleanup(func() { _ = store.DeleteTour(ctx, tour.Id.Hex()) })

		got, err := store.GetTour(ctx, tour.Id.Hex())
		require.NoError(t, err)
		assert.Equal(t, tour.Title, got.Title)
		assert.Equal(t, tour.PricePerPerson, got.PricePerPerson)
		assert.Equal(t, "2026-07-01", got.StartDateString())
		assert.Equal(t, 10, got.AvailablePlaces)
	})

	t.Run("unknown and malformed ids are not found", func(t *testing.T) {
		_, err := store.GetTour(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, ErrTourNotFound)

		_, err = store.GetTour(ctx, "not-an-id")
		assert.ErrorIs(t, err, ErrTourNotFound)

		err = store.DeleteTour(ctx, primitive.NewObjectID().Hex())
		assert.ErrorIs(t, err, ErrTourNotFound)
	})

	t.Run("update overwrites the tour", func(t *testing.T) {
		tour := newTour("Baikal", 4)
		require.NoError(t, store.CreateTour(ctx, tour))
		t.Cleanup(func() { _ = store.DeleteTour(ctx, tour.Id.Hex()) })

		tour.AvailablePlaces = 1
		tour.OccupiedPlaces = 3
		require.NoError(t, store.UpdateTour(ctx, *tour))

		got, err := store.GetTour(ctx, tour.Id.Hex())
		require.NoError(t, err)
		assert.Equal(t, 1, got.AvailablePlaces)
		assert.Equal(t, 3, got.OccupiedPlaces)

		missing := newTour("Ghost", 1)
		missing.Id = primitive.NewObjectID()
		assert.ErrorIs(t, store.UpdateTour(ctx, *missing), ErrTourNotFound)
	})

	t.Run("book seats moves places and saves booking", func(t *testing.T) {
		tour := newTour("Kamchatka", 5)
		require.NoError(t, store.CreateTour(ctx, tour))
		t.Cleanup(func() { _ = store.DeleteTour(ctx, tour.Id.Hex()) })

		booking := newBooking(tour.Id, 3)
		booked, err := store.BookSeats(ctx, booking)
		require.NoError(t, err)
		assert.False(t, booking.Id.IsZero())
		assert.Equal(t, 2, booked.AvailablePlaces)
		assert.Equal(t, 3, booked.OccupiedPlaces)

		_, err = store.BookSeats(ctx, newBooking(tour.Id, 3))
		assert.ErrorIs(t, err, ErrNotEnoughPlaces)

		got, err := store.GetTour(ctx, tour.Id.Hex())
		require.NoError(t, err)
		assert.Equal(t, 2, got.AvailablePlaces)
		assert.Equal(t, got.MaxPeople, got.AvailablePlaces+got.OccupiedPlaces)

		bookings, err := store.ListBookings(ctx, tour.Id.Hex())
		require.NoError(t, err)
		require.Len(t, bookings, 1)
		assert.Equal(t, booking.Id, bookings[0].Id)
		assert.Equal(t, 3, bookings[0].NumberOfPeople)
	})

	t.Run("book seats on missing tour", func(t *testing.T) {
		_, err := store.BookSeats(ctx, newBooking(primitive.NewObjectID(), 1))
		assert.ErrorIs(t, err, ErrTourNotFound)

		err = store.CreateBooking(ctx, newBooking(primitive.NewObjectID(), 1))
		assert.ErrorIs(t, err, ErrTourNotFound)
	})

	t.Run("book seats rejects non-positive headcount", func(t *testing.T) {
		_, err := store.BookSeats(ctx, newBooking(primitive.NewObjectID(), 0))
		assert.Error(t, err)
	})

	t.Run("concurrent bookings never overbook", func(t *testing.T) {
		tour := newTour("Elbrus", 5)
		require.NoError(t, store.CreateTour(ctx, tour))
		t.Cleanup(func() { _ = store.DeleteTour(ctx, tour.Id.Hex()) })

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			booked   int
			rejected int
		)
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.BookSeats(ctx, newBooking(tour.Id, 1))
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					booked++
				case errors.Is(err, ErrNotEnoughPlaces):
					rejected++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 5, booked)
		assert.Equal(t, 5, rejected)

		got, err := store.GetTour(ctx, tour.Id.Hex())
		require.NoError(t, err)
		assert.Equal(t, 0, got.AvailablePlaces)
		assert.Equal(t, 5, got.OccupiedPlaces)
	})

	t.Run("delete cascades bookings", func(t *testing.T) {
		tour := newTour("Karelia", 6)
		require.NoError(t, store.CreateTour(ctx, tour))

		_, err := store.BookSeats(ctx, newBooking(tour.Id, 2))
		require.NoError(t, err)
		require.NoError(t, store.CreateBooking(ctx, newBooking(tour.Id, 1)))

		require.NoError(t, store.DeleteTour(ctx, tour.Id.Hex()))

		_, err = store.GetTour(ctx, tour.Id.Hex())
		assert.ErrorIs(t, err, ErrTourNotFound)

		bookings, err := store.ListBookings(ctx, tour.Id.Hex())
		require.NoError(t, err)
		assert.Empty(t, bookings)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, store.Ping(ctx))
	})
}
