package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"tour-booking-webapp/config"
	"tour-booking-webapp/model"
)

var (
	ErrTourNotFound    = errors.New("tour not found")
	ErrNotEnoughPlaces = errors.New("not enough available places")
)

// Store persists tours and bookings.
//
// BookSeats is the one operation that has to be atomic: it moves
// NumberOfPeople seats of the booking's tour from available to occupied,
// refusing to go below zero, and saves the booking. UpdateTour overwrites
// every field of the tour and makes no such promise.
type Store interface {
	ListTours(ctx context.Context) ([]model.Tour, error)
	GetTour(ctx context.Context, id string) (model.Tour, error)
	CreateTour(ctx context.Context, tour *model.Tour) error
	UpdateTour(ctx context.Context, tour model.Tour) error
	DeleteTour(ctx context.Context, id string) error

	BookSeats(ctx context.Context, booking *model.Booking) (model.Tour, error)
	CreateBooking(ctx context.Context, booking *model.Booking) error
	ListBookings(ctx context.Context, tourID string) ([]model.Booking, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Open connects to the storage backend selected in the config.
func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (Store, error) {
	switch cfg.StorageDriver {
	case config.StorageMongo:
		return ConnectMongo(ctx, cfg.MongoConnString, cfg.MongoDatabase, log)
	case config.StoragePostgres:
		store, err := ConnectPostgres(ctx, cfg.PostgresDSN, log)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			store.Close(ctx)
			return nil, err
		}
		return store, nil
	case config.StorageLocal:
		return NewLocalStore(cfg.LocalDBPath, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// tourObjectID parses a tour id from a URL. Anything that is not a valid
// ObjectID cannot name an existing tour.
func tourObjectID(id string) (primitive.ObjectID, error) {
	objId, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: malformed id %q", ErrTourNotFound, id)
	}
	return objId, nil
}

func prepareBooking(booking *model.Booking) error {
	if booking.NumberOfPeople <= 0 {
		return fmt.Errorf("cannot book %d places", booking.NumberOfPeople)
	}
	if booking.Id.IsZero() {
		booking.Id = primitive.NewObjectID()
	}
	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = time.Now().UTC()
	}
	return nil
}
