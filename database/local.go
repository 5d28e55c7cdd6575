package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"tour-booking-webapp/model"
)

type localData struct {
	Tours    []model.Tour    `json:"tours"`
	Bookings []model.Booking `json:"bookings"`
}

func (d localData) clone() localData {
	return localData{
		Tours:    append([]model.Tour(nil), d.Tours...),
		Bookings: append([]model.Booking(nil), d.Bookings...),
	}
}

func (d localData) tourIndex(id primitive.ObjectID) int {
	for i, tour := range d.Tours {
		if tour.Id == id {
			return i
		}
	}
	return -1
}

// LocalStore keeps everything in memory and commits the whole database to a
// JSON file after every change. An empty path keeps it memory only.
type LocalStore struct {
	mu   sync.Mutex
	path string
	data localData
	log  *slog.Logger
}

func NewLocalStore(path string, log *slog.Logger) (*LocalStore, error) {
	s := &LocalStore{path: path, log: log}
	if path == "" {
		return s, nil
	}

	data, err := readLocalDB(path)
	if err != nil {
		return nil, err
	}
	s.data = data
	log.Info("local database loaded", "path", path, "tours", len(data.Tours), "bookings", len(data.Bookings))
	return s, nil
}

func readLocalDB(path string) (localData, error) {
	data := localData{}

	fileBytes, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := commitLocalDB(path, data); err != nil {
			return data, err
		}
		return data, nil
	} else if err != nil {
		return data, fmt.Errorf("read local db: %w", err)
	}

	if err := json.Unmarshal(fileBytes, &data); err != nil {
		return data, fmt.Errorf("decode local db %s: %w", path, err)
	}
	return data, nil
}

func commitLocalDB(path string, data localData) error {
	dataBytes, err := json.MarshalIndent(data, "", "	")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create local db dir: %w", err)
		}
	}
	if err := os.WriteFile(path, dataBytes, 0644); err != nil {
		return fmt.Errorf("write local db: %w", err)
	}
	return nil
}

// mutate applies fn to a copy of the data and keeps the copy only when both
// fn and the commit to disk succeed.
func (s *LocalStore) mutate(fn func(*localData) error) error {
	next := s.data.clone()
	if err := fn(&next); err != nil {
		return err
	}
	if s.path != "" {
		if err := commitLocalDB(s.path, next); err != nil {
			return err
		}
	}
	s.data = next
	return nil
}

func (s *LocalStore) ListTours(_ context.Context) ([]model.Tour, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]model.Tour{}, s.data.Tours...), nil
}

func (s *LocalStore) GetTour(_ context.Context, id string) (model.Tour, error) {
	objId, err := tourObjectID(id)
	if err != nil {
		return model.Tour{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.data.tourIndex(objId)
	if i < 0 {
		return model.Tour{}, fmt.Errorf("%w: no tour with id %v", ErrTourNotFound, id)
	}
	return s.data.Tours[i], nil
}

func (s *LocalStore) CreateTour(_ context.Context, tour *model.Tour) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tour.Id.IsZero() {
		tour.Id = primitive.NewObjectID()
	}
	return s.mutate(func(d *localData) error {
		if d.tourIndex(tour.Id) >= 0 {
			return fmt.Errorf("tour with id %v already exists", tour.Id.Hex())
		}
		d.Tours = append(d.Tours, *tour)
		return nil
	})
}

func (s *LocalStore) UpdateTour(_ context.Context, tour model.Tour) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutate(func(d *localData) error {
		i := d.tourIndex(tour.Id)
		if i < 0 {
			return fmt.Errorf("%w: no tour with id %v", ErrTourNotFound, tour.Id.Hex())
		}
		d.Tours[i] = tour
		return nil
	})
}

func (s *LocalStore) DeleteTour(_ context.Context, id string) error {
	objId, err := tourObjectID(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutate(func(d *localData) error {
		i := d.tourIndex(objId)
		if i < 0 {
			return fmt.Errorf("%w: no tour with id %v", ErrTourNotFound, id)
		}
		d.Tours = append(d.Tours[:i], d.Tours[i+1:]...)

		kept := d.Bookings[:0]
		for _, booking := range d.Bookings {
			if booking.TourId != objId {
				kept = append(kept, booking)
			}
		}
		d.Bookings = kept
		return nil
	})
}

func (s *LocalStore) BookSeats(_ context.Context, booking *model.Booking) (model.Tour, error) {
	if err := prepareBooking(booking); err != nil {
		return model.Tour{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var booked model.Tour
	err := s.mutate(func(d *localData) error {
		i := d.tourIndex(booking.TourId)
		if i < 0 {
			return fmt.Errorf("%w: no tour with id %v", ErrTourNotFound, booking.TourId.Hex())
		}
		tour := &d.Tours[i]
		if booking.NumberOfPeople > tour.AvailablePlaces {
			return fmt.Errorf("%w: requested %d, available %d",
				ErrNotEnoughPlaces, booking.NumberOfPeople, tour.AvailablePlaces)
		}
		tour.AvailablePlaces -= booking.NumberOfPeople
		tour.OccupiedPlaces += booking.NumberOfPeople
		d.Bookings = append(d.Bookings, *booking)
		booked = *tour
		return nil
	})
	if err != nil {
		return model.Tour{}, err
	}
	return booked, nil
}

func (s *LocalStore) CreateBooking(_ context.Context, booking *model.Booking) error {
	if err := prepareBooking(booking); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mutate(func(d *localData) error {
		if d.tourIndex(booking.TourId) < 0 {
			return fmt.Errorf("%w: no tour with id %v", ErrTourNotFound, booking.TourId.Hex())
		}
		d.Bookings = append(d.Bookings, *booking)
		return nil
	})
}

func (s *LocalStore) ListBookings(_ context.Context, tourID string) ([]model.Booking, error) {
	objId, err := tourObjectID(tourID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bookings := []model.Booking{}
	for _, booking := range s.data.Bookings {
		if booking.TourId == objId {
			bookings = append(bookings, booking)
		}
	}
	return bookings, nil
}

func (s *LocalStore) Ping(_ context.Context) error {
	if s.path == "" {
		return nil
	}
	if _, err := os.Stat(s.path); err != nil {
		return fmt.Errorf("local db unavailable: %w", err)
	}
	return nil
}

func (s *LocalStore) Close(_ context.Context) error {
	return nil
}

var _ Store = (*LocalStore)(nil)
