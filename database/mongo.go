package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tour-booking-webapp/model"
)

const (
	ToursCollectionName    = "tours"
	BookingsCollectionName = "bookings"
)

type MongoStore struct {
	db       *mongo.Database
	tours    *mongo.Collection
	bookings *mongo.Collection
	log      *slog.Logger
}

// ConnectMongo dials the server, checks it answers and returns a store on
// the given database.
func ConnectMongo(ctx context.Context, connString, dbName string, log *slog.Logger) (*MongoStore, error) {
	clientOptions := options.Client().ApplyURI(connString)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to the db: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("db is not available: %w", err)
	}

	log.Info("mongodb connected", "database", dbName)
	return NewMongoStore(client.Database(dbName), log), nil
}

func NewMongoStore(db *mongo.Database, log *slog.Logger) *MongoStore {
	return &MongoStore{
		db:       db,
		tours:    db.Collection(ToursCollectionName),
		bookings: db.Collection(BookingsCollectionName),
		log:      log,
	}
}

func (s *MongoStore) ListTours(ctx context.Context) ([]model.Tour, error) {
	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: 1}})
	cur, err := s.tours.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("server side problem occured while reading tours from database: %w", err)
	}

	tours := []model.Tour{}
	if err := cur.All(ctx, &tours); err != nil {
		return nil, fmt.Errorf("server side problem occured while reading tours from database: %w", err)
	}
	return tours, nil
}

func (s *MongoStore) GetTour(ctx context.Context, id string) (model.Tour, error) {
	objId, err := tourObjectID(id)
	if err != nil {
		return model.Tour{}, err
	}
	return s.getTour(ctx, objId)
}

func (s *MongoStore) getTour(ctx context.Context, objId primitive.ObjectID) (model.Tour, error) {
	var tour model.Tour
	err := s.tours.FindOne(ctx, bson.D{{Key: "_id", Value: objId}}).Decode(&tour)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Tour{}, fmt.Errorf("%w: no tour with id %v", ErrTourNotFound, objId.Hex())
	}
	if err != nil {
		return model.Tour{}, fmt.Errorf("server side problem occured while reading tour %v: %w", objId.Hex(), err)
	}
	return tour, nil
}

func (s *MongoStore) CreateTour(ctx context.Context, tour *model.Tour) error {
	if tour.Id.IsZero() {
		tour.Id = primitive.NewObjectID()
	}
	return writeToCollection(ctx, s.tours, tour)
}

func (s *MongoStore) UpdateTour(ctx context.Context, tour model.Tour) error {
	res, err := s.tours.ReplaceOne(ctx, bson.D{{Key: "_id", Value: tour.Id}}, tour)
	if err != nil {
		return fmt.Errorf("cannot update tour %v: %w", tour.Id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: no tour with id %v", ErrTourNotFound, tour.Id.Hex())
	}
	return nil
}

func (s *MongoStore) DeleteTour(ctx context.Context, id string) error {
	objId, err := tourObjectID(id)
	if err != nil {
		return err
	}

	res, err := s.tours.DeleteOne(ctx, bson.D{{Key: "_id", Value: objId}})
	if err != nil {
		return fmt.Errorf("cannot delete tour %v: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: no tour with id %v", ErrTourNotFound, id)
	}

	removed, err := s.bookings.DeleteMany(ctx, bson.D{{Key: "tour_id", Value: objId}})
	if err != nil {
		return fmt.Errorf("tour %v deleted but its bookings were not: %w", id, err)
	}
	s.log.Info("tour deleted", "tour_id", id, "bookings_removed", removed.DeletedCount)
	return nil
}

// BookSeats decrements the counters with a conditional update so that two
// concurrent requests can never take more places than are available. The
// booking insert comes second; if it fails the counters are put back.
func (s *MongoStore) BookSeats(ctx context.Context, booking *model.Booking) (model.Tour, error) {
	if err := prepareBooking(booking); err != nil {
		return model.Tour{}, err
	}
	n := booking.NumberOfPeople

	filter := bson.D{
		{Key: "_id", Value: booking.TourId},
		{Key: "available_places", Value: bson.D{{Key: "$gte", Value: n}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var tour model.Tour
	err := s.tours.FindOneAndUpdate(ctx, filter, seatsDelta(n), opts).Decode(&tour)
	if errors.Is(err, mongo.ErrNoDocuments) {
		current, getErr := s.getTour(ctx, booking.TourId)
		if getErr != nil {
			return model.Tour{}, getErr
		}
		return model.Tour{}, fmt.Errorf("%w: requested %d, available %d",
			ErrNotEnoughPlaces, n, current.AvailablePlaces)
	}
	if err != nil {
		return model.Tour{}, fmt.Errorf("cannot reserve places on tour %v: %w", booking.TourId.Hex(), err)
	}

	if err := writeToCollection(ctx, s.bookings, booking); err != nil {
		_, undoErr := s.tours.UpdateOne(ctx, bson.D{{Key: "_id", Value: booking.TourId}}, seatsDelta(-n))
		if undoErr != nil {
			s.log.Error("cannot return places after failed booking insert",
				"tour_id", booking.TourId.Hex(), "places", n, "error", undoErr)
		}
		return model.Tour{}, err
	}
	return tour, nil
}

func seatsDelta(n int) bson.D {
	return bson.D{{Key: "$inc", Value: bson.D{
		{Key: "available_places", Value: -n},
		{Key: "occupied_places", Value: n},
	}}}
}

func (s *MongoStore) CreateBooking(ctx context.Context, booking *model.Booking) error {
	if err := prepareBooking(booking); err != nil {
		return err
	}
	return writeToCollection(ctx, s.bookings, booking)
}

func (s *MongoStore) ListBookings(ctx context.Context, tourID string) ([]model.Booking, error) {
	objId, err := tourObjectID(tourID)
	if err != nil {
		return nil, err
	}

	cur, err := s.bookings.Find(ctx, bson.D{{Key: "tour_id", Value: objId}})
	if err != nil {
		return nil, fmt.Errorf("server side problem occured while reading bookings: %w", err)
	}
	bookings := []model.Booking{}
	if err := cur.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("server side problem occured while reading bookings: %w", err)
	}
	return bookings, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

func writeToCollection(ctx context.Context, collection *mongo.Collection, item any) error {
	if _, err := collection.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("cannot write to %s: %w", collection.Name(), err)
	}
	return nil
}

var _ Store = (*MongoStore)(nil)
