package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tour-booking-webapp/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

const pgForeignKeyViolation = "23503"

const tourColumns = `id, title, description, place, start_date, duration_days, max_people,
	available_places, occupied_places, price_per_person::text, image`

const bookingColumns = `id, name, email, phone, number_of_people, tour_id, created_at`

type PostgresStore struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func ConnectPostgres(ctx context.Context, dsn string, log *slog.Logger) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db is not available: %w", err)
	}

	log.Info("postgres connected", "database", cfg.ConnConfig.Database)
	return &PostgresStore{pool: pool, log: log}, nil
}

// Migrate applies the embedded SQL files in name order. The statements are
// idempotent so it runs on every start.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		sqlBytes, err := migrations.ReadFile(name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := s.pool.Exec(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
		s.log.Info("migration applied", "file", name)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTour(row rowScanner) (model.Tour, error) {
	var (
		tour  model.Tour
		id    string
		price string
	)
	err := row.Scan(&id, &tour.Title, &tour.Description, &tour.Place, &tour.StartDate,
		&tour.DurationDays, &tour.MaxPeople, &tour.AvailablePlaces, &tour.OccupiedPlaces,
		&price, &tour.Image)
	if err != nil {
		return model.Tour{}, err
	}
	if tour.Id, err = primitive.ObjectIDFromHex(id); err != nil {
		return model.Tour{}, fmt.Errorf("stored tour id %q: %w", id, err)
	}
	if tour.PricePerPerson, err = model.ParseMoney(price); err != nil {
		return model.Tour{}, fmt.Errorf("stored price of tour %s: %w", id, err)
	}
	tour.StartDate = tour.StartDate.UTC()
	return tour, nil
}

func scanBooking(row rowScanner) (model.Booking, error) {
	var (
		booking model.Booking
		id      string
		tourId  string
	)
	err := row.Scan(&id, &booking.Name, &booking.Email, &booking.Phone,
		&booking.NumberOfPeople, &tourId, &booking.CreatedAt)
	if err != nil {
		return model.Booking{}, err
	}
	if booking.Id, err = primitive.ObjectIDFromHex(id); err != nil {
		return model.Booking{}, fmt.Errorf("stored booking id %q: %w", id, err)
	}
	if booking.TourId, err = primitive.ObjectIDFromHex(tourId); err != nil {
		return model.Booking{}, fmt.Errorf("stored booking tour id %q: %w", tourId, err)
	}
	return booking, nil
}

func (s *PostgresStore) ListTours(ctx context.Context) ([]model.Tour, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+tourColumns+" FROM tours ORDER BY start_date, id")
	if err != nil {
		return nil, fmt.Errorf("query tours: %w", err)
	}
	defer rows.Close()

	tours := []model.Tour{}
	for rows.Next() {
		tour, err := scanTour(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tour: %w", err)
		}
		tours = append(tours, tour)
	}
	return tours, rows.Err()
}

func (s *PostgresStore) GetTour(ctx context.Context, id string) (model.Tour, error) {
	objId, err := tourObjectID(id)
	if err != nil {
		return model.Tour{}, err
	}
	return getTourRow(ctx, s.pool, objId, "")
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getTourRow(ctx context.Context, q queryRower, objId primitive.ObjectID, suffix string) (model.Tour, error) {
	row := q.QueryRow(ctx, "SELECT "+tourColumns+" FROM tours WHERE id = $1"+suffix, objId.Hex())
	tour, err := scanTour(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Tour{}, fmt.Errorf("%w: no tour with id %v", ErrTourNotFound, objId.Hex())
	}
	if err != nil {
		return model.Tour{}, fmt.Errorf("read tour %v: %w", objId.Hex(), err)
	}
	return tour, nil
}

func (s *PostgresStore) CreateTour(ctx context.Context, tour *model.Tour) error {
	if tour.Id.IsZero() {
		tour.Id = primitive.NewObjectID()
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO tours (id, title, description, place, start_date, duration_days,
		max_people, available_places, occupied_places, price_per_person, image)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::text::numeric, $11)`,
		tour.Id.Hex(), tour.Title, tour.Description, tour.Place, tour.StartDate, tour.DurationDays,
		tour.MaxPeople, tour.AvailablePlaces, tour.OccupiedPlaces, tour.PricePerPerson.String(), tour.Image)
	if err != nil {
		return fmt.Errorf("insert tour: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateTour(ctx context.Context, tour model.Tour) error {
	ct, err := s.pool.Exec(ctx, `UPDATE tours SET title = $2, description = $3, place = $4, start_date = $5,
		duration_days = $6, max_people = $7, available_places = $8, occupied_places = $9,
		price_per_person = $10::text::numeric, image = $11
		WHERE id = $1`,
		tour.Id.Hex(), tour.Title, tour.Description, tour.Place, tour.StartDate, tour.DurationDays,
		tour.MaxPeople, tour.AvailablePlaces, tour.OccupiedPlaces, tour.PricePerPerson.String(), tour.Image)
	if err != nil {
		return fmt.Errorf("update tour %v: %w", tour.Id.Hex(), err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: no tour with id %v", ErrTourNotFound, tour.Id.Hex())
	}
	return nil
}

// DeleteTour relies on ON DELETE CASCADE to remove the bookings.
func (s *PostgresStore) DeleteTour(ctx context.Context, id string) error {
	objId, err := tourObjectID(id)
	if err != nil {
		return err
	}
	ct, err := s.pool.Exec(ctx, "DELETE FROM tours WHERE id = $1", objId.Hex())
	if err != nil {
		return fmt.Errorf("delete tour %v: %w", id, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: no tour with id %v", ErrTourNotFound, id)
	}
	return nil
}

// BookSeats locks the tour row for the duration of the transaction, so the
// capacity check and the counter update cannot interleave with another
// booking of the same tour.
func (s *PostgresStore) BookSeats(ctx context.Context, booking *model.Booking) (model.Tour, error) {
	if err := prepareBooking(booking); err != nil {
		return model.Tour{}, err
	}
	n := booking.NumberOfPeople

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.Tour{}, fmt.Errorf("begin booking tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tour, err := getTourRow(ctx, tx, booking.TourId, " FOR UPDATE")
	if err != nil {
		return model.Tour{}, err
	}
	if n > tour.AvailablePlaces {
		return model.Tour{}, fmt.Errorf("%w: requested %d, available %d",
			ErrNotEnoughPlaces, n, tour.AvailablePlaces)
	}

	_, err = tx.Exec(ctx, `UPDATE tours
		SET available_places = available_places - $2, occupied_places = occupied_places + $2
		WHERE id = $1`, booking.TourId.Hex(), n)
	if err != nil {
		return model.Tour{}, fmt.Errorf("update tour counters: %w", err)
	}
	if err := insertBooking(ctx, tx, booking); err != nil {
		return model.Tour{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Tour{}, fmt.Errorf("commit booking tx: %w", err)
	}

	tour.AvailablePlaces -= n
	tour.OccupiedPlaces += n
	return tour, nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertBooking(ctx context.Context, e execer, booking *model.Booking) error {
	_, err := e.Exec(ctx, "INSERT INTO bookings ("+bookingColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7)",
		booking.Id.Hex(), booking.Name, booking.Email, booking.Phone, booking.NumberOfPeople,
		booking.TourId.Hex(), booking.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return fmt.Errorf("%w: no tour with id %v", ErrTourNotFound, booking.TourId.Hex())
	}
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateBooking(ctx context.Context, booking *model.Booking) error {
	if err := prepareBooking(booking); err != nil {
		return err
	}
	return insertBooking(ctx, s.pool, booking)
}

func (s *PostgresStore) ListBookings(ctx context.Context, tourID string) ([]model.Booking, error) {
	objId, err := tourObjectID(tourID)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE tour_id = $1 ORDER BY created_at", objId.Hex())
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	bookings := []model.Booking{}
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	var one int
	return s.pool.QueryRow(ctx, "select 1").Scan(&one)
}

func (s *PostgresStore) Close(_ context.Context) error {
	s.pool.Close()
	return nil
}

var _ Store = (*PostgresStore)(nil)
