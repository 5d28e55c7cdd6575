package main

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tour-booking-webapp/database"
	"tour-booking-webapp/logging"
	"tour-booking-webapp/model"
	"tour-booking-webapp/validation"
)

func writePNG(t *testing.T, dir, name string, w, h int) {
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h))))
}

func validInput() tourInput {
	return tourInput{
		Title:          "Altai trip",
		Description:    "mountains",
		Place:          "Altai",
		StartDate:      "2026-07-01",
		DurationDays:   7,
		MaxPeople:      10,
		PricePerPerson: model.NewMoney(15000, 0),
	}
}

func TestBuildTour(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "square.png", 100, 100)
	writePNG(t, dir, "wide.png", 200, 100)

	in := validInput()
	in.Image = "square.png"
	tour, err := buildTour(in, 0, dir)
	require.NoError(t, err)
	assert.Equal(t, 10, tour.AvailablePlaces)
	assert.Equal(t, 0, tour.OccupiedPlaces)
	assert.Equal(t, "2026-07-01", tour.StartDateString())

	in.Image = "wide.png"
	_, err = buildTour(in, 0, dir)
	assert.ErrorIs(t, err, validation.ErrImageNotSquare)

	in.Image = "missing.png"
	_, err = buildTour(in, 0, dir)
	assert.Error(t, err)
}

func TestBuildTourRejectsInvalidFields(t *testing.T) {
	in := validInput()
	in.Title = "a title that is way too long"
	in.StartDate = "01.07.2026"
	in.MaxPeople = 0

	_, err := buildTour(in, 0, t.TempDir())
	require.Error(t, err)

	var errs validation.FieldErrors
	require.ErrorAs(t, err, &errs)
	assert.True(t, errs.Has(validation.FieldTitle))
	assert.True(t, errs.Has(validation.FieldStartDate))
	assert.True(t, errs.Has(validation.FieldMaxPeople))
	assert.Len(t, errs[validation.FieldStartDate], 1)
}

func TestImportTours(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "tours.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"title": "Altai trip", "place": "Altai", "start_date": "2026-07-01",
		 "duration_days": 7, "max_people": 10, "price_per_person": "15000.00"},
		{"title": "Baikal", "place": "Baikal", "start_date": "2026-08-01",
		 "duration_days": 0, "max_people": 5, "price_per_person": 9000}
	]`), 0644))

	store, err := database.NewLocalStore("", logging.Discard())
	require.NoError(t, err)

	rejected := importTours(ctx, store, logging.Discard(), path, dir)
	assert.Equal(t, 1, rejected)

	tours, err := store.ListTours(ctx)
	require.NoError(t, err)
	require.Len(t, tours, 1)
	assert.Equal(t, "Altai trip", tours[0].Title)
	assert.Equal(t, model.NewMoney(15000, 0), tours[0].PricePerPerson)
}

func writeJSON(t *testing.T, dir, name, body string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestUpdateTourKeepsBookedPlaces(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := database.NewLocalStore("", logging.Discard())
	require.NoError(t, err)
	tour, err := buildTour(validInput(), 0, dir)
	require.NoError(t, err)
	tour.Image = "altai.png"
	require.NoError(t, store.CreateTour(ctx, &tour))
	_, err = store.BookSeats(ctx, &model.Booking{
		Name: "Ivan", Email: "ivan@example.com", Phone: "+79161234567", NumberOfPeople: 3, TourId: tour.Id,
	})
	require.NoError(t, err)

	path := writeJSON(t, dir, "tour.json", `{"title": "Altai trek", "place": "Altai",
		"start_date": "2026-07-15", "duration_days": 9, "max_people": 12, "price_per_person": "17500.50"}`)

	var logs bytes.Buffer
	log := logging.New(&logs, "info", "text")
	ok := run(ctx, store, log, &bytes.Buffer{}, options{updateId: tour.Id.Hex(), file: path, images: dir})
	require.True(t, ok)

	got, err := store.GetTour(ctx, tour.Id.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Altai trek", got.Title)
	assert.Equal(t, "2026-07-15", got.StartDateString())
	assert.Equal(t, 12, got.MaxPeople)
	assert.Equal(t, 3, got.OccupiedPlaces)
	assert.Equal(t, 9, got.AvailablePlaces)
	assert.Equal(t, model.NewMoney(17500, 50), got.PricePerPerson)
	assert.Equal(t, "altai.png", got.Image)

	assert.Contains(t, logs.String(), "tour updated")
	assert.Contains(t, logs.String(), "title=\"Altai trek\"")
	assert.Contains(t, logs.String(), "place=Altai")
}

func TestUpdateTourRejectsInvalidData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	store, err := database.NewLocalStore("", logging.Discard())
	require.NoError(t, err)
	tour, err := buildTour(validInput(), 0, dir)
	require.NoError(t, err)
	require.NoError(t, store.CreateTour(ctx, &tour))
	_, err = store.BookSeats(ctx, &model.Booking{
		Name: "Ivan", Email: "ivan@example.com", Phone: "+79161234567", NumberOfPeople: 5, TourId: tour.Id,
	})
	require.NoError(t, err)

	// fewer places than are already booked
	path := writeJSON(t, dir, "tour.json", `{"title": "Altai trip", "place": "Altai",
		"start_date": "2026-07-01", "duration_days": 7, "max_people": 4, "price_per_person": "15000"}`)
	assert.False(t, run(ctx, store, logging.Discard(), &bytes.Buffer{}, options{updateId: tour.Id.Hex(), file: path, images: dir}))

	assert.False(t, run(ctx, store, logging.Discard(), &bytes.Buffer{}, options{updateId: tour.Id.Hex(), images: dir}))

	missing := writeJSON(t, dir, "valid.json", `{"title": "Altai trip", "place": "Altai",
		"start_date": "2026-07-01", "duration_days": 7, "max_people": 10, "price_per_person": "15000"}`)
	assert.False(t, run(ctx, store, logging.Discard(), &bytes.Buffer{}, options{updateId: "no-such-tour", file: missing, images: dir}))

	got, err := store.GetTour(ctx, tour.Id.Hex())
	require.NoError(t, err)
	assert.Equal(t, 10, got.MaxPeople)
	assert.Equal(t, 5, got.AvailablePlaces)
}

func TestListBookings(t *testing.T) {
	ctx := context.Background()

	store, err := database.NewLocalStore("", logging.Discard())
	require.NoError(t, err)
	tour, err := buildTour(validInput(), 0, t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.CreateTour(ctx, &tour))
	_, err = store.BookSeats(ctx, &model.Booking{
		Name: "Ivan Petrov", Email: "ivan@example.com", Phone: "+79161234567", NumberOfPeople: 2, TourId: tour.Id,
	})
	require.NoError(t, err)

	var out bytes.Buffer
	require.True(t, run(ctx, store, logging.Discard(), &out, options{bookings: tour.Id.Hex()}))

	assert.Contains(t, out.String(), "Ivan Petrov\tivan@example.com\t+79161234567\t2\t")

	assert.False(t, run(ctx, store, logging.Discard(), &out, options{bookings: "bad-id"}))
}
