// Command seedtours is the administrative entry point for tour data: it
// imports and edits tours from JSON files, lists tours and their bookings,
// and deletes a tour together with its bookings.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"tour-booking-webapp/config"
	"tour-booking-webapp/database"
	"tour-booking-webapp/logging"
	"tour-booking-webapp/model"
	"tour-booking-webapp/validation"
)

type tourInput struct {
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Place          string      `json:"place"`
	StartDate      string      `json:"start_date"`
	DurationDays   int         `json:"duration_days"`
	MaxPeople      int         `json:"max_people"`
	PricePerPerson model.Money `json:"price_per_person"`
	Image          string      `json:"image"`
}

type options struct {
	file     string
	images   string
	updateId string
	deleteId string
	bookings string
	list     bool
}

func main() {
	var opts options
	flag.StringVar(&opts.file, "file", "", "JSON file with an array of tours to import, or a single tour with -update")
	flag.StringVar(&opts.images, "images", ".", "directory that image paths in the JSON file are relative to")
	flag.StringVar(&opts.updateId, "update", "", "id of the tour to overwrite with the tour in -file")
	flag.StringVar(&opts.deleteId, "delete", "", "id of the tour to delete together with its bookings")
	flag.StringVar(&opts.bookings, "bookings", "", "id of the tour whose bookings to print")
	flag.BoolVar(&opts.list, "list", false, "print stored tours")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := database.Open(ctx, cfg, log)
	if err != nil {
		log.Error("cannot open storage", "error", err)
		os.Exit(1)
	}

	ok := run(ctx, store, log, os.Stdout, opts)
	store.Close(ctx)
	if !ok {
		os.Exit(1)
	}
}

func run(ctx context.Context, store database.Store, log *slog.Logger, out io.Writer, opts options) bool {
	switch {
	case opts.deleteId != "":
		if err := store.DeleteTour(ctx, opts.deleteId); err != nil {
			log.Error("cannot delete tour", "tour_id", opts.deleteId, "error", err)
			return false
		}
		log.Info("tour deleted", "tour_id", opts.deleteId)
		return true
	case opts.updateId != "":
		if opts.file == "" {
			log.Error("-update needs -file with the new tour data")
			return false
		}
		return updateTour(ctx, store, log, opts.updateId, opts.file, opts.images) == nil
	case opts.file != "":
		return importTours(ctx, store, log, opts.file, opts.images) == 0
	case opts.bookings != "":
		return listBookings(ctx, store, log, out, opts.bookings) == nil
	case opts.list:
		return listTours(ctx, store, log, out) == nil
	default:
		flag.Usage()
		return false
	}
}

// importTours stores every valid tour from path and returns the number of
// rejected ones.
func importTours(ctx context.Context, store database.Store, log *slog.Logger, path, imagesDir string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("cannot read import file", "path", path, "error", err)
		return 1
	}
	var inputs []tourInput
	if err := json.Unmarshal(data, &inputs); err != nil {
		log.Error("cannot decode import file", "path", path, "error", err)
		return 1
	}

	rejected := 0
	for i, in := range inputs {
		tour, err := buildTour(in, 0, imagesDir)
		if err != nil {
			log.Error("tour rejected", "index", i, "title", in.Title, "error", err)
			rejected++
			continue
		}
		if err := store.CreateTour(ctx, &tour); err != nil {
			log.Error("cannot store tour", "index", i, "title", in.Title, "error", err)
			rejected++
			continue
		}
		log.Info("new tour added", "tour_id", tour.Id.Hex(), "title", tour.Title, "place", tour.Place)
	}
	log.Info("import finished", "added", len(inputs)-rejected, "rejected", rejected)
	return rejected
}

// buildTour turns an input record into a validated tour. occupied is the
// number of places already taken by bookings.
func buildTour(in tourInput, occupied int, imagesDir string) (model.Tour, error) {
	tour := model.Tour{
		Title:           in.Title,
		Description:     in.Description,
		Place:           in.Place,
		DurationDays:    in.DurationDays,
		MaxPeople:       in.MaxPeople,
		AvailablePlaces: in.MaxPeople - occupied,
		OccupiedPlaces:  occupied,
		PricePerPerson:  in.PricePerPerson,
		Image:           in.Image,
	}

	errs := validation.FieldErrors{}
	startDate, err := model.ParseDate(in.StartDate)
	if err != nil {
		errs.Add(validation.FieldStartDate, "Enter a valid date in the format YYYY-MM-DD.")
	}
	tour.StartDate = startDate

	fieldErrs := validation.ValidateTour(tour)
	if err != nil {
		delete(fieldErrs, validation.FieldStartDate)
	}
	errs.Merge(fieldErrs)
	if len(errs) > 0 {
		return model.Tour{}, errs
	}

	if in.Image != "" {
		if err := checkImage(filepath.Join(imagesDir, in.Image)); err != nil {
			return model.Tour{}, fmt.Errorf("image %s: %w", in.Image, err)
		}
	}
	return tour, nil
}

func checkImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return validation.ValidateTourImage(f)
}

// updateTour overwrites the tour with the record in path. Bookings already
// made keep their places.
func updateTour(ctx context.Context, store database.Store, log *slog.Logger, id, path, imagesDir string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("cannot read tour file", "path", path, "error", err)
		return err
	}
	var in tourInput
	if err := json.Unmarshal(data, &in); err != nil {
		log.Error("cannot decode tour file", "path", path, "error", err)
		return err
	}

	current, err := store.GetTour(ctx, id)
	if err != nil {
		log.Error("cannot load tour", "tour_id", id, "error", err)
		return err
	}

	tour, err := buildTour(in, current.OccupiedPlaces, imagesDir)
	if err != nil {
		log.Error("tour update rejected", "tour_id", id, "error", err)
		return err
	}
	tour.Id = current.Id
	if in.Image == "" {
		tour.Image = current.Image
	}

	if err := store.UpdateTour(ctx, tour); err != nil {
		log.Error("cannot update tour", "tour_id", id, "error", err)
		return err
	}
	log.Info("tour updated", "tour_id", id, "title", tour.Title, "place", tour.Place)
	return nil
}

func listBookings(ctx context.Context, store database.Store, log *slog.Logger, out io.Writer, tourId string) error {
	bookings, err := store.ListBookings(ctx, tourId)
	if err != nil {
		log.Error("cannot list bookings", "tour_id", tourId, "error", err)
		return err
	}
	for _, booking := range bookings {
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%d\t%s\n",
			booking.Id.Hex(), booking.Name, booking.Email, booking.Phone,
			booking.NumberOfPeople, booking.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

func listTours(ctx context.Context, store database.Store, log *slog.Logger, out io.Writer) error {
	tours, err := store.ListTours(ctx)
	if err != nil {
		log.Error("cannot list tours", "error", err)
		return err
	}
	for _, tour := range tours {
		fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
			tour.Id.Hex(), tour.Title, tour.Place, tour.StartDateString(),
			tour.OccupiedPlaces, tour.MaxPeople, tour.PricePerPerson)
	}
	return nil
}
