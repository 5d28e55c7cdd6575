package validation

import (
	"fmt"
	"unicode/utf8"

	"tour-booking-webapp/model"
)

const (
	FieldTitle           = "title"
	FieldDescription     = "description"
	FieldPlace           = "place"
	FieldStartDate       = "start_date"
	FieldDurationDays    = "duration_days"
	FieldMaxPeople       = "max_people"
	FieldAvailablePlaces = "available_places"
	FieldOccupiedPlaces  = "occupied_places"
	FieldPricePerPerson  = "price_per_person"
)

// ValidateTour checks a tour entered by an administrator before it is stored.
func ValidateTour(t model.Tour) FieldErrors {
	errs := FieldErrors{}

	checkText(errs, FieldTitle, t.Title, model.TourTitleMaxLen)
	checkText(errs, FieldPlace, t.Place, model.TourPlaceMaxLen)
	if n := utf8.RuneCountInString(t.Description); n > model.TourDescriptionMaxLen {
		errs.Add(FieldDescription, msgMaxLength(model.TourDescriptionMaxLen, n))
	}

	if t.StartDate.IsZero() {
		errs.Add(FieldStartDate, msgRequired)
	}
	if t.DurationDays <= 0 {
		errs.Add(FieldDurationDays, "Duration must be a positive number of days.")
	}
	if t.MaxPeople <= 0 {
		errs.Add(FieldMaxPeople, "Maximum number of people must be greater than 0.")
	}
	if t.AvailablePlaces < 0 {
		errs.Add(FieldAvailablePlaces, "Available places cannot be negative.")
	}
	if t.OccupiedPlaces < 0 {
		errs.Add(FieldOccupiedPlaces, "Occupied places cannot be negative.")
	}
	if t.MaxPeople > 0 && t.AvailablePlaces >= 0 && t.OccupiedPlaces >= 0 &&
		t.AvailablePlaces+t.OccupiedPlaces != t.MaxPeople {
		errs.Add(FieldAvailablePlaces, fmt.Sprintf(
			"Available (%d) and occupied (%d) places must add up to the maximum number of people (%d).",
			t.AvailablePlaces, t.OccupiedPlaces, t.MaxPeople))
	}
	if t.PricePerPerson < 0 {
		errs.Add(FieldPricePerPerson, "Price cannot be negative.")
	}

	return errs
}
