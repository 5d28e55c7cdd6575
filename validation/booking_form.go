package validation

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"tour-booking-webapp/model"
)

const (
	FieldName           = "name"
	FieldEmail          = "email"
	FieldPhone          = "phone"
	FieldNumberOfPeople = "number_of_people"

	PhonePrefix = "+7"

	MsgPhonePrefix     = "Phone number must start with +7."
	MsgPhoneFormat     = "Phone number must be in the format +7XXXXXXXXXX, where X is a digit."
	MsgPeoplePositive  = "Number of people must be greater than 0."
	MsgNotEnoughPlaces = "Not enough free places for this booking."
)

var phonePattern = regexp.MustCompile(`^\+7[0-9]{10}$`)

// RawValue is a submitted value kept as text. In JSON bodies it accepts
// both strings and numbers so that {"number_of_people": 3} and
// {"number_of_people": "3"} are treated the same.
type RawValue string

func (v *RawValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = RawValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*v = RawValue(n.String())
	return nil
}

// BookingForm holds the fields exactly as the visitor submitted them.
type BookingForm struct {
	Name           string   `json:"name" form:"name"`
	Email          string   `json:"email" form:"email"`
	Phone          string   `json:"phone" form:"phone"`
	NumberOfPeople RawValue `json:"number_of_people" form:"number_of_people"`
}

// Draft is a validated booking that has not been persisted yet.
type Draft struct {
	Name           string
	Email          string
	Phone          string
	NumberOfPeople int
}

func (d Draft) Booking() model.Booking {
	return model.Booking{
		Name:           d.Name,
		Email:          d.Email,
		Phone:          d.Phone,
		NumberOfPeople: d.NumberOfPeople,
	}
}

// ValidateBookingForm turns raw form values into a Draft. The draft is only
// meaningful when the returned FieldErrors is empty.
func ValidateBookingForm(log *slog.Logger, form BookingForm) (Draft, FieldErrors) {
	errs := FieldErrors{}
	draft := Draft{
		Name:  strings.TrimSpace(form.Name),
		Email: strings.TrimSpace(form.Email),
		Phone: strings.TrimSpace(form.Phone),
	}

	checkText(errs, FieldName, draft.Name, model.BookingNameMaxLen)
	checkText(errs, FieldEmail, draft.Email, model.BookingEmailMaxLen)
	if checkText(errs, FieldPhone, draft.Phone, model.BookingPhoneMaxLen) {
		if msg := phoneError(draft.Phone); msg != "" {
			log.Warn("rejected phone number", "phone", draft.Phone, "reason", msg)
			errs.Add(FieldPhone, msg)
		}
	}

	people := strings.TrimSpace(string(form.NumberOfPeople))
	switch {
	case people == "":
		errs.Add(FieldNumberOfPeople, msgRequired)
	default:
		n, err := strconv.Atoi(people)
		if err != nil {
			errs.Add(FieldNumberOfPeople, msgWholeNumber)
			break
		}
		if n <= 0 {
			log.Warn("rejected number of people", "number_of_people", n)
			errs.Add(FieldNumberOfPeople, MsgPeoplePositive)
			break
		}
		draft.NumberOfPeople = n
	}

	return draft, errs
}

// checkText applies the required and max length constraints and reports
// whether the value passed them.
func checkText(errs FieldErrors, field, value string, maxLen int) bool {
	if value == "" {
		errs.Add(field, msgRequired)
		return false
	}
	if n := utf8.RuneCountInString(value); n > maxLen {
		errs.Add(field, msgMaxLength(maxLen, n))
		return false
	}
	return true
}

func phoneError(phone string) string {
	if !strings.HasPrefix(phone, PhonePrefix) {
		return MsgPhonePrefix
	}
	if !phonePattern.MatchString(phone) {
		return MsgPhoneFormat
	}
	return ""
}
