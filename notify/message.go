package notify

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tour-booking-webapp/model"
)

const BookingSubject = "Tours for the soul. Welcome!"

type Message struct {
	Id      uuid.UUID `json:"id"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	From    string    `json:"from"`
	To      []string  `json:"to"`
}

func NewMessage(subject, body, from string, to ...string) Message {
	return Message{
		Id:      uuid.New(),
		Subject: subject,
		Body:    body,
		From:    from,
		To:      to,
	}
}

// BookingConfirmation is the email a customer receives once places on a
// tour are reserved for them.
func BookingConfirmation(from, to string, tour model.Tour, people int) Message {
	var b strings.Builder
	b.WriteString("\nThank you for booking a tour with us!\n")
	fmt.Fprintf(&b, "Your tour: %s\n", tour.Title)
	fmt.Fprintf(&b, "Start date: %s\n", tour.StartDateString())
	fmt.Fprintf(&b, "Duration: %d days\n", tour.DurationDays)
	fmt.Fprintf(&b, "Number of people: %d\n", people)
	fmt.Fprintf(&b, "Price per person: %s RUB\n", tour.PricePerPerson)
	b.WriteString("Our manager will contact you within 24 hours to go over the details of the upcoming tour. Please expect a call!")

	return NewMessage(BookingSubject, b.String(), from, to)
}
