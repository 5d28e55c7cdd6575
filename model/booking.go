package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	BookingNameMaxLen  = 30
	BookingEmailMaxLen = 200
	BookingPhoneMaxLen = 30
)

// Booking is one person's (or group's) reservation against a tour.
// It is written once by the booking workflow and never changed afterwards.
type Booking struct {
	Id             primitive.ObjectID `json:"_id" bson:"_id"`
	Name           string             `json:"name" bson:"name"`
	Email          string             `json:"email" bson:"email"`
	Phone          string             `json:"phone" bson:"phone"`
	NumberOfPeople int                `json:"number_of_people" bson:"number_of_people"`
	TourId         primitive.ObjectID `json:"tour_id" bson:"tour_id"`
	CreatedAt      time.Time          `json:"created_at" bson:"created_at"`
}

func (b Booking) String() string {
	return b.Name
}
