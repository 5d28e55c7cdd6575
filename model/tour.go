package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TourTitleMaxLen       = 17
	TourDescriptionMaxLen = 1100
	TourPlaceMaxLen       = 27
	TourImageMaxSide      = 1000
)

type Tour struct {
	Id              primitive.ObjectID `json:"_id" bson:"_id"`
	Title           string             `json:"title" bson:"title"`
	Description     string             `json:"description" bson:"description"`
	Place           string             `json:"place" bson:"place"`
	StartDate       time.Time          `json:"start_date" bson:"start_date"`
	DurationDays    int                `json:"duration_days" bson:"duration_days"`
	MaxPeople       int                `json:"max_people" bson:"max_people"`
	AvailablePlaces int                `json:"available_places" bson:"available_places"`
	OccupiedPlaces  int                `json:"occupied_places" bson:"occupied_places"`
	PricePerPerson  Money              `json:"price_per_person" bson:"price_per_person"`
	Image           string             `json:"image" bson:"image"`
}

// StartDateString renders the start date the way it is shown to customers.
func (t Tour) StartDateString() string {
	return t.StartDate.Format(DateLayout)
}

func (t Tour) String() string {
	return t.Title
}
