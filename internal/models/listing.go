package models

import (
	"time"

	"rentaudit/internal/utils"
)

// ListingStatus is the moderation state of a listing.
type ListingStatus string

const (
	ListingStatusPending  ListingStatus = "pending"
	ListingStatusApproved ListingStatus = "approved"
	ListingStatusRejected ListingStatus = "rejected"
)

// Valid reports whether s is one of the moderation states.
func (s ListingStatus) Valid() bool {
	switch s {
	case ListingStatusPending, ListingStatusApproved, ListingStatusRejected:
		return true
	}
	return false
}

// Fuel types accepted on a listing.
const (
	FuelTypeGasoline = "gasoline"
	FuelTypeDiesel   = "diesel"
	FuelTypeElectric = "electric"
	FuelTypeHybrid   = "hybrid"
)

// Transmissions accepted on a listing.
const (
	TransmissionAutomatic = "automatic"
	TransmissionManual    = "manual"
)

var (
	FuelTypes     = []string{FuelTypeGasoline, FuelTypeDiesel, FuelTypeElectric, FuelTypeHybrid}
	Transmissions = []string{TransmissionAutomatic, TransmissionManual}
)

// MinCarYear is the oldest model year a listing may carry.
const MinCarYear = 1900

// Listing is a car-rental offer submitted by a public user.
// UserID/UserName/UserEmail are a snapshot taken at submission time.
type Listing struct {
	Base         `bson:",inline"`
	Title        string        `bson:"title" json:"title"`
	Description  string        `bson:"description" json:"description"`
	Price        float64       `bson:"price" json:"price"` // per day
	Location     string        `bson:"location" json:"location"`
	CarModel     string        `bson:"carModel" json:"carModel"`
	CarYear      int           `bson:"carYear" json:"carYear"`
	Mileage      int           `bson:"mileage" json:"mileage"`
	FuelType     string        `bson:"fuelType" json:"fuelType"`
	Transmission string        `bson:"transmission" json:"transmission"`
	Features     []string      `bson:"features" json:"features"`
	Images       []string      `bson:"images" json:"images"`
	Status       ListingStatus `bson:"status" json:"status"`
	UserID       string        `bson:"userId" json:"userId"`
	UserName     string        `bson:"userName" json:"userName"`
	UserEmail    string        `bson:"userEmail" json:"userEmail"`
	CreatedAt    time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// Editable listing fields, keyed by their wire/storage name.
const (
	FieldTitle        = "title"
	FieldDescription  = "description"
	FieldPrice        = "price"
	FieldLocation     = "location"
	FieldCarModel     = "carModel"
	FieldCarYear      = "carYear"
	FieldMileage      = "mileage"
	FieldFuelType     = "fuelType"
	FieldTransmission = "transmission"
	FieldFeatures     = "features"
	FieldImages       = "images"
)

// EditableFields lists the fields an administrator may change through an edit.
var EditableFields = []string{
	FieldTitle, FieldDescription, FieldPrice, FieldLocation, FieldCarModel,
	FieldCarYear, FieldMileage, FieldFuelType, FieldTransmission, FieldFeatures, FieldImages,
}

// FieldValue returns the current value of an editable field and whether the
// field is editable at all.
func (l *Listing) FieldValue(field string) (interface{}, bool) {
	switch field {
	case FieldTitle:
		return l.Title, true
	case FieldDescription:
		return l.Description, true
	case FieldPrice:
		return l.Price, true
	case FieldLocation:
		return l.Location, true
	case FieldCarModel:
		return l.CarModel, true
	case FieldCarYear:
		return l.CarYear, true
	case FieldMileage:
		return l.Mileage, true
	case FieldFuelType:
		return l.FuelType, true
	case FieldTransmission:
		return l.Transmission, true
	case FieldFeatures:
		return l.Features, true
	case FieldImages:
		return l.Images, true
	}
	return nil, false
}

// SetField assigns an editable field from a value of the type FieldValue
// returns for it. It reports false for unknown fields or mismatched types.
func (l *Listing) SetField(field string, v interface{}) bool {
	var ok bool
	switch field {
	case FieldTitle:
		l.Title, ok = v.(string)
	case FieldDescription:
		l.Description, ok = v.(string)
	case FieldPrice:
		l.Price, ok = v.(float64)
	case FieldLocation:
		l.Location, ok = v.(string)
	case FieldCarModel:
		l.CarModel, ok = v.(string)
	case FieldCarYear:
		l.CarYear, ok = v.(int)
	case FieldMileage:
		l.Mileage, ok = v.(int)
	case FieldFuelType:
		l.FuelType, ok = v.(string)
	case FieldTransmission:
		l.Transmission, ok = v.(string)
	case FieldFeatures:
		l.Features, ok = v.([]string)
	case FieldImages:
		l.Images, ok = v.([]string)
	}
	return ok
}

// SubmitResult is returned to the public submitter.
type SubmitResult struct {
	ID     utils.SixID   `json:"id"`
	Status ListingStatus `json:"status"`
}
