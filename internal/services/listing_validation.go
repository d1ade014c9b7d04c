package services

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"rentaudit/internal/models"
)

// ListingInput is a submission body as decoded from JSON. Keys are the
// listing's wire names.
type ListingInput map[string]interface{}

var requiredSubmissionFields = []string{
	models.FieldTitle, models.FieldDescription, models.FieldPrice, models.FieldLocation,
	models.FieldCarModel, models.FieldCarYear, models.FieldMileage, models.FieldFuelType,
	models.FieldTransmission, "userId", "userName", "userEmail",
}

// present reports whether a required value was supplied. Missing keys, null,
// blank strings and false are absent; any number, including 0, is present.
func present(v interface{}) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(val) != ""
	case bool:
		return val
	}
	return true
}

// toNumber accepts JSON numbers and numeric strings.
func toNumber(v interface{}) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toInteger(v interface{}) (int, bool) {
	f, ok := toNumber(v)
	if !ok || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}

func toStringList(v interface{}) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return slices.Clone(list), true
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	}
	return nil, false
}

// validateField checks one editable field value and returns it converted to
// the type the Listing stores it as.
func validateField(field string, v interface{}, now time.Time) (interface{}, error) {
	switch field {
	case models.FieldTitle, models.FieldDescription, models.FieldLocation, models.FieldCarModel:
		s, ok := v.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, newValidationError(field, fmt.Sprintf("%s is required", field))
		}
		return s, nil
	case models.FieldPrice:
		price, ok := toNumber(v)
		if !ok || price <= 0 {
			return nil, newValidationError(field, "Price must be a positive number")
		}
		return price, nil
	case models.FieldCarYear:
		year, ok := toInteger(v)
		if !ok || year < models.MinCarYear || year > now.Year()+1 {
			return nil, newValidationError(field, "Invalid car year")
		}
		return year, nil
	case models.FieldMileage:
		mileage, ok := toInteger(v)
		if !ok || mileage < 0 {
			return nil, newValidationError(field, "Mileage must be a positive number")
		}
		return mileage, nil
	case models.FieldFuelType:
		s, ok := v.(string)
		if !ok || !slices.Contains(models.FuelTypes, s) {
			return nil, newValidationError(field, "Invalid fuel type")
		}
		return s, nil
	case models.FieldTransmission:
		s, ok := v.(string)
		if !ok || !slices.Contains(models.Transmissions, s) {
			return nil, newValidationError(field, "Invalid transmission type")
		}
		return s, nil
	case models.FieldFeatures, models.FieldImages:
		list, ok := toStringList(v)
		if !ok {
			return nil, newValidationError(field, fmt.Sprintf("%s must be a list of strings", field))
		}
		return list, nil
	}
	return nil, newValidationError(field, fmt.Sprintf("%s cannot be edited", field))
}

// submissionChecks run in this order after the presence check; the first
// failure wins.
var submissionChecks = []string{
	models.FieldPrice, models.FieldCarYear, models.FieldMileage, models.FieldFuelType, models.FieldTransmission,
}

// ValidateSubmission checks a public submission and builds the pending
// listing it describes. Any status in the input is ignored.
func ValidateSubmission(input ListingInput, now time.Time) (*models.Listing, error) {
	for _, field := range requiredSubmissionFields {
		if !present(input[field]) {
			return nil, newValidationError(field, fmt.Sprintf("%s is required", field))
		}
	}

	values := make(map[string]interface{}, len(submissionChecks))
	for _, field := range submissionChecks {
		v, err := validateField(field, input[field], now)
		if err != nil {
			return nil, err
		}
		values[field] = v
	}

	text := make(map[string]string, 7)
	for _, field := range []string{
		models.FieldTitle, models.FieldDescription, models.FieldLocation, models.FieldCarModel,
		"userId", "userName", "userEmail",
	} {
		s, ok := input[field].(string)
		if !ok {
			return nil, newValidationError(field, fmt.Sprintf("%s must be a string", field))
		}
		text[field] = s
	}

	features, ok := toStringList(input[models.FieldFeatures])
	if !ok {
		features = []string{}
	}
	images, ok := toStringList(input[models.FieldImages])
	if !ok {
		images = []string{}
	}

	return &models.Listing{
		Title:        text[models.FieldTitle],
		Description:  text[models.FieldDescription],
		Price:        values[models.FieldPrice].(float64),
		Location:     text[models.FieldLocation],
		CarModel:     text[models.FieldCarModel],
		CarYear:      values[models.FieldCarYear].(int),
		Mileage:      values[models.FieldMileage].(int),
		FuelType:     values[models.FieldFuelType].(string),
		Transmission: values[models.FieldTransmission].(string),
		Features:     features,
		Images:       images,
		Status:       models.ListingStatusPending,
		UserID:       text["userId"],
		UserName:     text["userName"],
		UserEmail:    text["userEmail"],
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateEdit checks an edit body against the editable-field whitelist and
// the submission rules, returning the converted values.
func ValidateEdit(updates map[string]interface{}, now time.Time) (map[string]interface{}, error) {
	values := make(map[string]interface{}, len(updates))
	// Sorted so the reported error does not depend on map order.
	keys := make([]string, 0, len(updates))
	for k := range updates {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, field := range keys {
		if !slices.Contains(models.EditableFields, field) {
			return nil, newValidationError(field, fmt.Sprintf("%s cannot be edited", field))
		}
		v, err := validateField(field, updates[field], now)
		if err != nil {
			return nil, err
		}
		values[field] = v
	}
	return values, nil
}
