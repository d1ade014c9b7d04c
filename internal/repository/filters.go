package repository

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"rentaudit/internal/models"
	"rentaudit/internal/utils"
)

// searchFields are matched by the free-text search, any one suffices.
var searchFields = []string{"title", "description", "carModel", "location"}

// ListingFilter narrows a listing query. Zero values mean "no constraint".
type ListingFilter struct {
	Status       models.ListingStatus
	Search       string
	Location     string
	MinPrice     *float64
	MaxPrice     *float64
	FuelType     string
	Transmission string
	Page         int
	Limit        int
}

// containsInsensitive matches s literally anywhere in the field, ignoring case.
func containsInsensitive(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

// BSON builds the MongoDB filter document.
func (f ListingFilter) BSON() bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Search != "" {
		or := make([]bson.M, 0, len(searchFields))
		for _, field := range searchFields {
			or = append(or, bson.M{field: containsInsensitive(f.Search)})
		}
		filter["$or"] = or
	}
	if f.Location != "" {
		filter["location"] = containsInsensitive(f.Location)
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.M{}
		if f.MinPrice != nil {
			price["$gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			price["$lte"] = *f.MaxPrice
		}
		filter["price"] = price
	}
	if f.FuelType != "" {
		filter["fuelType"] = f.FuelType
	}
	if f.Transmission != "" {
		filter["transmission"] = f.Transmission
	}
	return filter
}

// AuditLogFilter narrows an audit log query.
type AuditLogFilter struct {
	Action  models.AuditAction
	AdminID *utils.SixID
	Page    int
	Limit   int
}

// BSON builds the MongoDB filter document.
func (f AuditLogFilter) BSON() bson.M {
	filter := bson.M{}
	if f.Action != "" {
		filter["action"] = f.Action
	}
	if f.AdminID != nil {
		filter["adminId"] = *f.AdminID
	}
	return filter
}
