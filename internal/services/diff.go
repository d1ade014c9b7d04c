package services

import (
	"slices"

	"rentaudit/internal/models"
)

// DiffListing compares incoming editable values with the listing and returns
// only the fields that differ. List fields compare element by element, so a
// reordered list counts as a change.
func DiffListing(existing *models.Listing, incoming map[string]interface{}) map[string]models.FieldChange {
	changes := make(map[string]models.FieldChange)
	for field, to := range incoming {
		from, ok := existing.FieldValue(field)
		if !ok {
			continue
		}
		if !sameValue(from, to) {
			changes[field] = models.FieldChange{From: from, To: to}
		}
	}
	return changes
}

func sameValue(a, b interface{}) bool {
	as, aIsList := a.([]string)
	bs, bIsList := b.([]string)
	if aIsList || bIsList {
		return aIsList && bIsList && slices.Equal(as, bs)
	}
	return a == b
}
