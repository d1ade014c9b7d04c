package models

import (
	"time"

	"rentaudit/internal/utils"
)

// AuditAction is the kind of moderation action recorded.
type AuditAction string

const (
	AuditActionApprove AuditAction = "approve"
	AuditActionReject  AuditAction = "reject"
	AuditActionEdit    AuditAction = "edit"
)

// Valid reports whether a is a recorded action.
func (a AuditAction) Valid() bool {
	switch a {
	case AuditActionApprove, AuditActionReject, AuditActionEdit:
		return true
	}
	return false
}

// FieldChange is one entry of an edit's change set.
type FieldChange struct {
	From interface{} `bson:"from" json:"from"`
	To   interface{} `bson:"to" json:"to"`
}

// AuditLog is an append-only record of one moderation action. Listing title
// and admin identity are copied at write time and never joined at read time.
type AuditLog struct {
	Base           `bson:",inline"`
	Action         AuditAction            `bson:"action" json:"action"`
	ListingID      utils.SixID            `bson:"listingId" json:"listingId"`
	ListingTitle   string                 `bson:"listingTitle" json:"listingTitle"`
	AdminID        utils.SixID            `bson:"adminId" json:"adminId"`
	AdminName      string                 `bson:"adminName" json:"adminName"`
	AdminEmail     string                 `bson:"adminEmail" json:"adminEmail"`
	PreviousStatus ListingStatus          `bson:"previousStatus,omitempty" json:"previousStatus,omitempty"`
	NewStatus      ListingStatus          `bson:"newStatus,omitempty" json:"newStatus,omitempty"`
	Changes        map[string]FieldChange `bson:"changes,omitempty" json:"changes,omitempty"`
	Timestamp      time.Time              `bson:"timestamp" json:"timestamp"`
}
