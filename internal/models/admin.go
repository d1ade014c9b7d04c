package models

import "time"

// RoleAdmin is the only role issued today.
const RoleAdmin = "admin"

// Admin is an operator allowed to moderate listings.
type Admin struct {
	Base         `bson:",inline"`
	Email        string    `bson:"email" json:"email"`
	Name         string    `bson:"name" json:"name"`
	Role         string    `bson:"role" json:"role"`
	PasswordHash string    `bson:"password" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

// Principal returns the identity carried in this admin's tokens.
func (a *Admin) Principal() Principal {
	return Principal{ID: a.ID, Email: a.Email, Name: a.Name, Role: a.Role}
}
