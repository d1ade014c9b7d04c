package models

import "rentaudit/internal/utils"

// Principal is the authenticated caller resolved by the auth gate.
type Principal struct {
	ID    utils.SixID `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Role  string      `json:"role"`
}
