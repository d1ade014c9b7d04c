package models

import (
	"rentaudit/internal/utils"
)

// Base carries the document id shared by every stored model.
type Base struct {
	ID utils.SixID `bson:"_id" json:"id"`
}

// GenID assigns a fresh random id. Inserts call it again after a duplicate key.
func (m *Base) GenID() {
	m.ID = utils.NewSixID()
}
