package entities

import (
	"github.com/google/uuid"
)

type Tag struct {
	ID    uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name  string    `gorm:"size:50;uniqueIndex" json:"name"`
	Color *string   `gorm:"size:8;uniqueIndex" json:"color"`
	Slug  string    `gorm:"size:50;uniqueIndex" json:"slug"`

	Timestamp
}
