package entities

import (
	"github.com/google/uuid"
)

// Ingredient is a shared catalog record. The (name, measurement_unit) pair is
// unique so "flour (g)" and "flour (kg)" stay separate entries.
type Ingredient struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name            string    `gorm:"size:200;uniqueIndex:idx_ingredient_name_unit" json:"name"`
	MeasurementUnit string    `gorm:"size:10;uniqueIndex:idx_ingredient_name_unit" json:"measurement_unit"`

	Timestamp
}
