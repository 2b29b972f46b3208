package models

import (
	"time"

	"gorm.io/datatypes"
)

// Shop is read-only catalog data.
type Shop struct {
	ID           string                      `gorm:"primaryKey" json:"id" yaml:"id"`
	Name         string                      `json:"name" yaml:"name"`
	Description  string                      `json:"description" yaml:"description"`
	Address      string                      `json:"address" yaml:"address"`
	City         string                      `json:"city" yaml:"city"`
	Neighborhood string                      `json:"neighborhood" yaml:"neighborhood"`
	Latitude     float64                     `json:"latitude" yaml:"latitude"`
	Longitude    float64                     `json:"longitude" yaml:"longitude"`
	Rating       int                         `json:"rating" yaml:"rating"`
	PriceLevel   int                         `json:"price_level" yaml:"price_level"`
	Tags         datatypes.JSONSlice[string] `json:"tags" yaml:"tags"`
	Amenities    datatypes.JSONSlice[string] `json:"amenities" yaml:"amenities"`
	ImageURL     string                      `json:"image_url" yaml:"image_url"`
	IsActive     bool                        `gorm:"default:true" json:"is_active" yaml:"-"`
	CreatedAt    time.Time                   `json:"-" yaml:"-"`
	UpdatedAt    time.Time                   `json:"-" yaml:"-"`
}
