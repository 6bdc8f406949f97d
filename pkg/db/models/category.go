package models

import (
	"time"

	"github.com/google/uuid"
)

// Category groups food items on the storefront.
type Category struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string     `gorm:"column:name;type:text;not null;uniqueIndex"`
	ImageURL  *string    `gorm:"column:image_url"`
	Items     []FoodItem `gorm:"foreignKey:CategoryID"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
