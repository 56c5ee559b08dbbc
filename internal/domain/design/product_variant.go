package design

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductVariant is the garment/size/print-option combination a session
// activates before any drawable may be placed. Catalog management itself
// lives with the product service; this is the slice the editor needs.
type ProductVariant struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`

	ProductName string `gorm:"not null;column:product_name" json:"product_name"`
	VariantName string `gorm:"not null;column:variant_name" json:"variant_name"`
	Size        string `gorm:"not null;column:size" json:"size"`
	PrintOption string `gorm:"column:print_option" json:"print_option"`

	RetailPrice float64 `gorm:"column:retail_price;not null" json:"retail_price"`
	TotalPrice  float64 `gorm:"column:total_price;not null" json:"total_price"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ProductVariant) TableName() string { return "product_variant" }
