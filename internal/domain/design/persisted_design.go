package design

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PersistedDesign is the durable record of one garment view's design,
// superseded (not versioned) on every save for the same
// (user_id, product_id, view) key.
type PersistedDesign struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_design_user_product_view,priority:1" json:"user_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_design_user_product_view,priority:2" json:"product_id"`
	View      string    `gorm:"not null;uniqueIndex:idx_design_user_product_view,priority:3;column:view" json:"view"`

	SizeSelection        string `gorm:"column:size_selection" json:"size_selection"`
	PrintOptionSelection string `gorm:"column:print_option_selection" json:"print_option_selection"`
	PrintAreaPreset      string `gorm:"column:print_area_preset;not null" json:"print_area_preset"`

	CanvasJSON   datatypes.JSON `gorm:"column:canvas_json;type:jsonb;not null" json:"canvas_json"`
	ThumbnailURL string         `gorm:"column:thumbnail_url" json:"thumbnail_url"`

	SavedAt   time.Time      `gorm:"column:saved_at;not null;index" json:"saved_at"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (PersistedDesign) TableName() string { return "persisted_design" }
