package domain

import (
	"github.com/threadforge/design-backend/internal/domain/design"
)

type (
	PersistedDesign = design.PersistedDesign
	ProductVariant  = design.ProductVariant
)
