package design

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/threadforge/design-backend/internal/domain"
	"github.com/threadforge/design-backend/internal/pkg/dbctx"
	"github.com/threadforge/design-backend/internal/pkg/logger"
)

type ProductVariantRepo interface {
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ProductVariant, error)
	ListByProduct(dbc dbctx.Context, productID uuid.UUID) ([]*types.ProductVariant, error)
}

type productVariantRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductVariantRepo(db *gorm.DB, baseLog *logger.Logger) ProductVariantRepo {
	return &productVariantRepo{db: db, log: baseLog.With("repo", "ProductVariantRepo")}
}

func (r *productVariantRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ProductVariant, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.ProductVariant
	err := dbc.DB(r.db).WithContext(dbc.Ctx).First(&row, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *productVariantRepo) ListByProduct(dbc dbctx.Context, productID uuid.UUID) ([]*types.ProductVariant, error) {
	if productID == uuid.Nil {
		return nil, nil
	}
	var rows []*types.ProductVariant
	err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Where("product_id = ?", productID).
		Order("variant_name ASC, size ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
