package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	designrepo "github.com/threadforge/design-backend/internal/data/repos/design"
	"github.com/threadforge/design-backend/internal/designer/session"
	types "github.com/threadforge/design-backend/internal/domain"
	"github.com/threadforge/design-backend/internal/pkg/dbctx"
	"github.com/threadforge/design-backend/internal/pkg/errors"
	"github.com/threadforge/design-backend/internal/pkg/logger"
)

// VariantService resolves the garment/size/print-option combinations a
// session may activate.
type VariantService interface {
	Get(ctx context.Context, id string) (*session.Variant, error)
	ListByProduct(ctx context.Context, productID string) ([]*session.Variant, error)
}

type variantService struct {
	db          *gorm.DB
	log         *logger.Logger
	variantRepo designrepo.ProductVariantRepo
}

func NewVariantService(db *gorm.DB, baseLog *logger.Logger, variantRepo designrepo.ProductVariantRepo) VariantService {
	return &variantService{
		db:          db,
		log:         baseLog.With("service", "VariantService"),
		variantRepo: variantRepo,
	}
}

func (vs *variantService) Get(ctx context.Context, id string) (*session.Variant, error) {
	vid, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: variant id %q", errors.ErrInvalidArgument, id)
	}
	row, err := vs.variantRepo.GetByID(dbctx.New(ctx), vid)
	if err != nil {
		return nil, fmt.Errorf("get variant: %w", err)
	}
	if row == nil {
		return nil, errors.ErrNotFound
	}
	return toSessionVariant(row), nil
}

func (vs *variantService) ListByProduct(ctx context.Context, productID string) ([]*session.Variant, error) {
	pid, err := uuid.Parse(productID)
	if err != nil {
		return nil, fmt.Errorf("%w: product id %q", errors.ErrInvalidArgument, productID)
	}
	rows, err := vs.variantRepo.ListByProduct(dbctx.New(ctx), pid)
	if err != nil {
		return nil, fmt.Errorf("list variants: %w", err)
	}
	out := make([]*session.Variant, 0, len(rows))
	for _, row := range rows {
		out = append(out, toSessionVariant(row))
	}
	return out, nil
}

func toSessionVariant(row *types.ProductVariant) *session.Variant {
	return &session.Variant{
		ID:          row.ID.String(),
		ProductID:   row.ProductID.String(),
		ProductName: row.ProductName,
		VariantName: row.VariantName,
		Size:        row.Size,
		PrintOption: row.PrintOption,
		RetailPrice: row.RetailPrice,
		TotalPrice:  row.TotalPrice,
	}
}
