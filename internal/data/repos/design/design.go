package design

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/threadforge/design-backend/internal/domain"
	"github.com/threadforge/design-backend/internal/pkg/dbctx"
	"github.com/threadforge/design-backend/internal/pkg/errors"
	"github.com/threadforge/design-backend/internal/pkg/logger"
)

type PersistedDesignRepo interface {
	Upsert(dbc dbctx.Context, row *types.PersistedDesign) error
	GetByUserProductView(dbc dbctx.Context, userID, productID uuid.UUID, view string) (*types.PersistedDesign, error)
	GetByUserProduct(dbc dbctx.Context, userID, productID uuid.UUID) ([]*types.PersistedDesign, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.PersistedDesign, error)
	Delete(dbc dbctx.Context, userID, productID uuid.UUID) error
}

type persistedDesignRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPersistedDesignRepo(db *gorm.DB, baseLog *logger.Logger) PersistedDesignRepo {
	return &persistedDesignRepo{db: db, log: baseLog.With("repo", "PersistedDesignRepo")}
}

// Upsert supersedes any existing record for the (user, product, view) key.
func (r *persistedDesignRepo) Upsert(dbc dbctx.Context, row *types.PersistedDesign) error {
	if row == nil {
		return nil
	}
	err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "product_id"}, {Name: "view"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"size_selection", "print_option_selection", "print_area_preset",
				"canvas_json", "thumbnail_url", "saved_at", "updated_at",
			}),
		}).
		Create(row).Error
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: concurrent save for the same design", errors.ErrInvalidArgument)
		}
		return err
	}
	return nil
}

func (r *persistedDesignRepo) GetByUserProductView(dbc dbctx.Context, userID, productID uuid.UUID, view string) (*types.PersistedDesign, error) {
	if userID == uuid.Nil || productID == uuid.Nil || view == "" {
		return nil, nil
	}
	var row types.PersistedDesign
	err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Where("user_id = ? AND product_id = ? AND view = ?", userID, productID, view).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *persistedDesignRepo) GetByUserProduct(dbc dbctx.Context, userID, productID uuid.UUID) ([]*types.PersistedDesign, error) {
	if userID == uuid.Nil || productID == uuid.Nil {
		return nil, nil
	}
	var rows []*types.PersistedDesign
	err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *persistedDesignRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.PersistedDesign, error) {
	if userID == uuid.Nil {
		return nil, nil
	}
	var rows []*types.PersistedDesign
	err := dbc.DB(r.db).WithContext(dbc.Ctx).
		Where("user_id = ?", userID).
		Order("saved_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *persistedDesignRepo) Delete(dbc dbctx.Context, userID, productID uuid.UUID) error {
	if userID == uuid.Nil || productID == uuid.Nil {
		return nil
	}
	return dbc.DB(r.db).WithContext(dbc.Ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&types.PersistedDesign{}).Error
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
