package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	designrepo "github.com/threadforge/design-backend/internal/data/repos/design"
	"github.com/threadforge/design-backend/internal/designer/persist"
	"github.com/threadforge/design-backend/internal/designer/scene"
	types "github.com/threadforge/design-backend/internal/domain"
	"github.com/threadforge/design-backend/internal/pkg/dbctx"
	"github.com/threadforge/design-backend/internal/pkg/errors"
	"github.com/threadforge/design-backend/internal/pkg/logger"
)

// DesignService is the remote persistence tier. It implements
// persist.DesignStore for the session coordinator and adds the listing
// surface the HTTP layer exposes.
type DesignService interface {
	Save(ctx context.Context, rec *persist.DesignRecord) (string, error)
	Load(ctx context.Context, userID, productID string) (*persist.LoadedDesign, error)
	Delete(ctx context.Context, userID, productID string) error
	ListByUser(ctx context.Context, userID string) ([]*types.PersistedDesign, error)
}

type designService struct {
	db         *gorm.DB
	log        *logger.Logger
	designRepo designrepo.PersistedDesignRepo
}

func NewDesignService(db *gorm.DB, baseLog *logger.Logger, designRepo designrepo.PersistedDesignRepo) DesignService {
	return &designService{
		db:         db,
		log:        baseLog.With("service", "DesignService"),
		designRepo: designRepo,
	}
}

func (ds *designService) Save(ctx context.Context, rec *persist.DesignRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("%w: nil design record", errors.ErrInvalidArgument)
	}
	userID, productID, err := parseKey(rec.UserID, rec.ProductID)
	if err != nil {
		return "", err
	}

	savedAt := rec.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}
	row := &types.PersistedDesign{
		ID:                   uuid.New(),
		UserID:               userID,
		ProductID:            productID,
		View:                 string(rec.View),
		SizeSelection:        rec.SizeSelection,
		PrintOptionSelection: rec.PrintOptionSelection,
		PrintAreaPreset:      rec.PrintAreaPreset,
		CanvasJSON:           datatypes.JSON(rec.CanvasJSON),
		ThumbnailURL:         rec.ThumbnailURL,
		SavedAt:              savedAt,
	}

	dbc := dbctx.New(ctx)
	if err := ds.designRepo.Upsert(dbc, row); err != nil {
		ds.log.Error("Save failed", "user_id", userID, "product_id", productID, "view", rec.View, "error", err)
		return "", fmt.Errorf("save design: %w", err)
	}

	// The upsert keeps the original row id on conflict, so read it back.
	stored, err := ds.designRepo.GetByUserProductView(dbc, userID, productID, string(rec.View))
	if err != nil {
		return "", fmt.Errorf("save design: %w", err)
	}
	if stored == nil {
		return row.ID.String(), nil
	}
	return stored.ID.String(), nil
}

func (ds *designService) Load(ctx context.Context, userID, productID string) (*persist.LoadedDesign, error) {
	uid, pid, err := parseKey(userID, productID)
	if err != nil {
		return nil, err
	}
	rows, err := ds.designRepo.GetByUserProduct(dbctx.New(ctx), uid, pid)
	if err != nil {
		return nil, fmt.Errorf("load design: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.ErrNotFound
	}

	loaded := &persist.LoadedDesign{}
	var latest time.Time
	for _, row := range rows {
		switch scene.View(row.View) {
		case scene.ViewBack:
			loaded.BackCanvasJSON = []byte(row.CanvasJSON)
		default:
			loaded.FrontCanvasJSON = []byte(row.CanvasJSON)
		}
		if row.SavedAt.After(latest) {
			latest = row.SavedAt
			loaded.PrintAreaPreset = row.PrintAreaPreset
		}
	}
	return loaded, nil
}

func (ds *designService) Delete(ctx context.Context, userID, productID string) error {
	uid, pid, err := parseKey(userID, productID)
	if err != nil {
		return err
	}
	if err := ds.designRepo.Delete(dbctx.New(ctx), uid, pid); err != nil {
		return fmt.Errorf("delete design: %w", err)
	}
	return nil
}

func (ds *designService) ListByUser(ctx context.Context, userID string) ([]*types.PersistedDesign, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: user id %q", errors.ErrInvalidArgument, userID)
	}
	rows, err := ds.designRepo.ListByUser(dbctx.New(ctx), uid)
	if err != nil {
		return nil, fmt.Errorf("list designs: %w", err)
	}
	return rows, nil
}

func parseKey(userID, productID string) (uuid.UUID, uuid.UUID, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: user id %q", errors.ErrInvalidArgument, userID)
	}
	pid, err := uuid.Parse(productID)
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("%w: product id %q", errors.ErrInvalidArgument, productID)
	}
	return uid, pid, nil
}
