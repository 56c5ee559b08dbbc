package persist

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/threadforge/design-backend/internal/designer/scene"
)

// DesignRecord is the durable form of one garment view's design, keyed by
// (UserID, ProductID, View). A later save for the same key supersedes the
// record; there is no version history server-side.
type DesignRecord struct {
	UserID               string
	ProductID            string
	View                 scene.View
	SizeSelection        string
	PrintOptionSelection string
	PrintAreaPreset      string
	CanvasJSON           []byte
	ThumbnailURL         string
	SavedAt              time.Time
}

// LoadedDesign is what the store returns for (UserID, ProductID): the
// preset plus whichever view canvases exist.
type LoadedDesign struct {
	PrintAreaPreset string
	FrontCanvasJSON []byte
	BackCanvasJSON  []byte
}

// For returns the canvas for one view, nil when that view was never saved.
func (l *LoadedDesign) For(view scene.View) []byte {
	if l == nil {
		return nil
	}
	if view == scene.ViewBack {
		return l.BackCanvasJSON
	}
	return l.FrontCanvasJSON
}

// DesignStore is the remote persistence collaborator. Load reports
// errors.ErrNotFound when no design exists for the key.
type DesignStore interface {
	Save(ctx context.Context, rec *DesignRecord) (id string, err error)
	Load(ctx context.Context, userID, productID string) (*LoadedDesign, error)
	Delete(ctx context.Context, userID, productID string) error
}

// BlobStore hosts raster thumbnails and returns a stable public URL.
type BlobStore interface {
	UploadThumbnail(ctx context.Context, key string, png []byte) (url string, err error)
}

// BackupStore is the local-only last line of defense: the live scene is
// written here every backup interval regardless of remote save health.
// Get reports errors.ErrNotFound on a miss.
type BackupStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// BackupKey builds the local backup key. Anonymous sessions share the
// guest namespace.
func BackupKey(userID, productID string, view scene.View) string {
	user := strings.TrimSpace(userID)
	if user == "" {
		user = "guest"
	}
	return fmt.Sprintf("design_backup_%s_%s_%s", user, productID, view)
}

// SaveContext is everything a save needs from the orchestrator: the
// authenticated principal and the active variant selection. The provider
// rejects with a PreconditionError before any I/O when either is missing.
type SaveContext struct {
	UserID               string
	ProductID            string
	View                 scene.View
	PrintAreaPreset      string
	SizeSelection        string
	PrintOptionSelection string
}
