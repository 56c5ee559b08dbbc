package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/threadforge/design-backend/internal/clients/gcp"
	"github.com/threadforge/design-backend/internal/designer/persist"
	"github.com/threadforge/design-backend/internal/designer/presets"
	"github.com/threadforge/design-backend/internal/designer/render"
	"github.com/threadforge/design-backend/internal/designer/scene"
	"github.com/threadforge/design-backend/internal/designer/validate"
	"github.com/threadforge/design-backend/internal/http/middleware"
	"github.com/threadforge/design-backend/internal/http/response"
	"github.com/threadforge/design-backend/internal/pkg/errors"
	"github.com/threadforge/design-backend/internal/pkg/logger"
	"github.com/threadforge/design-backend/internal/services"
)

type DesignHandler struct {
	log      *logger.Logger
	designs  services.DesignService
	variants services.VariantService
	presets  *presets.Table
	backup   persist.BackupStore
	renderer *render.Renderer
	bucket   gcp.BucketService
}

func NewDesignHandler(
	log *logger.Logger,
	designs services.DesignService,
	variants services.VariantService,
	presetTable *presets.Table,
	backup persist.BackupStore,
	renderer *render.Renderer,
	bucket gcp.BucketService,
) *DesignHandler {
	return &DesignHandler{
		log:      log.With("handler", "DesignHandler"),
		designs:  designs,
		variants: variants,
		presets:  presetTable,
		backup:   backup,
		renderer: renderer,
		bucket:   bucket,
	}
}

type saveDesignRequest struct {
	ProductID            string          `json:"product_id" binding:"required"`
	View                 string          `json:"view" binding:"required"`
	SizeSelection        string          `json:"size_selection"`
	PrintOptionSelection string          `json:"print_option_selection"`
	PrintAreaPreset      string          `json:"print_area_preset" binding:"required"`
	CanvasJSON           json.RawMessage `json:"canvas_json" binding:"required"`
	ThumbnailURL         string          `json:"thumbnail_url"`
}

func (h *DesignHandler) SaveDesign(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}

	var req saveDesignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	area, err := h.presets.Lookup(req.PrintAreaPreset)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "unknown_preset", err)
		return
	}

	// Re-run the session validator server side. The editor already
	// validated, but the canvas payload comes over the wire.
	graph := scene.NewGraph(area.WidthPx, area.HeightPx)
	if err := graph.Load(req.CanvasJSON); err != nil {
		response.RespondError(c, http.StatusUnprocessableEntity, "corrupt_canvas", err)
		return
	}
	if result := validate.Validate(graph, area); !result.Valid {
		response.RespondError(c, http.StatusUnprocessableEntity, "validation_failed",
			&errors.ValidationError{Errors: result.Errors, Warnings: result.Warnings})
		return
	}

	thumbnailURL := req.ThumbnailURL
	if thumbnailURL == "" && h.renderer != nil && h.bucket != nil {
		// The client usually posts a thumbnail URL it already uploaded;
		// render one server side when it didn't. A failure here never
		// blocks the save.
		if png, err := h.renderer.Thumbnail(graph, render.DefaultMaxEdge); err == nil {
			key := fmt.Sprintf("design_thumb/%s/%s/%s_%d.png", userID, req.ProductID, req.View, time.Now().UnixNano())
			if url, err := h.bucket.UploadThumbnail(c.Request.Context(), key, png); err == nil {
				thumbnailURL = url
			} else {
				h.log.Warn("thumbnail upload failed", "error", err)
			}
		} else {
			h.log.Warn("thumbnail render failed", "error", err)
		}
	}

	id, err := h.designs.Save(c.Request.Context(), &persist.DesignRecord{
		UserID:               userID,
		ProductID:            req.ProductID,
		View:                 scene.View(req.View),
		SizeSelection:        req.SizeSelection,
		PrintOptionSelection: req.PrintOptionSelection,
		PrintAreaPreset:      req.PrintAreaPreset,
		CanvasJSON:           req.CanvasJSON,
		ThumbnailURL:         thumbnailURL,
		SavedAt:              time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, errors.ErrInvalidArgument) {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		h.log.Error("SaveDesign failed", "user_id", userID, "product_id", req.ProductID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "save_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"id": id, "saved_at": time.Now().UTC()})
}

func (h *DesignHandler) LoadDesign(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	productID := c.Param("productId")

	loaded, err := h.designs.Load(c.Request.Context(), userID, productID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "not_found", err)
			return
		}
		if errors.Is(err, errors.ErrInvalidArgument) {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		h.log.Error("LoadDesign failed", "user_id", userID, "product_id", productID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "load_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"print_area_preset": loaded.PrintAreaPreset,
		"front_canvas_json": json.RawMessage(loaded.FrontCanvasJSON),
		"back_canvas_json":  json.RawMessage(loaded.BackCanvasJSON),
	})
}

func (h *DesignHandler) DeleteDesign(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	productID := c.Param("productId")

	if err := h.designs.Delete(c.Request.Context(), userID, productID); err != nil {
		if errors.Is(err, errors.ErrInvalidArgument) {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		h.log.Error("DeleteDesign failed", "user_id", userID, "product_id", productID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "delete_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}

func (h *DesignHandler) ListDesigns(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	rows, err := h.designs.ListByUser(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("ListDesigns failed", "user_id", userID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}

	type summary struct {
		ProductID       string    `json:"product_id"`
		View            string    `json:"view"`
		PrintAreaPreset string    `json:"print_area_preset"`
		ThumbnailURL    string    `json:"thumbnail_url,omitempty"`
		SavedAt         time.Time `json:"saved_at"`
	}
	out := make([]summary, 0, len(rows))
	for _, row := range rows {
		out = append(out, summary{
			ProductID:       row.ProductID.String(),
			View:            row.View,
			PrintAreaPreset: row.PrintAreaPreset,
			ThumbnailURL:    row.ThumbnailURL,
			SavedAt:         row.SavedAt,
		})
	}
	response.RespondOK(c, gin.H{"designs": out})
}

// Backup endpoints serve the local-tier fallback. Guests get a shared
// namespace, so backups survive login but never reach the remote store.

func (h *DesignHandler) PutBackup(c *gin.Context) {
	key := persist.BackupKey(middleware.UserID(c), c.Param("productId"), scene.View(c.Param("view")))
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, validate.MaxSerializedBytes+1))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if len(raw) == 0 || len(raw) > validate.MaxSerializedBytes {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "payload_too_large",
			fmt.Errorf("backup payload must be 1..%d bytes", validate.MaxSerializedBytes))
		return
	}
	if err := h.backup.Set(c.Request.Context(), key, raw); err != nil {
		h.log.Error("PutBackup failed", "key", key, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "backup_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"backed_up": true})
}

func (h *DesignHandler) GetBackup(c *gin.Context) {
	key := persist.BackupKey(middleware.UserID(c), c.Param("productId"), scene.View(c.Param("view")))
	raw, err := h.backup.Get(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			response.RespondError(c, http.StatusNotFound, "not_found", err)
			return
		}
		h.log.Error("GetBackup failed", "key", key, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "backup_failed", err)
		return
	}
	c.Data(http.StatusOK, "application/json", raw)
}

func (h *DesignHandler) DeleteBackup(c *gin.Context) {
	key := persist.BackupKey(middleware.UserID(c), c.Param("productId"), scene.View(c.Param("view")))
	if err := h.backup.Delete(c.Request.Context(), key); err != nil {
		h.log.Error("DeleteBackup failed", "key", key, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "backup_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}

func (h *DesignHandler) ListPresets(c *gin.Context) {
	response.RespondOK(c, gin.H{"presets": h.presets.All()})
}

func (h *DesignHandler) ListVariants(c *gin.Context) {
	productID := c.Param("productId")
	variants, err := h.variants.ListByProduct(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, errors.ErrInvalidArgument) {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
		h.log.Error("ListVariants failed", "product_id", productID, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "list_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"variants": variants})
}
