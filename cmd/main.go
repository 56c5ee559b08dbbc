package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/threadforge/design-backend/internal/clients/gcp"
	"github.com/threadforge/design-backend/internal/clients/localstore"
	redisclient "github.com/threadforge/design-backend/internal/clients/redis"
	"github.com/threadforge/design-backend/internal/data/db"
	designrepo "github.com/threadforge/design-backend/internal/data/repos/design"
	"github.com/threadforge/design-backend/internal/designer/persist"
	"github.com/threadforge/design-backend/internal/designer/presets"
	"github.com/threadforge/design-backend/internal/designer/render"
	httpsrv "github.com/threadforge/design-backend/internal/http"
	httpH "github.com/threadforge/design-backend/internal/http/handlers"
	httpMW "github.com/threadforge/design-backend/internal/http/middleware"
	"github.com/threadforge/design-backend/internal/observability"
	"github.com/threadforge/design-backend/internal/pkg/envutil"
	"github.com/threadforge/design-backend/internal/pkg/logger"
	"github.com/threadforge/design-backend/internal/services"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	listenAddr := envutil.GetEnv("LISTEN_ADDR", ":8080", log)
	presetsPath := envutil.GetEnv("PRINT_AREA_PRESETS_PATH", "", log)
	fontPath := envutil.GetEnv("THUMBNAIL_FONT_PATH", "", log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Observability
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "design-backend",
		Environment: envutil.GetEnv("ENVIRONMENT", "development", log),
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	designRepo := designrepo.NewPersistedDesignRepo(thePG, log)
	variantRepo := designrepo.NewProductVariantRepo(thePG, log)

	// Clients
	log.Info("Setting up Clients from main...")
	bucketService, err := gcp.NewBucketService(log)
	if err != nil {
		log.Warn("Could not init BucketService, thumbnails disabled", "error", err)
	}
	backupStore := newBackupStore(log)

	// Presets
	presetTable, err := presets.Load(presetsPath, log)
	if err != nil {
		log.Error("Could not load print-area presets", "error", err)
		os.Exit(1)
	}

	// Renderer
	renderer, err := render.NewRenderer(log, fontPath)
	if err != nil {
		log.Warn("Could not init thumbnail renderer", "error", err)
	}

	// Services
	log.Info("Setting up Services from main...")
	designService := services.NewDesignService(thePG, log, designRepo)
	variantService := services.NewVariantService(thePG, log, variantRepo)

	// Handlers
	authMiddleware, err := httpMW.NewAuthMiddleware(log)
	if err != nil {
		log.Error("Could not init AuthMiddleware", "error", err)
		os.Exit(1)
	}
	designHandler := httpH.NewDesignHandler(log, designService, variantService, presetTable, backupStore, renderer, bucketService)
	healthHandler := httpH.NewHealthHandler(log, thePG)

	router := httpsrv.NewRouter(httpsrv.RouterConfig{
		ServiceName:    "design-backend",
		AuthMiddleware: authMiddleware,
		DesignHandler:  designHandler,
		HealthHandler:  healthHandler,
	})

	srv := &http.Server{Addr: listenAddr, Handler: router}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Listening", "addr", listenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
	log.Info("Shutdown complete")
}

// newBackupStore picks the best available backup tier: redis when
// configured, the sqlite file otherwise, in-memory as the last resort.
func newBackupStore(log *logger.Logger) persist.BackupStore {
	if store, err := redisclient.NewBackupStore(log); err == nil {
		log.Info("Backup tier: redis")
		return store
	} else {
		log.Warn("Redis backup store unavailable", "error", err)
	}
	if store, err := localstore.NewStore(log); err == nil {
		log.Info("Backup tier: sqlite")
		return store
	} else {
		log.Warn("Sqlite backup store unavailable", "error", err)
	}
	log.Warn("Backup tier: in-memory only")
	return localstore.NewMemory()
}
