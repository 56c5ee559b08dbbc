package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/threadforge/design-backend/internal/http/handlers"
	httpMW "github.com/threadforge/design-backend/internal/http/middleware"
)

type RouterConfig struct {
	ServiceName    string
	AuthMiddleware *httpMW.AuthMiddleware
	DesignHandler  *httpH.DesignHandler
	HealthHandler  *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.CORS())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Catalog surface (public; the editor shows these pre-login)
		if cfg.DesignHandler != nil {
			api.GET("/design/presets", cfg.DesignHandler.ListPresets)
			api.GET("/design/variants/:productId", cfg.DesignHandler.ListVariants)
		}
	}

	// Backup tier is open to guests; a valid token just scopes the key.
	backup := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			backup.Use(cfg.AuthMiddleware.OptionalAuth())
		}
		if cfg.DesignHandler != nil {
			backup.PUT("/design/backup/:productId/:view", cfg.DesignHandler.PutBackup)
			backup.GET("/design/backup/:productId/:view", cfg.DesignHandler.GetBackup)
			backup.DELETE("/design/backup/:productId/:view", cfg.DesignHandler.DeleteBackup)
		}
	}

	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.DesignHandler != nil {
			protected.POST("/design/save", cfg.DesignHandler.SaveDesign)
			protected.GET("/design/load/:productId", cfg.DesignHandler.LoadDesign)
			protected.DELETE("/design/:productId", cfg.DesignHandler.DeleteDesign)
			protected.GET("/design", cfg.DesignHandler.ListDesigns)
		}
	}

	return r
}
