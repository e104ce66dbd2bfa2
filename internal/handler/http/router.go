package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Misaka450/baoandkai-sub000/internal/media/blob/memory"
	"github.com/Misaka450/baoandkai-sub000/pkg/health"
	"github.com/Misaka450/baoandkai-sub000/pkg/middleware"
)

// RouterConfig carries the router-level settings.
type RouterConfig struct {
	// AdminToken gates every mutating endpoint. Empty rejects all mutations.
	AdminToken string
	// CORS is the cross-origin policy for the public read surface.
	CORS middleware.CORSConfig
}

// NewRouter creates a chi router with all routes registered. devStore is
// non-nil only when the in-memory blob backend is active; it mounts a local
// /media/* file-serving route so references resolve in development.
func NewRouter(
	timelineHandler *TimelineHandler,
	uploadHandler *UploadHandler,
	healthHandler *health.Handler,
	devStore *memory.Store,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("baoandkai"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	admin := middleware.AdminAuth(cfg.AdminToken)

	// Timeline API: reads are public, mutations are admin-only.
	r.Route("/api/v1/timeline", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", timelineHandler.ListEvents)
		r.Get("/{id}", timelineHandler.GetEvent)

		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Post("/", timelineHandler.CreateEvent)
			r.Put("/{id}", timelineHandler.UpdateEvent)
			r.Delete("/{id}", timelineHandler.DeleteEvent)
		})
	})

	// Media API: upload is admin-only.
	r.Route("/api/v1/media", func(r chi.Router) {
		r.Use(admin)
		r.Post("/uploads", uploadHandler.UploadBatch)
	})

	// Development blob serving for the in-memory backend.
	if devStore != nil {
		r.Get("/media/*", ServeBlob(devStore))
	}

	return r
}
