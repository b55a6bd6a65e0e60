package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/kompvlz/zakupki/internal/handlers"
	"github.com/kompvlz/zakupki/internal/httpx"
	"github.com/kompvlz/zakupki/internal/store"
)

// New constructs the root http.Handler: the purchase API under /api, health
// and metrics endpoints, and the asset cache serving everything else.
func New(s *store.Store, assets http.Handler, log *logrus.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(requestLogger(log))

	ph := handlers.NewPurchaseHandler(s, log)
	eh := handlers.NewExportHandler(s, log)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/purchases", func(r chi.Router) {
			r.Get("/", ph.List)
			r.Post("/", ph.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", ph.Get)
				r.Patch("/", ph.Update)
				r.Delete("/", ph.Delete)
				r.Post("/items", ph.AddItem)
				r.Put("/items/{index}", ph.UpdateItem)
				r.Delete("/items/{index}", ph.RemoveItem)
				r.Post("/archive", ph.Archive)
				r.Post("/unarchive", ph.Unarchive)
				r.Post("/export", eh.Export)
				r.Post("/reset-import", eh.ResetImport)
			})
		})
		r.Get("/export", eh.ExportAll)
	})

	// Everything else is the web shell, served through the offline cache.
	if assets != nil {
		r.NotFound(assets.ServeHTTP)
	}

	return r
}

func requestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start).String(),
			}).Debug("request")
		})
	}
}
