package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/riandyrn/otelchi"
	otelchimetric "github.com/riandyrn/otelchi/metric"
	"go.opentelemetry.io/otel"

	"github.com/socialchef/recipebox/internal/middleware"
	"github.com/socialchef/recipebox/internal/sentry"
)

// NewRouter builds the HTTP surface: tracing, request metrics, CORS, a
// public health check and the authenticated API.
func NewRouter(s *Server) http.Handler {
	serverName := s.cfg.ServiceName
	if serverName == "" {
		serverName = "recipebox-server"
	}

	r := chi.NewRouter()

	r.Use(otelchi.Middleware(serverName,
		otelchi.WithChiRoutes(r),
		otelchi.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
	))

	metricCfg := otelchimetric.NewBaseConfig(serverName, otelchimetric.WithMeterProvider(otel.GetMeterProvider()))
	r.Use(otelchimetric.NewRequestDurationMillis(metricCfg))
	r.Use(otelchimetric.NewRequestInFlight(metricCfg))
	r.Use(otelchimetric.NewResponseSizeBytes(metricCfg))

	r.Use(sentry.HTTPMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware(s.cfg))

		r.Post("/api/scrape", s.HandleScrape)
		r.Post("/api/ocr", s.HandleOCR)
		r.Get("/api/jobs/{id}", s.HandleJobStatus)

		r.Get("/api/recipes", s.HandleListRecipes)
		r.Get("/api/recipes/{name}", s.HandleGetRecipe)
		r.Put("/api/recipes/{name}", s.HandleUpdateRecipe)
		r.Delete("/api/recipes/{name}", s.HandleDeleteRecipe)

		r.With(middleware.RequireAdmin).Get("/api/admin/recipes", s.HandleAdminListRecipes)
	})

	return r
}
