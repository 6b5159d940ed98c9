package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/swiftcart/promotion-service/internal/service"
	"github.com/swiftcart/promotion-service/pkg/health"
	"github.com/swiftcart/promotion-service/pkg/middleware"
)

// RouterConfig holds the cross-cutting settings the router needs.
type RouterConfig struct {
	AllowedOrigins []string
	Environment    string
}

// NewRouter creates a chi router with all promotion service routes registered.
func NewRouter(
	campaignService *service.CampaignService,
	discountService *service.DiscountService,
	healthHandler *health.Handler,
	cfg RouterConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS(CORSConfig{AllowedOrigins: cfg.AllowedOrigins, Environment: cfg.Environment}))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("promotion"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Admin campaign endpoints
	campaignHandler := NewCampaignHandler(campaignService, logger)

	r.Route("/api/v1/campaigns", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", campaignHandler.CreateCampaign)
		r.Get("/", campaignHandler.ListCampaigns)
		r.Get("/{id}", campaignHandler.GetCampaign)
		r.Put("/{id}", campaignHandler.UpdateCampaign)
		r.Delete("/{id}", campaignHandler.DeleteCampaign)
		r.Post("/{id}/deactivate", campaignHandler.DeactivateCampaign)
	})

	// Public discount endpoints
	discountHandler := NewDiscountHandler(discountService, logger)

	r.Route("/api/v1/discounts", func(r chi.Router) {
		r.Get("/available", discountHandler.AvailableDiscounts)

		r.With(ContentTypeJSON).Post("/redeem", discountHandler.RedeemDiscount)
	})

	return r
}
