package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/acervo/internal/asset"
	"github.com/gestaozabele/acervo/internal/config"
	httpmiddleware "github.com/gestaozabele/acervo/internal/http/middleware"
	"github.com/gestaozabele/acervo/internal/notify"
)

// StoreProvider devolve o Store configurado ou o erro de configuração que impede usá-lo.
type StoreProvider func() (asset.Store, error)

// StaticStore fixa o resultado da construção do Store feita na inicialização.
func StaticStore(store asset.Store, err error) StoreProvider {
	return func() (asset.Store, error) {
		return store, err
	}
}

type Handler struct {
	cfg           *config.Config
	stores        StoreProvider
	redis         *redis.Client
	alerts        *notify.Alerter
	publicLimiter *httpmiddleware.RateLimiter
	log           zerolog.Logger
	now           func() time.Time
}

// NewRouter devolve roteador configurado. redisClient e alerts são opcionais.
func NewRouter(cfg *config.Config, stores StoreProvider, redisClient *redis.Client, alerts *notify.Alerter) http.Handler {
	logger := log.With().Str("component", "http").Logger()

	h := &Handler{
		cfg:           cfg,
		stores:        stores,
		redis:         redisClient,
		alerts:        alerts,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		log:           logger,
		now:           time.Now,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Logging(logger))
	r.Use(httpmiddleware.Recover(logger))
	r.Use(httpmiddleware.CORS(cfg.AllowOrigins))
	r.Use(httpmiddleware.Metrics)

	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(public chi.Router) {
		public.Use(httpmiddleware.IPRateLimit(h.publicLimiter))

		public.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/dashboard", http.StatusFound)
		})

		public.Route("/api/images", func(api chi.Router) {
			api.Get("/", h.ListImages)
			api.Post("/", h.UploadImage)
			api.Get("/{id}", h.GetImage)
			api.Get("/{id}/content", h.ImageContent)
			api.Delete("/{id}", h.DeleteImage)
		})

		public.Route("/dashboard", func(dash chi.Router) {
			dash.Get("/", h.Dashboard)
			dash.Post("/upload", h.DashboardUpload)
			dash.Post("/images/{id}/delete", h.DashboardDelete)
		})
	})

	return r
}

// Health informa que o processo está de pé; não consulta a Shopify.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"storage":   "shopify",
		"timestamp": h.now().UTC().Format(time.RFC3339Nano),
	})
}

// Ready valida a conexão com o Redis quando ele está configurado.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.redis == nil {
		WriteJSON(w, http.StatusOK, map[string]any{"ready": true, "redis": "disabled"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.redis.Ping(ctx).Err(); err != nil {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"ready": false, "redis": err.Error()})
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ready": true, "redis": "ok"})
}

func (h *Handler) store() (asset.Store, error) {
	return h.stores()
}
