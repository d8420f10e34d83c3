package serverhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	browseHnd "catalog-browser/internal/browse/handler"
	"catalog-browser/internal/catalog"
	"catalog-browser/internal/config"
	"catalog-browser/internal/middleware"
	"catalog-browser/server/http/handlers"
)

func NewRouter(cfg config.Config, logger zerolog.Logger, loader *catalog.Loader, api *browseHnd.Handler) *chi.Mux {
	r := chi.NewRouter()

	// порядок важен: recover -> requestID -> logging -> cors -> limit
	r.Use(middleware.Recover(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))
	r.Use(middleware.LimitBytes(int64(cfg.MaxBodyKB) * 1024))

	r.Get("/health", handlers.Health(loader, time.Now()))

	// иконки и прочая статика
	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.Dir(cfg.AssetsDir))))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.TrustedProxies))

		r.Get("/catalog", api.Search)
		r.Post("/catalog/reload", api.Reload)
		r.Get("/catalog/{key}", api.Item)
		r.Get("/highlight", api.Highlight)
		r.Get("/icon", api.Icon)

		r.Get("/cart", api.Cart)
		r.Delete("/cart", api.ClearCart)
		r.Post("/cart/items", api.AddItem)
		r.Put("/cart/items/{key}", api.SetQty)
		r.Delete("/cart/items/{key}", api.RemoveItem)
		r.Post("/cart/items/{key}/increment", api.Increment)
		r.Post("/cart/items/{key}/decrement", api.Decrement)
	})

	return r
}
