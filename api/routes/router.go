package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/pos-backend/api/controllers"
	"github.com/angelmondragon/pos-backend/api/middleware"
	"github.com/angelmondragon/pos-backend/internal/cart"
	"github.com/angelmondragon/pos-backend/pkg/config"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/pos-backend/pkg/redis"
)

type redisStore interface {
	pkgredis.IdempotencyStore
	Ping(ctx context.Context) error
}

type salesFeed interface {
	controllers.SalesFeed
	controllers.FeedHealth
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	loc *time.Location,
	dbP controllers.Pinger,
	redisClient redisStore,
	gatherer prometheus.Gatherer,
	products controllers.ProductLister,
	cartService cart.Service,
	feed salesFeed,
	storeErrors controllers.StoreErrorSource,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient, feed))
	})
	r.Method(http.MethodGet, "/metrics", controllers.Metrics(gatherer))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(products, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Use(middleware.RegisterSession(logg))
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Put("/items/{productId}", controllers.CartSetQuantity(cartService, logg))
			r.Delete("/items/{productId}", controllers.CartRemoveItem(cartService, logg))
			r.With(middleware.Idempotency(redisClient, middleware.CheckoutReplayTTL, logg)).Post("/checkout", controllers.CartCheckout(cartService, logg))
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", controllers.SalesList(feed, loc, logg))
			r.Get("/stream", controllers.SalesStream(feed, storeErrors, loc, logg))
			r.Get("/export", controllers.SalesExport(feed, loc, logg))
			r.Get("/{saleId}", controllers.SaleDetail(feed, logg))
			r.Patch("/{saleId}", controllers.SaleUpdate(feed, logg))
			r.Delete("/{saleId}", controllers.SaleDelete(feed, logg))
		})

		r.Get("/reports/performance", controllers.ReportsPerformance(feed, loc, logg))
	})

	return r
}
