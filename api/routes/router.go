package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zedpos/zedpos-backend/api/controllers"
	"github.com/zedpos/zedpos-backend/api/middleware"
	productsvc "github.com/zedpos/zedpos-backend/internal/products"
	reportsvc "github.com/zedpos/zedpos-backend/internal/reports"
	salesvc "github.com/zedpos/zedpos-backend/internal/sales"
	"github.com/zedpos/zedpos-backend/pkg/config"
	"github.com/zedpos/zedpos-backend/pkg/db"
	"github.com/zedpos/zedpos-backend/pkg/logger"
	pkgredis "github.com/zedpos/zedpos-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	productService productsvc.Service,
	saleService salesvc.Service,
	reportService reportsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/products", controllers.ListProducts(productService, logg))
		r.Post("/products", controllers.CreateProduct(productService, logg))
		r.Get("/products/{productId}", controllers.GetProduct(productService, logg))
		r.Patch("/products/{productId}", controllers.UpdateProduct(productService, logg))
		r.Delete("/products/{productId}", controllers.DeleteProduct(productService, logg))

		r.Get("/sales", controllers.ListSales(saleService, logg))
		r.Post("/sales", controllers.CreateSale(saleService, logg))
		r.Get("/sales/{saleId}", controllers.GetSale(saleService, logg))

		r.Route("/reports", func(r chi.Router) {
			r.Get("/daily", controllers.DailyReport(reportService, logg))
			r.Get("/tax-summary", controllers.TaxReport(reportService, logg))
		})
	})

	return r
}
