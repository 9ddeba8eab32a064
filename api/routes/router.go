package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/renatoqp/puntoventa-backend/api/controllers"
	"github.com/renatoqp/puntoventa-backend/api/middleware"
	"github.com/renatoqp/puntoventa-backend/internal/catalog"
	"github.com/renatoqp/puntoventa-backend/internal/customers"
	"github.com/renatoqp/puntoventa-backend/internal/inventory"
	"github.com/renatoqp/puntoventa-backend/internal/points"
	"github.com/renatoqp/puntoventa-backend/internal/promotions"
	"github.com/renatoqp/puntoventa-backend/internal/sales"
	"github.com/renatoqp/puntoventa-backend/internal/tickets"
	"github.com/renatoqp/puntoventa-backend/pkg/config"
	"github.com/renatoqp/puntoventa-backend/pkg/logger"
	pkgredis "github.com/renatoqp/puntoventa-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	Redis      *pkgredis.Client
	Registry   *prometheus.Registry
	Readiness  map[string]controllers.Pinger
	Catalog    catalog.Service
	Customers  customers.Service
	Inventory  inventory.Service
	Points     points.Service
	Promotions promotions.Service
	Tickets    tickets.Service
	SalesRepo  *sales.Repository
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	logg := deps.Logger

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, logg, deps.Readiness))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		var store pkgredis.IdempotencyStore
		if deps.Redis != nil {
			store = deps.Redis
		}
		r.Use(middleware.Idempotency(store, logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.CreateProduct(deps.Catalog, logg))
			r.Get("/", controllers.ListProducts(deps.Catalog, logg))
			r.Get("/lookup", controllers.GetProductByBarcode(deps.Catalog, logg))
			r.Post("/bulk-price-adjust", controllers.BulkAdjustPrices(deps.Catalog, logg))
			r.Get("/{productId}", controllers.GetProduct(deps.Catalog, logg))
			r.Patch("/{productId}", controllers.UpdateProduct(deps.Catalog, logg))
			r.Delete("/{productId}", controllers.DeactivateProduct(deps.Catalog, logg))
			r.Get("/{productId}/movements", controllers.ProductMovements(deps.Inventory, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/adjustments", controllers.AdjustStock(deps.Inventory, logg))
			r.Get("/low-stock", controllers.LowStock(deps.Inventory, logg))
		})

		r.Route("/customers", func(r chi.Router) {
			r.Post("/", controllers.RegisterCustomer(deps.Customers, logg))
			r.Get("/lookup", controllers.GetCustomerByDocument(deps.Customers, logg))
			r.Get("/{customerId}", controllers.GetCustomer(deps.Customers, logg))
			r.Get("/{customerId}/points", controllers.PointsBalance(deps.Points, logg))
			r.Get("/{customerId}/points/history", controllers.PointsHistory(deps.Points, logg))
		})

		r.Route("/points", func(r chi.Router) {
			r.Post("/grants", controllers.GrantPoints(deps.Points, logg))
			r.Post("/redemptions", controllers.RedeemPoints(deps.Points, logg))
			r.Get("/settings", controllers.GetPointsSettings(deps.Points, logg))
			r.Put("/settings", controllers.UpdatePointsSettings(deps.Points, logg))
		})

		r.Route("/promotions", func(r chi.Router) {
			r.Post("/", controllers.CreatePromotion(deps.Promotions, logg))
			r.Get("/", controllers.ListPromotions(deps.Promotions, logg))
			r.Get("/{promotionId}", controllers.GetPromotion(deps.Promotions, logg))
			r.Put("/{promotionId}", controllers.UpdatePromotion(deps.Promotions, logg))
			r.Delete("/{promotionId}", controllers.DeactivatePromotion(deps.Promotions, logg))
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Post("/", controllers.CreateTicket(deps.Tickets, logg))
			r.Get("/", controllers.ListTickets(deps.Tickets, logg))
			r.Route("/{ticketId}", func(r chi.Router) {
				r.Get("/", controllers.GetTicket(deps.Tickets, logg))
				r.Delete("/", controllers.DeleteTicket(deps.Tickets, logg))
				r.Post("/lines", controllers.AddTicketLine(deps.Tickets, logg))
				r.Patch("/lines/{lineId}", controllers.UpdateTicketLine(deps.Tickets, logg))
				r.Delete("/lines/{lineId}", controllers.RemoveTicketLine(deps.Tickets, logg))
				r.Put("/customer", controllers.AssignTicketCustomer(deps.Tickets, logg))
				r.Put("/observations", controllers.SetTicketObservations(deps.Tickets, logg))
				r.Post("/checkout", controllers.Checkout(deps.Tickets, logg))
			})
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", controllers.ListSales(deps.SalesRepo, logg))
			r.Get("/{saleId}", controllers.GetSale(deps.SalesRepo, logg))
		})
	})

	return r
}
