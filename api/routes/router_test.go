package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/renatoqp/puntoventa-backend/internal/catalog"
	"github.com/renatoqp/puntoventa-backend/internal/customers"
	"github.com/renatoqp/puntoventa-backend/internal/inventory"
	"github.com/renatoqp/puntoventa-backend/internal/points"
	"github.com/renatoqp/puntoventa-backend/internal/promotions"
	"github.com/renatoqp/puntoventa-backend/internal/sales"
	"github.com/renatoqp/puntoventa-backend/internal/tickets"
	"github.com/renatoqp/puntoventa-backend/pkg/clock"
	"github.com/renatoqp/puntoventa-backend/pkg/config"
	dbpkg "github.com/renatoqp/puntoventa-backend/pkg/db"
	"github.com/renatoqp/puntoventa-backend/pkg/db/models"
	"github.com/renatoqp/puntoventa-backend/pkg/outbox"
	"github.com/renatoqp/puntoventa-backend/pkg/types"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	dsn := "file:routes_" + uuid.NewString() + "?mode=memory&cache=shared"
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = gormDB.AutoMigrate(
		&models.Product{},
		&models.PriceHistory{},
		&models.Customer{},
		&models.Ticket{},
		&models.TicketLine{},
		&models.Promotion{},
		&models.PromotionProduct{},
		&models.Sale{},
		&models.SaleLine{},
		&models.StockMovement{},
		&models.PointsTransaction{},
		&models.PointsSettings{},
		&models.OutboxEvent{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	client := dbpkg.FromGorm(gormDB)
	clk := clock.System()
	pointsDefaults := config.Points{
		SolsPerPoint:        decimal.RequireFromString("10"),
		PointValue:          decimal.RequireFromString("0.10"),
		MinimumRedeemPoints: 100,
		ExpiryDays:          365,
	}

	catalogSvc, err := catalog.NewService(catalog.NewRepository(gormDB), client, nil)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	customersSvc, err := customers.NewService(customers.NewRepository(gormDB))
	if err != nil {
		t.Fatalf("customers: %v", err)
	}
	inventorySvc, err := inventory.NewService(inventory.NewRepository(gormDB), client, nil)
	if err != nil {
		t.Fatalf("inventory: %v", err)
	}
	pointsSvc, err := points.NewService(points.NewRepository(gormDB), client, clk, pointsDefaults)
	if err != nil {
		t.Fatalf("points: %v", err)
	}
	promoRepo := promotions.NewRepository(gormDB)
	promotionsSvc, err := promotions.NewService(promoRepo, clk)
	if err != nil {
		t.Fatalf("promotions: %v", err)
	}
	salesRepo := sales.NewRepository(gormDB)
	ticketsSvc, err := tickets.NewService(tickets.ServiceDeps{
		Repo:      tickets.NewRepository(gormDB),
		Tx:        client,
		Products:  catalog.NewRepository(gormDB),
		Customers: customers.NewRepository(gormDB),
		PromoRepo: promoRepo,
		Engine:    promotions.Engine{},
		Stock:     inventorySvc,
		Points:    pointsSvc,
		SalesRepo: salesRepo,
		Events:    outbox.NewService(outbox.NewRepository(gormDB), nil),
		Clock:     clk,
		SalesCfg: config.Sales{
			TaxRate:  decimal.RequireFromString("0.18"),
			Currency: "PEN",
		},
	})
	if err != nil {
		t.Fatalf("tickets: %v", err)
	}

	cfg := &config.Config{}
	cfg.App.Env = config.AppEnvDev

	return NewRouter(Deps{
		Config:     cfg,
		Catalog:    catalogSvc,
		Customers:  customersSvc,
		Inventory:  inventorySvc,
		Points:     pointsSvc,
		Promotions: promotionsSvc,
		Tickets:    ticketsSvc,
		SalesRepo:  salesRepo,
	})
}

func TestHealthLive(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	// product in, ticket opened, line added, checkout
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/products",
		strings.NewReader(`{"barcode":"7750001234567","name":"Chicha Morada 1L","price":"6.50","cost":"3.00","initial_stock":10}`)))
	if w.Code != http.StatusCreated {
		t.Fatalf("create product: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var productEnvelope struct {
		Data models.Product `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&productEnvelope); err != nil {
		t.Fatalf("decode product: %v", err)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/tickets", strings.NewReader(`{}`)))
	if w.Code != http.StatusCreated {
		t.Fatalf("create ticket: expected 201, got %d", w.Code)
	}
	var ticketEnvelope struct {
		Data models.Ticket `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&ticketEnvelope); err != nil {
		t.Fatalf("decode ticket: %v", err)
	}
	ticketID := ticketEnvelope.Data.ID.String()

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/tickets/"+ticketID+"/lines",
		strings.NewReader(`{"product_id":"`+productEnvelope.Data.ID.String()+`","quantity":2}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("add line: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/tickets/"+ticketID+"/checkout",
		strings.NewReader(`{"payment_method":"cash"}`)))
	if w.Code != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var saleEnvelope struct {
		Data models.Sale `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&saleEnvelope); err != nil {
		t.Fatalf("decode sale: %v", err)
	}
	if !saleEnvelope.Data.Total.Equal(decimal.RequireFromString("15.34")) {
		t.Fatalf("expected total 15.34, got %s", saleEnvelope.Data.Total)
	}
}

func TestUnknownTicketReturnsNotFoundEnvelope(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tickets/"+uuid.NewString(), nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	var body types.ErrorEnvelope
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	if body.Error.Code != "NOT_FOUND" {
		t.Fatalf("unexpected code %s", body.Error.Code)
	}
}

func TestInvalidPaymentMethodReturnsBadRequest(t *testing.T) {
	t.Parallel()
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/tickets", strings.NewReader(`{}`)))
	var ticketEnvelope struct {
		Data models.Ticket `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&ticketEnvelope); err != nil {
		t.Fatalf("decode ticket: %v", err)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/tickets/"+ticketEnvelope.Data.ID.String()+"/checkout",
		strings.NewReader(`{"payment_method":"bitcoin"}`)))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}
