package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	dbpkg "github.com/renatoqp/puntoventa-backend/pkg/db"
	"github.com/renatoqp/puntoventa-backend/pkg/db/models"
	pkgerrors "github.com/renatoqp/puntoventa-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gormDB.AutoMigrate(&models.Product{}, &models.PriceHistory{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(gormDB), dbpkg.FromGorm(gormDB), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, gormDB
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCreateProductAndBarcodeLookup(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductInput{
		Barcode:       "7750001000011",
		Name:          "Inca Kola 500ml",
		Price:         price("3.50"),
		Cost:          price("2.10"),
		InitialStock:  24,
		EnablesPoints: true,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == uuid.Nil {
		t.Fatalf("expected assigned id")
	}

	found, err := svc.GetByBarcode(ctx, "7750001000011")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if found.Name != "Inca Kola 500ml" || found.Stock != 24 {
		t.Fatalf("unexpected product %+v", found)
	}
}

func TestCreateProductDuplicateBarcode(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	ctx := context.Background()

	input := CreateProductInput{Barcode: "123", Name: "Galletas", Price: price("1.00")}
	if _, err := svc.CreateProduct(ctx, input); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.CreateProduct(ctx, input)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdateProductPriceRecordsHistory(t *testing.T) {
	t.Parallel()
	svc, gormDB := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductInput{Barcode: "44", Name: "Arroz 1kg", Price: price("4.20")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	newPrice := price("4.80")
	updated, err := svc.UpdateProduct(ctx, created.ID, UpdateProductInput{Price: &newPrice})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Price.Equal(newPrice) {
		t.Fatalf("price not updated: %s", updated.Price)
	}

	var histories []models.PriceHistory
	if err := gormDB.Find(&histories, "product_id = ?", created.ID).Error; err != nil {
		t.Fatalf("load history: %v", err)
	}
	if len(histories) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(histories))
	}
	if !histories[0].OldPrice.Equal(price("4.20")) || !histories[0].NewPrice.Equal(newPrice) {
		t.Fatalf("history row wrong: %+v", histories[0])
	}
}

func TestBulkAdjustPricesByCategory(t *testing.T) {
	t.Parallel()
	svc, gormDB := newTestService(t)
	ctx := context.Background()

	bebidas := "bebidas"
	abarrotes := "abarrotes"
	if _, err := svc.CreateProduct(ctx, CreateProductInput{Barcode: "b1", Name: "Agua", Category: &bebidas, Price: price("2.00")}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.CreateProduct(ctx, CreateProductInput{Barcode: "a1", Name: "Azucar", Category: &abarrotes, Price: price("5.00")}); err != nil {
		t.Fatalf("create: %v", err)
	}

	adjusted, err := svc.BulkAdjustPrices(ctx, BulkAdjustPricesInput{
		Category: &bebidas,
		Percent:  price("10"),
		Reason:   "supplier increase",
	})
	if err != nil {
		t.Fatalf("bulk adjust: %v", err)
	}
	if adjusted != 1 {
		t.Fatalf("expected 1 adjusted product, got %d", adjusted)
	}

	var agua models.Product
	if err := gormDB.First(&agua, "barcode = ?", "b1").Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !agua.Price.Equal(price("2.20")) {
		t.Fatalf("expected 2.20, got %s", agua.Price)
	}

	var azucar models.Product
	if err := gormDB.First(&azucar, "barcode = ?", "a1").Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !azucar.Price.Equal(price("5.00")) {
		t.Fatalf("other category must be untouched, got %s", azucar.Price)
	}

	var historyCount int64
	if err := gormDB.Model(&models.PriceHistory{}).Count(&historyCount).Error; err != nil {
		t.Fatalf("count history: %v", err)
	}
	if historyCount != 1 {
		t.Fatalf("expected 1 history row, got %d", historyCount)
	}
}

func TestBulkAdjustPricesRejectsZeroPercent(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	_, err := svc.BulkAdjustPrices(context.Background(), BulkAdjustPricesInput{Percent: decimal.Zero})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
