package inventory

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
	"github.com/renatoqp/puntoventa-backend/pkg/enums"
	pkgerrors "github.com/renatoqp/puntoventa-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gormDB.AutoMigrate(&models.Product{}, &models.StockMovement{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(gormDB), dbpkg.FromGorm(gormDB), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, gormDB
}

func seedProduct(t *testing.T, gormDB *gorm.DB, stock int) uuid.UUID {
	t.Helper()
	product := models.Product{
		ID:      uuid.New(),
		Barcode: uuid.NewString(),
		Name:    "Leche Gloria",
		Price:   decimal.RequireFromString("4.50"),
		Cost:    decimal.RequireFromString("3.10"),
		Stock:   stock,
	}
	if err := gormDB.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product.ID
}

func TestAdjustRestockAppendsMovement(t *testing.T) {
	t.Parallel()
	svc, gormDB := newTestService(t)
	ctx := context.Background()
	productID := seedProduct(t, gormDB, 5)

	movement, err := svc.Adjust(ctx, AdjustInput{
		ProductID: productID,
		Delta:     12,
		Reason:    enums.StockMovementReasonRestock,
	})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if movement.ResultingStock != 17 {
		t.Fatalf("expected resulting stock 17, got %d", movement.ResultingStock)
	}

	var product models.Product
	if err := gormDB.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if product.Stock != 17 || product.TotalSold != 0 {
		t.Fatalf("unexpected product state: stock=%d sold=%d", product.Stock, product.TotalSold)
	}
}

func TestAdjustRejectsNegativeStock(t *testing.T) {
	t.Parallel()
	svc, gormDB := newTestService(t)
	ctx := context.Background()
	productID := seedProduct(t, gormDB, 3)

	_, err := svc.Adjust(ctx, AdjustInput{
		ProductID: productID,
		Delta:     -5,
		Reason:    enums.StockMovementReasonAdjustment,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// the rejected adjustment must leave no trace
	var product models.Product
	if err := gormDB.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if product.Stock != 3 {
		t.Fatalf("stock must be untouched, got %d", product.Stock)
	}
	var count int64
	if err := gormDB.Model(&models.StockMovement{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no audit rows, got %d", count)
	}
}

func TestAdjustExactDepletionAllowed(t *testing.T) {
	t.Parallel()
	svc, gormDB := newTestService(t)
	ctx := context.Background()
	productID := seedProduct(t, gormDB, 4)

	movement, err := svc.Adjust(ctx, AdjustInput{
		ProductID: productID,
		Delta:     -4,
		Reason:    enums.StockMovementReasonSale,
	})
	if err != nil {
		t.Fatalf("adjust to zero must succeed: %v", err)
	}
	if movement.ResultingStock != 0 {
		t.Fatalf("expected stock 0, got %d", movement.ResultingStock)
	}

	var product models.Product
	if err := gormDB.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if product.TotalSold != 4 {
		t.Fatalf("sale reason must advance total_sold, got %d", product.TotalSold)
	}
}

func TestAdjustUnknownProduct(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)
	_, err := svc.Adjust(context.Background(), AdjustInput{
		ProductID: uuid.New(),
		Delta:     1,
		Reason:    enums.StockMovementReasonRestock,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDecrementForSaleTxRollsBackWithCaller(t *testing.T) {
	t.Parallel()
	svc, gormDB := newTestService(t)
	ctx := context.Background()
	productID := seedProduct(t, gormDB, 10)

	boom := gorm.ErrInvalidData
	err := gormDB.Transaction(func(tx *gorm.DB) error {
		if err := svc.DecrementForSaleTx(ctx, tx, productID, 4, uuid.New()); err != nil {
			return err
		}
		return boom
	})
	if err == nil {
		t.Fatalf("expected transaction error")
	}

	var product models.Product
	if err := gormDB.First(&product, "id = ?", productID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if product.Stock != 10 || product.TotalSold != 0 {
		t.Fatalf("rollback must restore stock, got stock=%d sold=%d", product.Stock, product.TotalSold)
	}
}

func TestLowStockProjection(t *testing.T) {
	t.Parallel()
	svc, gormDB := newTestService(t)
	ctx := context.Background()

	low := models.Product{ID: uuid.New(), Barcode: "low", Name: "Pilas", Price: decimal.New(1, 0), Stock: 1, MinStock: 5}
	ok := models.Product{ID: uuid.New(), Barcode: "ok", Name: "Cuadernos", Price: decimal.New(1, 0), Stock: 50, MinStock: 5}
	for _, p := range []*models.Product{&low, &ok} {
		p.IsActive = true
		if err := gormDB.Create(p).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	products, err := svc.LowStock(ctx)
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(products) != 1 || products[0].ID != low.ID {
		t.Fatalf("expected only the low product, got %d", len(products))
	}
}

func TestMovementsNewestFirst(t *testing.T) {
	t.Parallel()
	svc, gormDB := newTestService(t)
	ctx := context.Background()
	productID := seedProduct(t, gormDB, 0)

	for _, delta := range []int{5, 3} {
		if _, err := svc.Adjust(ctx, AdjustInput{ProductID: productID, Delta: delta, Reason: enums.StockMovementReasonRestock}); err != nil {
			t.Fatalf("adjust: %v", err)
		}
	}

	movements, err := svc.Movements(ctx, productID, 10)
	if err != nil {
		t.Fatalf("movements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(movements))
	}
	if movements[0].ResultingStock != 8 {
		t.Fatalf("expected newest first, got %+v", movements[0])
	}
}
