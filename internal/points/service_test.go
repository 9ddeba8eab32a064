package points

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/renatoqp/puntoventa-backend/pkg/clock"
	"github.com/renatoqp/puntoventa-backend/pkg/config"
	dbpkg "github.com/renatoqp/puntoventa-backend/pkg/db"
	"github.com/renatoqp/puntoventa-backend/pkg/db/models"
	"github.com/renatoqp/puntoventa-backend/pkg/enums"
	pkgerrors "github.com/renatoqp/puntoventa-backend/pkg/errors"
)

var testNow = time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)

func testDefaults() config.Points {
	return config.Points{
		SolsPerPoint:        decimal.RequireFromString("10"),
		PointValue:          decimal.RequireFromString("0.10"),
		MinimumRedeemPoints: 100,
		ExpiryDays:          365,
	}
}

func newTestService(t *testing.T, defaults config.Points) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:points_" + uuid.NewString() + "?mode=memory&cache=shared"
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gormDB.AutoMigrate(&models.PointsTransaction{}, &models.PointsSettings{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(gormDB), dbpkg.FromGorm(gormDB), clock.Fixed(testNow), defaults)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, gormDB
}

func TestGrantStampsExpiry(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, testDefaults())
	ctx := context.Background()
	customerID := uuid.New()

	entry, err := svc.Grant(ctx, GrantInput{
		CustomerID: customerID,
		Points:     30,
		Reason:     enums.PointsReasonWelcome,
	})
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if entry.ExpiresAt == nil {
		t.Fatalf("expected expiry stamp")
	}
	want := testNow.AddDate(0, 0, 365)
	if !entry.ExpiresAt.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, entry.ExpiresAt)
	}

	balance, err := svc.Balance(ctx, customerID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 30 {
		t.Fatalf("expected balance 30, got %d", balance)
	}
}

func TestRedeemBelowProgramMinimum(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, testDefaults())
	ctx := context.Background()
	customerID := uuid.New()

	if _, err := svc.Grant(ctx, GrantInput{CustomerID: customerID, Points: 80, Reason: enums.PointsReasonPurchase}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	// balance 80, minimum 100: hard error even though points <= balance
	_, err := svc.Redeem(ctx, RedeemInput{CustomerID: customerID, Points: 80})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeBelowMinimumRedeem {
		t.Fatalf("expected below-minimum error, got %v", err)
	}

	balance, err := svc.Balance(ctx, customerID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 80 {
		t.Fatalf("failed redeem must not touch the ledger, got %d", balance)
	}
}

func TestRedeemInsufficientBalance(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, testDefaults())
	ctx := context.Background()
	customerID := uuid.New()

	if _, err := svc.Grant(ctx, GrantInput{CustomerID: customerID, Points: 120, Reason: enums.PointsReasonPurchase}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	_, err := svc.Redeem(ctx, RedeemInput{CustomerID: customerID, Points: 150})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeInsufficientPoints {
		t.Fatalf("expected insufficient points, got %v", err)
	}
}

func TestRedeemAppendsEntry(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, testDefaults())
	ctx := context.Background()
	customerID := uuid.New()

	if _, err := svc.Grant(ctx, GrantInput{CustomerID: customerID, Points: 250, Reason: enums.PointsReasonPurchase}); err != nil {
		t.Fatalf("grant: %v", err)
	}
	entry, err := svc.Redeem(ctx, RedeemInput{CustomerID: customerID, Points: 100})
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if entry.Type != enums.PointsTransactionTypeRedeem || entry.Points != 100 {
		t.Fatalf("unexpected redeem entry %+v", entry)
	}

	balance, _ := svc.Balance(ctx, customerID)
	if balance != 150 {
		t.Fatalf("expected balance 150, got %d", balance)
	}

	history, err := svc.History(ctx, customerID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("ledger must keep both entries, got %d", len(history))
	}
}

func TestBalanceExcludesExpiredAdds(t *testing.T) {
	t.Parallel()
	svc, gormDB := newTestService(t, testDefaults())
	ctx := context.Background()
	customerID := uuid.New()

	expired := testNow.AddDate(0, 0, -1)
	stale := models.PointsTransaction{
		ID:         uuid.New(),
		CustomerID: customerID,
		Type:       enums.PointsTransactionTypeAdd,
		Points:     500,
		Reason:     enums.PointsReasonPurchase,
		ExpiresAt:  &expired,
	}
	if err := gormDB.Create(&stale).Error; err != nil {
		t.Fatalf("seed expired entry: %v", err)
	}
	if _, err := svc.Grant(ctx, GrantInput{CustomerID: customerID, Points: 40, Reason: enums.PointsReasonPurchase}); err != nil {
		t.Fatalf("grant: %v", err)
	}

	balance, err := svc.Balance(ctx, customerID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 40 {
		t.Fatalf("expired adds must not count, got %d", balance)
	}

	// the expired entry stays in the ledger
	history, _ := svc.History(ctx, customerID, 10)
	if len(history) != 2 {
		t.Fatalf("expired entries are never deleted, got %d rows", len(history))
	}
}

func TestPointsForAmountFloors(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, testDefaults())
	ctx := context.Background()

	points, err := svc.PointsForAmount(ctx, decimal.RequireFromString("118.00"))
	if err != nil {
		t.Fatalf("points for amount: %v", err)
	}
	if points != 11 {
		t.Fatalf("expected floor(118/10) = 11, got %d", points)
	}
}

func TestPointsForAmountDisabledProgram(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t, testDefaults())
	ctx := context.Background()

	settings, err := svc.GetSettings(ctx)
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	_, err = svc.UpdateSettings(ctx, SettingsInput{
		SolsPerPoint:        settings.SolsPerPoint,
		PointValue:          settings.PointValue,
		MinimumRedeemPoints: settings.MinimumRedeemPoints,
		ExpiryDays:          settings.ExpiryDays,
		Enabled:             false,
	})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}

	points, err := svc.PointsForAmount(ctx, decimal.RequireFromString("500.00"))
	if err != nil {
		t.Fatalf("points for amount: %v", err)
	}
	if points != 0 {
		t.Fatalf("disabled program must grant nothing, got %d", points)
	}
}

func TestSettingsSeededFromDefaults(t *testing.T) {
	t.Parallel()
	defaults := testDefaults()
	defaults.WelcomeBonus = 25
	defaults.BirthdayBonus = 50
	defaults.ReferralBonus = 75

	svc, _ := newTestService(t, defaults)
	settings, err := svc.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings.MinimumRedeemPoints != 100 || settings.ExpiryDays != 365 || !settings.Enabled {
		t.Fatalf("unexpected seeded settings %+v", settings)
	}
	if settings.WelcomeBonus != 25 || settings.BirthdayBonus != 50 || settings.ReferralBonus != 75 {
		t.Fatalf("bonus defaults must survive the seed, got %+v", settings)
	}
}
