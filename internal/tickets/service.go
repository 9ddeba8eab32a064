package tickets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/renatoqp/puntoventa-backend/internal/catalog"
	"github.com/renatoqp/puntoventa-backend/internal/promotions"
	"github.com/renatoqp/puntoventa-backend/internal/sales"
	"github.com/renatoqp/puntoventa-backend/pkg/clock"
	"github.com/renatoqp/puntoventa-backend/pkg/config"
	dbpkg "github.com/renatoqp/puntoventa-backend/pkg/db"
	"github.com/renatoqp/puntoventa-backend/pkg/db/models"
	"github.com/renatoqp/puntoventa-backend/pkg/enums"
	pkgerrors "github.com/renatoqp/puntoventa-backend/pkg/errors"
	"github.com/renatoqp/puntoventa-backend/pkg/logger"
	"github.com/renatoqp/puntoventa-backend/pkg/metrics"
	"github.com/renatoqp/puntoventa-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type customerLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type stockDecrementer interface {
	DecrementForSaleTx(ctx context.Context, tx *gorm.DB, productID uuid.UUID, quantity int, saleID uuid.UUID) error
}

type pointsLedger interface {
	PointsForAmountTx(ctx context.Context, tx *gorm.DB, amount decimal.Decimal) (int, error)
	GrantForSaleTx(ctx context.Context, tx *gorm.DB, customerID uuid.UUID, points int, saleID uuid.UUID) (*models.PointsTransaction, error)
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns the ticket lifecycle, from the first scanned line to the
// committed sale.
type Service interface {
	Create(ctx context.Context, customerID *uuid.UUID) (*models.Ticket, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	List(ctx context.Context, status *enums.TicketStatus, limit int) ([]models.Ticket, error)
	AddLine(ctx context.Context, ticketID, productID uuid.UUID, quantity int) (*models.Ticket, error)
	UpdateLineQuantity(ctx context.Context, ticketID, lineID uuid.UUID, quantity int) (*models.Ticket, error)
	RemoveLine(ctx context.Context, ticketID, lineID uuid.UUID) (*models.Ticket, error)
	AssignCustomer(ctx context.Context, ticketID uuid.UUID, customerID *uuid.UUID) (*models.Ticket, error)
	SetObservations(ctx context.Context, ticketID uuid.UUID, observations *string) (*models.Ticket, error)
	Delete(ctx context.Context, ticketID uuid.UUID) error
	Checkout(ctx context.Context, input CheckoutInput) (*models.Sale, error)
}

type service struct {
	repo       *Repository
	tx         txRunner
	products   catalog.ProductRepository
	customers  customerLoader
	promoRepo  *promotions.Repository
	engine     promotions.Engine
	stock      stockDecrementer
	points     pointsLedger
	salesRepo  *sales.Repository
	events     eventEmitter
	salesMx    *metrics.SalesMetrics
	clk        clock.Clock
	salesCfg   config.Sales
	logg       *logger.Logger
}

// ServiceDeps wires the checkout pipeline. Metrics and logger are optional.
type ServiceDeps struct {
	Repo      *Repository
	Tx        txRunner
	Products  catalog.ProductRepository
	Customers customerLoader
	PromoRepo *promotions.Repository
	Engine    promotions.Engine
	Stock     stockDecrementer
	Points    pointsLedger
	SalesRepo *sales.Repository
	Events    eventEmitter
	Metrics   *metrics.SalesMetrics
	Clock     clock.Clock
	SalesCfg  config.Sales
	Logger    *logger.Logger
}

// NewService builds the ticket service.
func NewService(deps ServiceDeps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("ticket repository required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if deps.Customers == nil {
		return nil, fmt.Errorf("customer loader required")
	}
	if deps.PromoRepo == nil {
		return nil, fmt.Errorf("promotion repository required")
	}
	if deps.Stock == nil {
		return nil, fmt.Errorf("stock decrementer required")
	}
	if deps.Points == nil {
		return nil, fmt.Errorf("points ledger required")
	}
	if deps.SalesRepo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if deps.Events == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	if deps.Clock == nil {
		deps.Clock = clock.System()
	}
	return &service{
		repo:      deps.Repo,
		tx:        deps.Tx,
		products:  deps.Products,
		customers: deps.Customers,
		promoRepo: deps.PromoRepo,
		engine:    deps.Engine,
		stock:     deps.Stock,
		points:    deps.Points,
		salesRepo: deps.SalesRepo,
		events:    deps.Events,
		salesMx:   deps.Metrics,
		clk:       deps.Clock,
		salesCfg:  deps.SalesCfg,
		logg:      deps.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, customerID *uuid.UUID) (*models.Ticket, error) {
	ticket := &models.Ticket{ID: uuid.New(), Status: enums.TicketStatusOpen}
	if customerID != nil {
		if _, err := s.loadCustomer(ctx, *customerID); err != nil {
			return nil, err
		}
		ticket.CustomerID = customerID
	}
	created, err := s.repo.Create(ctx, ticket)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ticket")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Ticket, error) {
	ticket, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ticket")
	}
	return ticket, nil
}

func (s *service) List(ctx context.Context, status *enums.TicketStatus, limit int) ([]models.Ticket, error) {
	tickets, err := s.repo.List(ctx, status, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tickets")
	}
	return tickets, nil
}

// AddLine appends a product at the current catalog price, merging quantity
// into an existing line of the same product. The snapshot survives later
// price changes.
func (s *service) AddLine(ctx context.Context, ticketID, productID uuid.UUID, quantity int) (*models.Ticket, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ticket, err := s.loadOpenTicket(ctx, repo, ticketID)
		if err != nil {
			return err
		}

		product, err := s.products.WithTx(tx).FindByID(ctx, productID)
		if err != nil {
			if dbpkg.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !product.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "product is not available")
		}

		for i := range ticket.Lines {
			line := &ticket.Lines[i]
			if line.ProductID == productID {
				line.Quantity += quantity
				line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
				if err := repo.UpdateLine(ctx, line); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "merge line quantity")
				}
				return nil
			}
		}

		line := &models.TicketLine{
			TicketID:    ticket.ID,
			ProductID:   product.ID,
			ProductName: product.Name,
			UnitPrice:   product.Price,
			Quantity:    quantity,
			Subtotal:    product.Price.Mul(decimal.NewFromInt(int64(quantity))),
			Position:    nextPosition(ticket.Lines),
		}
		if err := repo.InsertLine(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert line")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ticketID)
}

// nextPosition keeps positions unique after removals: gaps stay, the new
// line always sorts last.
func nextPosition(lines []models.TicketLine) int {
	next := 0
	for _, line := range lines {
		if line.Position >= next {
			next = line.Position + 1
		}
	}
	return next
}

// UpdateLineQuantity sets the line to an absolute quantity. Setting the same
// quantity twice is a no-op; zero removes the line.
func (s *service) UpdateLineQuantity(ctx context.Context, ticketID, lineID uuid.UUID, quantity int) (*models.Ticket, error) {
	if quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ticket, err := s.loadOpenTicket(ctx, repo, ticketID)
		if err != nil {
			return err
		}

		var line *models.TicketLine
		for i := range ticket.Lines {
			if ticket.Lines[i].ID == lineID {
				line = &ticket.Lines[i]
				break
			}
		}
		if line == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "line not found")
		}

		if quantity == 0 {
			if err := repo.DeleteLine(ctx, lineID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove line")
			}
			return nil
		}

		line.Quantity = quantity
		line.Subtotal = line.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
		if err := repo.UpdateLine(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update line")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ticketID)
}

func (s *service) RemoveLine(ctx context.Context, ticketID, lineID uuid.UUID) (*models.Ticket, error) {
	return s.UpdateLineQuantity(ctx, ticketID, lineID, 0)
}

func (s *service) AssignCustomer(ctx context.Context, ticketID uuid.UUID, customerID *uuid.UUID) (*models.Ticket, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ticket, err := s.loadOpenTicket(ctx, repo, ticketID)
		if err != nil {
			return err
		}
		if customerID != nil {
			if _, err := s.loadCustomer(ctx, *customerID); err != nil {
				return err
			}
		}
		ticket.CustomerID = customerID
		if err := repo.Save(ctx, ticket); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign customer")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ticketID)
}

func (s *service) SetObservations(ctx context.Context, ticketID uuid.UUID, observations *string) (*models.Ticket, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ticket, err := s.loadOpenTicket(ctx, repo, ticketID)
		if err != nil {
			return err
		}
		ticket.Observations = observations
		if err := repo.Save(ctx, ticket); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set observations")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, ticketID)
}

// Delete soft-deletes an open ticket. Paid tickets are immutable.
func (s *service) Delete(ctx context.Context, ticketID uuid.UUID) error {
	ticket, err := s.Get(ctx, ticketID)
	if err != nil {
		return err
	}
	if ticket.Status != enums.TicketStatusOpen {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only open tickets can be deleted").
			WithDetails(map[string]any{"status": ticket.Status.String()})
	}
	ok, err := s.repo.TransitionStatus(ctx, ticketID, enums.TicketStatusOpen, enums.TicketStatusDeleted)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete ticket")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "ticket changed state concurrently")
	}
	return nil
}

// CheckoutInput is the payload that turns an open ticket into a sale.
type CheckoutInput struct {
	TicketID      uuid.UUID
	PaymentMethod string
}

// Checkout runs the full sale pipeline inside one transaction: promotion
// evaluation, totals, stock decrements, points grant, usage counters, sale
// persistence and the outbox event. Any failure rolls everything back.
func (s *service) Checkout(ctx context.Context, input CheckoutInput) (*models.Sale, error) {
	method, parseErr := enums.ParsePaymentMethod(strings.TrimSpace(input.PaymentMethod))
	if parseErr != nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidPaymentMethod, "unknown payment method").
			WithDetails(map[string]any{"payment_method": input.PaymentMethod})
	}

	started := s.clk.Now()
	var sale *models.Sale
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ticket, err := s.loadOpenTicket(ctx, repo, input.TicketID)
		if err != nil {
			return err
		}
		if len(ticket.Lines) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyTicket, "ticket has no lines")
		}

		now := s.clk.Now()
		candidates, err := s.promoRepo.WithTx(tx).ListActive(ctx, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotions")
		}
		evaluation := s.engine.Evaluate(ticket.Lines, ticket.Customer, now, candidates)

		subtotal := ticket.Subtotal()
		discount := evaluation.Discount
		taxableBase := subtotal.Sub(discount)
		tax := taxableBase.Mul(s.salesCfg.TaxRate).Round(2)
		total := taxableBase.Add(tax)

		sale = &models.Sale{
			ID:            uuid.New(),
			TicketID:      ticket.ID,
			CustomerID:    ticket.CustomerID,
			PaymentMethod: method,
			Subtotal:      subtotal,
			Discount:      discount,
			Tax:           tax,
			Total:         total,
		}
		for _, line := range ticket.Lines {
			sale.Lines = append(sale.Lines, models.SaleLine{
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				UnitPrice:   line.UnitPrice,
				Quantity:    line.Quantity,
				Subtotal:    line.Subtotal,
			})
		}

		// points eligibility needs the product flags, loaded in the same tx
		productRepo := s.products.WithTx(tx)
		eligibleSubtotal := decimal.Zero
		for _, line := range ticket.Lines {
			product, err := productRepo.FindByID(ctx, line.ProductID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load line product")
			}
			if product.EnablesPoints && !product.Bonified {
				eligibleSubtotal = eligibleSubtotal.Add(line.Subtotal)
			}
		}

		pointsToGrant := 0
		if ticket.CustomerID != nil && eligibleSubtotal.GreaterThan(decimal.Zero) {
			eligibleTotal := total.Mul(eligibleSubtotal).Div(subtotal)
			pointsToGrant, err = s.points.PointsForAmountTx(ctx, tx, eligibleTotal)
			if err != nil {
				return err
			}
		}
		sale.PointsGranted = pointsToGrant

		if err := s.salesRepo.CreateTx(ctx, tx, sale); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist sale")
		}

		for _, line := range ticket.Lines {
			if err := s.stock.DecrementForSaleTx(ctx, tx, line.ProductID, line.Quantity, sale.ID); err != nil {
				return err
			}
		}

		var grant *models.PointsTransaction
		if pointsToGrant > 0 {
			grant, err = s.points.GrantForSaleTx(ctx, tx, *ticket.CustomerID, pointsToGrant, sale.ID)
			if err != nil {
				return err
			}
		}

		promoTx := s.promoRepo.WithTx(tx)
		for _, applied := range evaluation.Applied {
			ok, err := promoTx.IncrementUsage(ctx, applied.PromotionID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment promotion usage")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodePromotionUsageExceeded, "promotion usage cap reached").
					WithDetails(map[string]any{"promotion_id": applied.PromotionID})
			}
		}

		transitioned, err := repo.TransitionStatus(ctx, ticket.ID, enums.TicketStatusOpen, enums.TicketStatusPaid)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark ticket paid")
		}
		if !transitioned {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "ticket changed state concurrently")
		}

		if err := s.emitSaleCompleted(ctx, tx, sale, now); err != nil {
			return err
		}
		if grant != nil {
			if err := s.emitPointsGranted(ctx, tx, sale, grant); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.salesMx.IncCheckoutFailure(failureReason(err))
		return nil, err
	}

	s.salesMx.IncCheckoutSuccess(method.String())
	s.salesMx.ObserveCheckout(method.String(), s.clk.Now().Sub(started))
	s.salesMx.AddPointsGranted(sale.PointsGranted)
	if s.logg != nil {
		fields := map[string]any{
			"sale_id":        sale.ID.String(),
			"ticket_id":      sale.TicketID.String(),
			"total":          sale.Total.String(),
			"discount":       sale.Discount.String(),
			"points_granted": sale.PointsGranted,
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "sale committed")
	}
	return sale, nil
}

func (s *service) emitSaleCompleted(ctx context.Context, tx *gorm.DB, sale *models.Sale, now time.Time) error {
	payload := outbox.SaleCompletedPayload{
		SaleID:        sale.ID,
		TicketID:      sale.TicketID,
		CustomerID:    sale.CustomerID,
		PaymentMethod: sale.PaymentMethod.String(),
		Subtotal:      sale.Subtotal,
		Discount:      sale.Discount,
		Tax:           sale.Tax,
		Total:         sale.Total,
		CompletedAt:   now,
	}
	for _, line := range sale.Lines {
		payload.Lines = append(payload.Lines, outbox.SaleCompletedLine{
			ProductID: line.ProductID,
			Name:      line.ProductName,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			Subtotal:  line.Subtotal,
		})
	}
	err := s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventSaleCompleted,
		AggregateType: enums.AggregateSale,
		AggregateID:   sale.ID,
		Data:          payload,
		Version:       1,
		OccurredAt:    now,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit sale event")
	}
	return nil
}

func (s *service) emitPointsGranted(ctx context.Context, tx *gorm.DB, sale *models.Sale, grant *models.PointsTransaction) error {
	err := s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventPointsGranted,
		AggregateType: enums.AggregatePointsAccount,
		AggregateID:   grant.CustomerID,
		Data: outbox.PointsGrantedPayload{
			CustomerID: grant.CustomerID,
			SaleID:     &sale.ID,
			Points:     grant.Points,
			Reason:     grant.Reason.String(),
			ExpiresAt:  grant.ExpiresAt,
		},
		Version:    1,
		OccurredAt: grant.CreatedAt,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit points event")
	}
	return nil
}

func (s *service) loadOpenTicket(ctx context.Context, repo *Repository, ticketID uuid.UUID) (*models.Ticket, error) {
	ticket, err := repo.FindByID(ctx, ticketID)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ticket")
	}
	if ticket.Status != enums.TicketStatusOpen {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "ticket is not open").
			WithDetails(map[string]any{"status": ticket.Status.String()})
	}
	return ticket, nil
}

func (s *service) loadCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.customers.FindByID(ctx, id)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return customer, nil
}

func failureReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return strings.ToLower(string(typed.Code()))
	}
	return "internal"
}
