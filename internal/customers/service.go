package customers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	dbpkg "github.com/renatoqp/puntoventa-backend/pkg/db"
	"github.com/renatoqp/puntoventa-backend/pkg/db/models"
	pkgerrors "github.com/renatoqp/puntoventa-backend/pkg/errors"
)

// Service exposes the customer surface the core consumes.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.Customer, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	GetByDocument(ctx context.Context, document string) (*models.Customer, error)
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	return &service{repo: repo}, nil
}

// RegisterInput captures a new customer. Document is the Peruvian DNI or RUC.
type RegisterInput struct {
	Document  string
	FirstName string
	LastName  string
	Phone     *string
	Email     *string
	BirthDate *time.Time
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.Customer, error) {
	if strings.TrimSpace(input.Document) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document is required")
	}
	if strings.TrimSpace(input.FirstName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first name is required")
	}

	customer := &models.Customer{
		ID:        uuid.New(),
		Document:  strings.TrimSpace(input.Document),
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Phone:     input.Phone,
		Email:     input.Email,
		BirthDate: input.BirthDate,
		IsActive:  true,
	}
	created, err := s.repo.Create(ctx, customer)
	if err != nil {
		if dbpkg.IsUniqueViolation(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "document already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return customer, nil
}

func (s *service) GetByDocument(ctx context.Context, document string) (*models.Customer, error) {
	if strings.TrimSpace(document) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "document is required")
	}
	customer, err := s.repo.FindByDocument(ctx, strings.TrimSpace(document))
	if err != nil {
		if dbpkg.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer by document")
	}
	return customer, nil
}
