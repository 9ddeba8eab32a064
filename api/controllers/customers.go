package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/renatoqp/puntoventa-backend/api/responses"
	"github.com/renatoqp/puntoventa-backend/api/validators"
	"github.com/renatoqp/puntoventa-backend/internal/customers"
	pkgerrors "github.com/renatoqp/puntoventa-backend/pkg/errors"
	"github.com/renatoqp/puntoventa-backend/pkg/logger"
)

type registerCustomerRequest struct {
	Document  string  `json:"document" validate:"required"`
	FirstName string  `json:"first_name" validate:"required"`
	LastName  string  `json:"last_name"`
	Phone     *string `json:"phone,omitempty"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	BirthDate *string `json:"birth_date,omitempty"`
}

func RegisterCustomer(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload registerCustomerRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var birthDate *time.Time
		if payload.BirthDate != nil {
			parsed, err := time.Parse("2006-01-02", strings.TrimSpace(*payload.BirthDate))
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "birth date must be YYYY-MM-DD"))
				return
			}
			birthDate = &parsed
		}

		customer, err := svc.Register(r.Context(), customers.RegisterInput{
			Document:  payload.Document,
			FirstName: payload.FirstName,
			LastName:  payload.LastName,
			Phone:     payload.Phone,
			Email:     payload.Email,
			BirthDate: birthDate,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, customer)
	}
}

func GetCustomer(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		customer, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}

// GetCustomerByDocument looks up a customer by DNI or RUC, the usual flow at
// the register.
func GetCustomerByDocument(svc customers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		document := strings.TrimSpace(r.URL.Query().Get("document"))
		customer, err := svc.GetByDocument(r.Context(), document)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, customer)
	}
}
