package controllers

import (
	"net/http"
	"strings"

	"github.com/renatoqp/puntoventa-backend/api/responses"
	"github.com/renatoqp/puntoventa-backend/api/validators"
	"github.com/renatoqp/puntoventa-backend/internal/catalog"
	pkgerrors "github.com/renatoqp/puntoventa-backend/pkg/errors"
	"github.com/renatoqp/puntoventa-backend/pkg/logger"
)

type createProductRequest struct {
	Barcode       string  `json:"barcode" validate:"required"`
	Name          string  `json:"name" validate:"required"`
	Category      *string `json:"category,omitempty"`
	Price         string  `json:"price" validate:"required"`
	Cost          string  `json:"cost" validate:"required"`
	InitialStock  int     `json:"initial_stock" validate:"min=0"`
	MinStock      int     `json:"min_stock" validate:"min=0"`
	Bonified      bool    `json:"bonified"`
	EnablesPoints *bool   `json:"enables_points,omitempty"`
}

func CreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := parseMoney("price", payload.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cost, err := parseMoney("cost", payload.Cost)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		enablesPoints := true
		if payload.EnablesPoints != nil {
			enablesPoints = *payload.EnablesPoints
		}

		product, err := svc.CreateProduct(r.Context(), catalog.CreateProductInput{
			Barcode:       payload.Barcode,
			Name:          payload.Name,
			Category:      payload.Category,
			Price:         price,
			Cost:          cost,
			InitialStock:  payload.InitialStock,
			MinStock:      payload.MinStock,
			Bonified:      payload.Bonified,
			EnablesPoints: enablesPoints,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

type updateProductRequest struct {
	Name          *string `json:"name,omitempty"`
	Category      *string `json:"category,omitempty"`
	Price         *string `json:"price,omitempty"`
	Cost          *string `json:"cost,omitempty"`
	MinStock      *int    `json:"min_stock,omitempty" validate:"omitempty,min=0"`
	Bonified      *bool   `json:"bonified,omitempty"`
	EnablesPoints *bool   `json:"enables_points,omitempty"`
}

func UpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		price, err := parseOptionalMoney("price", payload.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cost, err := parseOptionalMoney("cost", payload.Cost)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), id, catalog.UpdateProductInput{
			Name:          payload.Name,
			Category:      payload.Category,
			Price:         price,
			Cost:          cost,
			MinStock:      payload.MinStock,
			Bonified:      payload.Bonified,
			EnablesPoints: payload.EnablesPoints,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func GetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// GetProductByBarcode is the scanner lookup at the register.
func GetProductByBarcode(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		barcode := strings.TrimSpace(r.URL.Query().Get("barcode"))
		if barcode == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "barcode query parameter required"))
			return
		}
		product, err := svc.GetByBarcode(r.Context(), barcode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := catalog.ListFilter{
			ActiveOnly: r.URL.Query().Get("include_inactive") != "true",
			Search:     strings.TrimSpace(r.URL.Query().Get("search")),
			Limit:      limit,
			Offset:     offset,
		}
		if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
			filter.Category = &category
		}

		products, err := svc.ListProducts(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

func DeactivateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeactivateProduct(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}

type bulkAdjustPricesRequest struct {
	Category *string `json:"category,omitempty"`
	Percent  string  `json:"percent" validate:"required"`
	Reason   string  `json:"reason" validate:"required"`
}

func BulkAdjustPrices(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload bulkAdjustPricesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		percent, err := parseMoney("percent", payload.Percent)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		adjusted, err := svc.BulkAdjustPrices(r.Context(), catalog.BulkAdjustPricesInput{
			Category: payload.Category,
			Percent:  percent,
			Reason:   payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"adjusted": adjusted})
	}
}
