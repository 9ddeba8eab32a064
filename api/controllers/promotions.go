package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/renatoqp/puntoventa-backend/api/responses"
	"github.com/renatoqp/puntoventa-backend/api/validators"
	"github.com/renatoqp/puntoventa-backend/internal/promotions"
	"github.com/renatoqp/puntoventa-backend/pkg/enums"
	pkgerrors "github.com/renatoqp/puntoventa-backend/pkg/errors"
	"github.com/renatoqp/puntoventa-backend/pkg/logger"
)

type promotionProductRef struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"omitempty,min=1"`
}

type promotionRequest struct {
	Name         string                `json:"name" validate:"required"`
	Type         string                `json:"type" validate:"required"`
	Value        string                `json:"value"`
	BuyQuantity  int                   `json:"buy_quantity" validate:"min=0"`
	GetQuantity  int                   `json:"get_quantity" validate:"min=0"`
	ComboPrice   *string               `json:"combo_price,omitempty"`
	MinAmount    *string               `json:"min_amount,omitempty"`
	AppliesToAll bool                  `json:"applies_to_all"`
	Products     []promotionProductRef `json:"products,omitempty"`
	Combinable   bool                  `json:"combinable"`
	StartDate    time.Time             `json:"start_date" validate:"required"`
	EndDate      time.Time             `json:"end_date" validate:"required"`
	MaxUsage     *int                  `json:"max_usage,omitempty" validate:"omitempty,min=1"`
}

func (p promotionRequest) toInput() (promotions.PromotionInput, error) {
	promoType, err := enums.ParsePromotionType(strings.TrimSpace(p.Type))
	if err != nil {
		return promotions.PromotionInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid promotion type")
	}

	value, err := parseMoney("value", valueOrZero(p.Value))
	if err != nil {
		return promotions.PromotionInput{}, err
	}
	comboPrice, err := parseOptionalMoney("combo_price", p.ComboPrice)
	if err != nil {
		return promotions.PromotionInput{}, err
	}
	minAmount, err := parseOptionalMoney("min_amount", p.MinAmount)
	if err != nil {
		return promotions.PromotionInput{}, err
	}

	refs := make([]promotions.ProductRef, 0, len(p.Products))
	for _, product := range p.Products {
		parsed, err := uuid.Parse(strings.TrimSpace(product.ProductID))
		if err != nil {
			return promotions.PromotionInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
		}
		quantity := product.Quantity
		if quantity == 0 {
			quantity = 1
		}
		refs = append(refs, promotions.ProductRef{ProductID: parsed, Quantity: quantity})
	}

	return promotions.PromotionInput{
		Name:         p.Name,
		Type:         promoType,
		Value:        value,
		BuyQuantity:  p.BuyQuantity,
		GetQuantity:  p.GetQuantity,
		ComboPrice:   comboPrice,
		MinAmount:    minAmount,
		AppliesToAll: p.AppliesToAll,
		ProductIDs:   refs,
		Combinable:   p.Combinable,
		StartDate:    p.StartDate,
		EndDate:      p.EndDate,
		MaxUsage:     p.MaxUsage,
	}, nil
}

func valueOrZero(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "0"
	}
	return raw
}

func CreatePromotion(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload promotionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		promo, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, promo)
	}
}

func UpdatePromotion(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "promotionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload promotionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		promo, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, promo)
	}
}

func GetPromotion(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "promotionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		promo, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, promo)
	}
}

func ListPromotions(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("active") == "true" {
			result, err := svc.ListActive(r.Context())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, result)
			return
		}
		result, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func DeactivatePromotion(svc promotions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "promotionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Deactivate(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deactivated"})
	}
}
