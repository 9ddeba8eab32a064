package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/renatoqp/puntoventa-backend/api/responses"
	"github.com/renatoqp/puntoventa-backend/api/validators"
	"github.com/renatoqp/puntoventa-backend/internal/points"
	"github.com/renatoqp/puntoventa-backend/pkg/enums"
	pkgerrors "github.com/renatoqp/puntoventa-backend/pkg/errors"
	"github.com/renatoqp/puntoventa-backend/pkg/logger"
)

type grantPointsRequest struct {
	CustomerID  string  `json:"customer_id" validate:"required"`
	Points      int     `json:"points" validate:"required,min=1"`
	Reason      string  `json:"reason" validate:"required"`
	Description *string `json:"description,omitempty"`
}

// GrantPoints is the manual grant endpoint: welcome bonuses, birthday
// bonuses, goodwill adjustments. Purchase grants happen inside checkout.
func GrantPoints(svc points.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload grantPointsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customerID, err := uuid.Parse(strings.TrimSpace(payload.CustomerID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id"))
			return
		}
		reason, err := enums.ParsePointsReason(strings.TrimSpace(payload.Reason))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid points reason"))
			return
		}

		entry, err := svc.Grant(r.Context(), points.GrantInput{
			CustomerID:  customerID,
			Points:      payload.Points,
			Reason:      reason,
			Description: payload.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

type redeemPointsRequest struct {
	CustomerID  string  `json:"customer_id" validate:"required"`
	Points      int     `json:"points" validate:"required,min=1"`
	Description *string `json:"description,omitempty"`
}

func RedeemPoints(svc points.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload redeemPointsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customerID, err := uuid.Parse(strings.TrimSpace(payload.CustomerID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid customer id"))
			return
		}

		entry, err := svc.Redeem(r.Context(), points.RedeemInput{
			CustomerID:  customerID,
			Points:      payload.Points,
			Description: payload.Description,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

func PointsBalance(svc points.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := pathUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balance, err := svc.Balance(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"customer_id": customerID,
			"balance":     balance,
		})
	}
}

func PointsHistory(svc points.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := pathUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := svc.History(r.Context(), customerID, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}

func GetPointsSettings(svc points.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings, err := svc.GetSettings(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settings)
	}
}

type pointsSettingsRequest struct {
	SolsPerPoint        string `json:"sols_per_point" validate:"required"`
	PointValue          string `json:"point_value" validate:"required"`
	MinimumRedeemPoints int    `json:"minimum_redeem_points" validate:"min=0"`
	ExpiryDays          int    `json:"expiry_days" validate:"min=0"`
	WelcomeBonus        int    `json:"welcome_bonus" validate:"min=0"`
	BirthdayBonus       int    `json:"birthday_bonus" validate:"min=0"`
	ReferralBonus       int    `json:"referral_bonus" validate:"min=0"`
	Enabled             bool   `json:"enabled"`
}

func UpdatePointsSettings(svc points.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload pointsSettingsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		solsPerPoint, err := parseMoney("sols_per_point", payload.SolsPerPoint)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pointValue, err := parseMoney("point_value", payload.PointValue)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		settings, err := svc.UpdateSettings(r.Context(), points.SettingsInput{
			SolsPerPoint:        solsPerPoint,
			PointValue:          pointValue,
			MinimumRedeemPoints: payload.MinimumRedeemPoints,
			ExpiryDays:          payload.ExpiryDays,
			WelcomeBonus:        payload.WelcomeBonus,
			BirthdayBonus:       payload.BirthdayBonus,
			ReferralBonus:       payload.ReferralBonus,
			Enabled:             payload.Enabled,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settings)
	}
}
