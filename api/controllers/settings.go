package controllers

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/suyogshakya/khajaghar-backend/api/responses"
	"github.com/suyogshakya/khajaghar-backend/api/validators"
	settingssvc "github.com/suyogshakya/khajaghar-backend/internal/settings"
	"github.com/suyogshakya/khajaghar-backend/pkg/db/models"
	pkgerrors "github.com/suyogshakya/khajaghar-backend/pkg/errors"
	"github.com/suyogshakya/khajaghar-backend/pkg/logger"
)

// SettingsGet returns the shop settings used by checkout pricing.
func SettingsGet(svc settingssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		setting, err := svc.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSettingResponse(setting))
	}
}

type updateSettingsRequest struct {
	TaxRate         *string `json:"tax_rate"`
	DeliveryEnabled *bool   `json:"delivery_enabled"`
	DeliveryCharge  *string `json:"delivery_charge"`
}

// SettingsUpdate partially updates shop settings. Admin only.
func SettingsUpdate(svc settingssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settings service unavailable"))
			return
		}

		var payload updateSettingsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := settingssvc.UpdateInput{DeliveryEnabled: payload.DeliveryEnabled}
		if payload.TaxRate != nil {
			rate, err := decimal.NewFromString(*payload.TaxRate)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid tax rate"))
				return
			}
			input.TaxRate = &rate
		}
		if payload.DeliveryCharge != nil {
			charge, err := decimal.NewFromString(*payload.DeliveryCharge)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery charge"))
				return
			}
			input.DeliveryCharge = &charge
		}

		setting, err := svc.Update(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSettingResponse(setting))
	}
}

type settingResponse struct {
	TaxRate         string    `json:"tax_rate"`
	DeliveryEnabled bool      `json:"delivery_enabled"`
	DeliveryCharge  string    `json:"delivery_charge"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func newSettingResponse(setting *models.ShopSetting) settingResponse {
	return settingResponse{
		TaxRate:         setting.TaxRate.String(),
		DeliveryEnabled: setting.DeliveryEnabled,
		DeliveryCharge:  setting.DeliveryCharge.StringFixed(2),
		UpdatedAt:       setting.UpdatedAt,
	}
}
