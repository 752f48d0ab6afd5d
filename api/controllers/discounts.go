package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/martello/marketplace-backend/api/responses"
	"github.com/martello/marketplace-backend/api/validators"
	"github.com/martello/marketplace-backend/internal/discounts"
	"github.com/martello/marketplace-backend/pkg/enums"
	pkgerrors "github.com/martello/marketplace-backend/pkg/errors"
	"github.com/martello/marketplace-backend/pkg/logger"
)

type createDiscountRequest struct {
	Code           string  `json:"code" validate:"required"`
	Description    *string `json:"description,omitempty"`
	Type           string  `json:"type" validate:"required,oneof=percentage fixed"`
	Value          string  `json:"value" validate:"required"`
	MinOrderAmount *string `json:"min_order_amount,omitempty"`
	UsageLimit     int     `json:"usage_limit" validate:"min=0"`
	StartsAt       string  `json:"starts_at" validate:"required"`
	EndsAt         string  `json:"ends_at" validate:"required"`
	ProductID      *string `json:"product_id,omitempty" validate:"omitempty,uuid"`
	CategoryID     *string `json:"category_id,omitempty" validate:"omitempty,uuid"`
	VendorID       *string `json:"vendor_id,omitempty" validate:"omitempty,uuid"`
}

type updateDiscountRequest struct {
	Description    *string `json:"description,omitempty"`
	Value          *string `json:"value,omitempty"`
	MinOrderAmount *string `json:"min_order_amount,omitempty"`
	UsageLimit     *int    `json:"usage_limit,omitempty" validate:"omitempty,min=0"`
	StartsAt       *string `json:"starts_at,omitempty"`
	EndsAt         *string `json:"ends_at,omitempty"`
	IsActive       *bool   `json:"is_active,omitempty"`
}

// ResolveDiscount validates a code for checkout preview.
func ResolveDiscount(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(chi.URLParam(r, "code"))
		discount, err := svc.ResolveByCode(r.Context(), code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, discount)
	}
}

// ApplicableDiscounts lists the active codes covering a product.
func ApplicableDiscounts(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := discounts.ApplicableFilter{}
		var err error
		if filter.ProductID, err = validators.ParseQueryUUID(r, "product_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.CategoryID, err = validators.ParseQueryUUID(r, "category_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if filter.VendorID, err = validators.ParseQueryUUID(r, "vendor_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ApplicableFor(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"discounts": rows})
	}
}

func AdminListDiscounts(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"discounts": rows})
	}
}

func AdminCreateDiscount(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createDiscountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		discountType, err := enums.ParseDiscountType(req.Type)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid discount type"))
			return
		}
		value, err := parseDecimalField(req.Value, "value")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		startsAt, err := parseTimeField(req.StartsAt, "starts_at")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		endsAt, err := parseTimeField(req.EndsAt, "ends_at")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := discounts.CreateInput{
			Code:        req.Code,
			Description: req.Description,
			Type:        discountType,
			Value:       value,
			UsageLimit:  req.UsageLimit,
			StartsAt:    startsAt,
			EndsAt:      endsAt,
		}
		if req.MinOrderAmount != nil {
			min, err := parseDecimalField(*req.MinOrderAmount, "min_order_amount")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.MinOrderAmount = &min
		}
		if req.ProductID != nil {
			id, err := parseUUIDField(*req.ProductID, "product_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.ProductID = &id
		}
		if req.CategoryID != nil {
			id, err := parseUUIDField(*req.CategoryID, "category_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.CategoryID = &id
		}
		if req.VendorID != nil {
			id, err := parseUUIDField(*req.VendorID, "vendor_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.VendorID = &id
		}

		discount, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, discount)
	}
}

func AdminUpdateDiscount(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		discountID, err := validators.ParseUUIDParam(r, "discountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateDiscountRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := discounts.UpdateInput{
			DiscountID:  discountID,
			Description: req.Description,
			UsageLimit:  req.UsageLimit,
			IsActive:    req.IsActive,
		}
		if req.Value != nil {
			value, err := parseDecimalField(*req.Value, "value")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Value = &value
		}
		if req.MinOrderAmount != nil {
			min, err := parseDecimalField(*req.MinOrderAmount, "min_order_amount")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.MinOrderAmount = &min
		}
		if req.StartsAt != nil {
			t, err := parseTimeField(*req.StartsAt, "starts_at")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.StartsAt = &t
		}
		if req.EndsAt != nil {
			t, err := parseTimeField(*req.EndsAt, "ends_at")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.EndsAt = &t
		}

		discount, err := svc.Update(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, discount)
	}
}

func AdminDeleteDiscount(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		discountID, err := validators.ParseUUIDParam(r, "discountId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), discountID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func parseTimeField(raw, field string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "field must be an RFC3339 timestamp").WithDetails(map[string]any{"field": field})
	}
	return t, nil
}
