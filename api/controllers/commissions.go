package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/martello/marketplace-backend/api/middleware"
	"github.com/martello/marketplace-backend/api/responses"
	"github.com/martello/marketplace-backend/api/validators"
	"github.com/martello/marketplace-backend/internal/commissions"
	pkgerrors "github.com/martello/marketplace-backend/pkg/errors"
	"github.com/martello/marketplace-backend/pkg/logger"
)

type setRateRequest struct {
	VendorID    *string `json:"vendor_id,omitempty" validate:"omitempty,uuid"`
	CategoryID  *string `json:"category_id,omitempty" validate:"omitempty,uuid"`
	RatePercent string  `json:"rate_percent" validate:"required"`
	Description *string `json:"description,omitempty"`
	IsActive    *bool   `json:"is_active,omitempty"`
}

func vendorIDFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.VendorIDFromContext(r.Context())
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
	}
	return id, nil
}

// VendorCommissions lists the ledger rows of the calling vendor.
func VendorCommissions(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, next, err := svc.ListVendorCommissions(r.Context(), vendorID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"commissions": rows, "next_cursor": next})
	}
}

// VendorEarnings reports the pending payout balance.
func VendorEarnings(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pending, err := svc.VendorPendingEarnings(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"pending_earnings": pending})
	}
}

func AdminSetCommissionRate(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setRateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rate, err := parseDecimalField(req.RatePercent, "rate_percent")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := commissions.SetRateInput{
			RatePercent: rate,
			Description: req.Description,
			IsActive:    req.IsActive,
		}
		if req.VendorID != nil {
			id, err := parseUUIDField(*req.VendorID, "vendor_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.VendorID = &id
		}
		if req.CategoryID != nil {
			id, err := parseUUIDField(*req.CategoryID, "category_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.CategoryID = &id
		}

		saved, err := svc.SetRate(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, saved)
	}
}

func AdminListCommissionRates(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListRates(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"rates": rows})
	}
}

// AdminPayCommission settles a pending ledger row.
func AdminPayCommission(svc commissions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		commissionID, err := validators.ParseUUIDParam(r, "commissionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		commission, err := svc.ProcessPayment(r.Context(), commissionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, commission)
	}
}
