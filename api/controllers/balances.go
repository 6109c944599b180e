package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/auricsoft/jewelstock-backend/api/responses"
	"github.com/auricsoft/jewelstock-backend/api/validators"
	"github.com/auricsoft/jewelstock-backend/internal/balances"
	pkgerrors "github.com/auricsoft/jewelstock-backend/pkg/errors"
	"github.com/auricsoft/jewelstock-backend/pkg/logger"
	"github.com/auricsoft/jewelstock-backend/pkg/types"
)

// GetBalance returns one product's daily balance snapshot for a date.
func GetBalance(svc balances.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "balance service unavailable"))
			return
		}

		productID, err := parseIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		date, err := parseDateQuery(r, "date")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.GetBalance(r.Context(), productID, date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshot)
	}
}

// ListBalances returns a product's snapshots over an inclusive date range.
func ListBalances(svc balances.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "balance service unavailable"))
			return
		}

		productID, err := parseIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		from, err := parseDateQuery(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := parseDateQuery(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshots, err := svc.ListBalances(r.Context(), productID, from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshots)
	}
}

// RecalculateBalances rebuilds snapshot chains from a start date through
// today. With a product_id it rebuilds that product's chain; without one it
// reruns the reconciliation for every product that moved in the range. Used
// after backdated corrections.
func RecalculateBalances(svc balances.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "balance service unavailable"))
			return
		}

		var payload recalculateBalancesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		from, err := types.ParseDate(payload.From)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid from date, expected YYYY-MM-DD"))
			return
		}

		if payload.ProductID == "" {
			results, err := svc.RecalculateAllBalances(r.Context(), from)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, results)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		snapshots, err := svc.RecalculateBalances(r.Context(), productID, from)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, snapshots)
	}
}

type recalculateBalancesRequest struct {
	ProductID string `json:"product_id,omitempty" validate:"omitempty,uuid"`
	From      string `json:"from" validate:"required"`
}
