package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/auricsoft/jewelstock-backend/api/responses"
	"github.com/auricsoft/jewelstock-backend/api/validators"
	"github.com/auricsoft/jewelstock-backend/internal/movements"
	"github.com/auricsoft/jewelstock-backend/pkg/enums"
	pkgerrors "github.com/auricsoft/jewelstock-backend/pkg/errors"
	"github.com/auricsoft/jewelstock-backend/pkg/logger"
)

// RecordMovement appends one entry to the movement ledger.
func RecordMovement(svc movements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "movement service unavailable"))
			return
		}

		var payload recordMovementRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.RecordMovement(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

// RecordMovementBatch appends several entries in one call. Valid entries are
// recorded even when siblings fail, mirroring a scanner flushing its queue.
func RecordMovementBatch(svc movements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "movement service unavailable"))
			return
		}

		var payload recordMovementBatchRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inputs := make([]movements.RecordMovementInput, 0, len(payload.Entries))
		for i, entry := range payload.Entries {
			input, err := entry.toInput()
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid batch entry").WithDetails(map[string]any{"index": i}))
				return
			}
			inputs = append(inputs, input)
		}

		result, err := svc.RecordMovements(r.Context(), inputs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusCreated
		if result.Failed > 0 {
			status = http.StatusMultiStatus
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"recorded": result.Recorded,
			"failed":   result.Failed,
		})
	}
}

// ListMovements returns ledger entries matching the query filters.
func ListMovements(svc movements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "movement service unavailable"))
			return
		}

		filter := movements.ListFilter{}

		if productID, err := parseOptionalIDQuery(r, "product_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else {
			filter.ProductID = productID
		}
		if branchID, err := parseOptionalIDQuery(r, "branch_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else {
			filter.BranchID = branchID
		}
		if counterID, err := parseOptionalIDQuery(r, "counter_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else {
			filter.CounterID = counterID
		}
		if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
			filter.Category = &category
		}
		if rawType := strings.TrimSpace(r.URL.Query().Get("type")); rawType != "" {
			movementType, err := enums.ParseMovementType(rawType)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movement type"))
				return
			}
			value := string(movementType)
			filter.Type = &value
		}
		if from, err := parseOptionalDateQuery(r, "from"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else {
			filter.From = from
		}
		if to, err := parseOptionalDateQuery(r, "to"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else {
			filter.To = to
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 500)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.Limit = limit
		filter.Offset = offset

		entries, err := svc.ListMovements(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, entries)
	}
}

type recordMovementRequest struct {
	ProductID     string  `json:"product_id,omitempty" validate:"omitempty,uuid"`
	TagCode       *string `json:"tag_code,omitempty"`
	Type          string  `json:"type" validate:"required"`
	Quantity      int     `json:"quantity" validate:"required,min=1"`
	UnitPrice     *string `json:"unit_price,omitempty"`
	ReferenceNo   *string `json:"reference_no,omitempty"`
	ReferenceType *string `json:"reference_type,omitempty"`
	Remarks       *string `json:"remarks,omitempty"`
	MovedAt       *string `json:"moved_at,omitempty"`
}

type recordMovementBatchRequest struct {
	Entries []recordMovementRequest `json:"entries" validate:"required,min=1,max=100,dive"`
}

func (r recordMovementRequest) toInput() (movements.RecordMovementInput, error) {
	var productID uuid.UUID
	if r.ProductID != "" {
		parsed, err := uuid.Parse(r.ProductID)
		if err != nil {
			return movements.RecordMovementInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
		}
		productID = parsed
	}

	movementType, err := enums.ParseMovementType(strings.TrimSpace(r.Type))
	if err != nil {
		return movements.RecordMovementInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movement type")
	}

	input := movements.RecordMovementInput{
		ProductID:     productID,
		TagCode:       r.TagCode,
		Type:          movementType,
		Quantity:      r.Quantity,
		ReferenceNo:   r.ReferenceNo,
		ReferenceType: r.ReferenceType,
		Remarks:       r.Remarks,
	}

	if r.UnitPrice != nil {
		price, err := decimal.NewFromString(strings.TrimSpace(*r.UnitPrice))
		if err != nil {
			return movements.RecordMovementInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit price")
		}
		input.UnitPrice = &price
	}

	if r.MovedAt != nil {
		movedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(*r.MovedAt))
		if err != nil {
			return movements.RecordMovementInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid moved_at, expected RFC3339")
		}
		input.MovedAt = movedAt
	}

	return input, nil
}
