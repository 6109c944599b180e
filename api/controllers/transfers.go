package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/auricsoft/jewelstock-backend/api/middleware"
	"github.com/auricsoft/jewelstock-backend/api/responses"
	"github.com/auricsoft/jewelstock-backend/api/validators"
	"github.com/auricsoft/jewelstock-backend/internal/transfers"
	"github.com/auricsoft/jewelstock-backend/pkg/db/models"
	"github.com/auricsoft/jewelstock-backend/pkg/enums"
	pkgerrors "github.com/auricsoft/jewelstock-backend/pkg/errors"
	"github.com/auricsoft/jewelstock-backend/pkg/logger"
)

// CreateTransfer opens a pending transfer and reserves its items.
func CreateTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createTransferRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transfer, err := svc.CreateTransfer(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, transfer)
	}
}

// ApproveTransfer moves a pending transfer in transit.
func ApproveTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return decideTransfer(svc, logg, func(r *http.Request, transferID, actorID uuid.UUID) (*models.Transfer, error) {
		return svc.ApproveTransfer(r.Context(), transferID, actorID)
	})
}

// RejectTransfer declines a pending transfer and frees its reservations.
func RejectTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transferID, err := parseIDParam(r, "transferId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transferDecisionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transfer, err := svc.RejectTransfer(r.Context(), transferID, actorID, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, transfer)
	}
}

// CompleteTransfer lands an in-transit transfer: paired ledger entries are
// written and the items move to the destination.
func CompleteTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return decideTransfer(svc, logg, func(r *http.Request, transferID, actorID uuid.UUID) (*models.Transfer, error) {
		return svc.CompleteTransfer(r.Context(), transferID, actorID)
	})
}

// CancelTransfer aborts an open transfer and frees its reservations.
func CancelTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transferID, err := parseIDParam(r, "transferId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload transferDecisionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transfer, err := svc.CancelTransfer(r.Context(), transferID, actorID, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, transfer)
	}
}

// GetTransfer returns one transfer with its items.
func GetTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		transferID, err := parseIDParam(r, "transferId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transfer, err := svc.GetTransfer(r.Context(), transferID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, transfer)
	}
}

// ListTransfers returns transfers matching the query filters.
func ListTransfers(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		filter := transfers.ListFilter{}

		if rawStatus := strings.TrimSpace(r.URL.Query().Get("status")); rawStatus != "" {
			status, err := enums.ParseTransferStatus(rawStatus)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transfer status"))
				return
			}
			filter.Status = &status
		}
		if sourceBranchID, err := parseOptionalIDQuery(r, "source_branch_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else {
			filter.SourceBranchID = sourceBranchID
		}
		if destBranchID, err := parseOptionalIDQuery(r, "dest_branch_id"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else {
			filter.DestBranchID = destBranchID
		}

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
		filter.Limit = limit
		filter.Offset = offset

		results, err := svc.ListTransfers(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, results)
	}
}

func decideTransfer(svc transfers.Service, logg *logger.Logger, decide func(r *http.Request, transferID, actorID uuid.UUID) (*models.Transfer, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transferID, err := parseIDParam(r, "transferId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transfer, err := decide(r, transferID, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, transfer)
	}
}

func actorFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	actorID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return actorID, nil
}

type createTransferRequest struct {
	Type        string                `json:"type" validate:"required"`
	Source      locationRequest       `json:"source" validate:"required"`
	Destination locationRequest       `json:"destination" validate:"required"`
	Items       []transferItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
	Reason      *string               `json:"reason,omitempty"`
}

type locationRequest struct {
	BranchID  string  `json:"branch_id" validate:"required,uuid"`
	CounterID *string `json:"counter_id,omitempty" validate:"omitempty,uuid"`
	BoxNo     *string `json:"box_no,omitempty"`
}

type transferItemRequest struct {
	ProductID string  `json:"product_id,omitempty" validate:"omitempty,uuid"`
	TagCode   *string `json:"tag_code,omitempty"`
	Quantity  int     `json:"quantity" validate:"required,min=1"`
}

type transferDecisionRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (r createTransferRequest) toInput(actorID uuid.UUID) (transfers.CreateTransferInput, error) {
	transferType, err := enums.ParseTransferType(strings.TrimSpace(r.Type))
	if err != nil {
		return transfers.CreateTransferInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid transfer type")
	}

	source, err := r.Source.toLocation()
	if err != nil {
		return transfers.CreateTransferInput{}, err
	}
	destination, err := r.Destination.toLocation()
	if err != nil {
		return transfers.CreateTransferInput{}, err
	}

	items := make([]transfers.ItemInput, 0, len(r.Items))
	for _, item := range r.Items {
		var productID uuid.UUID
		if item.ProductID != "" {
			parsed, err := uuid.Parse(item.ProductID)
			if err != nil {
				return transfers.CreateTransferInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id")
			}
			productID = parsed
		}
		items = append(items, transfers.ItemInput{
			ProductID: productID,
			TagCode:   item.TagCode,
			Quantity:  item.Quantity,
		})
	}

	return transfers.CreateTransferInput{
		Type:        transferType,
		Source:      source,
		Destination: destination,
		Items:       items,
		RequestedBy: actorID,
		Reason:      r.Reason,
	}, nil
}

func (l locationRequest) toLocation() (models.Location, error) {
	branchID, err := uuid.Parse(l.BranchID)
	if err != nil {
		return models.Location{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid branch id")
	}

	location := models.Location{BranchID: branchID, BoxNo: l.BoxNo}
	if l.CounterID != nil {
		counterID, err := uuid.Parse(*l.CounterID)
		if err != nil {
			return models.Location{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid counter id")
		}
		location.CounterID = &counterID
	}
	return location, nil
}
