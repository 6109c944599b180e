package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/auricsoft/jewelstock-backend/api/responses"
	"github.com/auricsoft/jewelstock-backend/api/validators"
	"github.com/auricsoft/jewelstock-backend/internal/catalog"
	pkgerrors "github.com/auricsoft/jewelstock-backend/pkg/errors"
	"github.com/auricsoft/jewelstock-backend/pkg/logger"
)

// CreateProduct registers a catalog item at its initial location.
func CreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.CreateProduct(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// UpdateProduct applies a partial mutation to a catalog item.
func UpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := parseIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.UpdateProduct(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// GetProduct returns one catalog item by id.
func GetProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := parseIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

// ListProducts returns catalog items filtered by location and category.
func ListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		filter := catalog.ListFilter{}

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
		filter.ActiveOnly = strings.EqualFold(r.URL.Query().Get("active_only"), "true")

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

		products, err := svc.ListProducts(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, products)
	}
}

// AssignTag binds an RFID tag code to a product.
func AssignTag(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload assignTagRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		assignment, err := svc.AssignTag(r.Context(), payload.TagCode, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, assignment)
	}
}

// ReleaseTag unbinds an RFID tag code from its product.
func ReleaseTag(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		tagCode := strings.TrimSpace(chi.URLParam(r, "tagCode"))
		if tagCode == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "tag code is required"))
			return
		}

		if err := svc.ReleaseTag(r.Context(), tagCode); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"tag_code": tagCode, "status": "released"})
	}
}

// ResolveTag looks up the product currently bound to an RFID tag code.
func ResolveTag(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		tagCode := strings.TrimSpace(chi.URLParam(r, "tagCode"))
		if tagCode == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "tag code is required"))
			return
		}

		product, err := svc.ResolveTag(r.Context(), tagCode)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}

type createProductRequest struct {
	SKU       string  `json:"sku" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	Category  string  `json:"category" validate:"required"`
	UnitPrice string  `json:"unit_price" validate:"required"`
	BranchID  string  `json:"branch_id" validate:"required,uuid"`
	CounterID *string `json:"counter_id,omitempty" validate:"omitempty,uuid"`
	BoxNo     *string `json:"box_no,omitempty"`
}

func (r createProductRequest) toCreateInput() (catalog.CreateProductInput, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(r.UnitPrice))
	if err != nil {
		return catalog.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit price")
	}

	branchID, err := uuid.Parse(r.BranchID)
	if err != nil {
		return catalog.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid branch id")
	}

	input := catalog.CreateProductInput{
		SKU:       r.SKU,
		Name:      r.Name,
		Category:  r.Category,
		UnitPrice: price,
		BranchID:  branchID,
		BoxNo:     r.BoxNo,
	}

	if r.CounterID != nil {
		counterID, err := uuid.Parse(*r.CounterID)
		if err != nil {
			return catalog.CreateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid counter id")
		}
		input.CounterID = &counterID
	}

	return input, nil
}

type updateProductRequest struct {
	Name      *string `json:"name,omitempty"`
	Category  *string `json:"category,omitempty"`
	UnitPrice *string `json:"unit_price,omitempty"`
	BranchID  *string `json:"branch_id,omitempty" validate:"omitempty,uuid"`
	CounterID *string `json:"counter_id,omitempty" validate:"omitempty,uuid"`
	BoxNo     *string `json:"box_no,omitempty"`
	IsActive  *bool   `json:"is_active,omitempty"`
}

func (r updateProductRequest) toUpdateInput() (catalog.UpdateProductInput, error) {
	input := catalog.UpdateProductInput{
		Name:     r.Name,
		Category: r.Category,
		BoxNo:    r.BoxNo,
		IsActive: r.IsActive,
	}

	if r.UnitPrice != nil {
		price, err := decimal.NewFromString(strings.TrimSpace(*r.UnitPrice))
		if err != nil {
			return catalog.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit price")
		}
		input.UnitPrice = &price
	}
	if r.BranchID != nil {
		branchID, err := uuid.Parse(*r.BranchID)
		if err != nil {
			return catalog.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid branch id")
		}
		input.BranchID = &branchID
	}
	if r.CounterID != nil {
		counterID, err := uuid.Parse(*r.CounterID)
		if err != nil {
			return catalog.UpdateProductInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid counter id")
		}
		input.CounterID = &counterID
	}

	return input, nil
}

type assignTagRequest struct {
	TagCode   string `json:"tag_code" validate:"required"`
	ProductID string `json:"product_id" validate:"required,uuid"`
}
