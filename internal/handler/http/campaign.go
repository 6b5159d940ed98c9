package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/swiftcart/promotion-service/internal/repository"
	"github.com/swiftcart/promotion-service/internal/service"
	apperrors "github.com/swiftcart/promotion-service/pkg/errors"
	"github.com/swiftcart/promotion-service/pkg/pagination"
	"github.com/swiftcart/promotion-service/pkg/validator"
)

// CampaignHandler handles HTTP requests for the campaign admin endpoints.
type CampaignHandler struct {
	service *service.CampaignService
	logger  *slog.Logger
}

// NewCampaignHandler creates a new campaign HTTP handler.
func NewCampaignHandler(svc *service.CampaignService, logger *slog.Logger) *CampaignHandler {
	return &CampaignHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateCampaignRequest is the JSON request body for creating a campaign.
// Monetary fields accept JSON numbers or numeric strings.
type CreateCampaignRequest struct {
	Name                      string           `json:"name" validate:"required,min=1,max=255"`
	Description               string           `json:"description"`
	SponsorType               string           `json:"sponsor_type" validate:"required,oneof=PLATFORM VENDOR"`
	VendorID                  *int64           `json:"vendor_id" validate:"omitempty,gt=0"`
	Scope                     string           `json:"scope" validate:"required,oneof=CART DELIVERY"`
	DiscountType              string           `json:"discount_type" validate:"required,oneof=PERCENTAGE FIXED"`
	DiscountValue             decimal.Decimal  `json:"discount_value"`
	MaxDiscountCap            *decimal.Decimal `json:"max_discount_cap"`
	StartDate                 string           `json:"start_date" validate:"required"`
	EndDate                   string           `json:"end_date" validate:"required"`
	TotalBudget               decimal.Decimal  `json:"total_budget"`
	MaxTransactionsPerUserDay int              `json:"max_transactions_per_user_day" validate:"required,gte=1"`
	TargetUserIDs             []string         `json:"target_user_ids"`
	IsActive                  *bool            `json:"is_active"`
}

// UpdateCampaignRequest is the JSON request body for updating a campaign.
type UpdateCampaignRequest struct {
	Name                      *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Description               *string          `json:"description"`
	SponsorType               *string          `json:"sponsor_type" validate:"omitempty,oneof=PLATFORM VENDOR"`
	VendorID                  *int64           `json:"vendor_id" validate:"omitempty,gt=0"`
	Scope                     *string          `json:"scope" validate:"omitempty,oneof=CART DELIVERY"`
	DiscountType              *string          `json:"discount_type" validate:"omitempty,oneof=PERCENTAGE FIXED"`
	DiscountValue             *decimal.Decimal `json:"discount_value"`
	MaxDiscountCap            *decimal.Decimal `json:"max_discount_cap"`
	StartDate                 *string          `json:"start_date"`
	EndDate                   *string          `json:"end_date"`
	TotalBudget               *decimal.Decimal `json:"total_budget"`
	MaxTransactionsPerUserDay *int             `json:"max_transactions_per_user_day" validate:"omitempty,gte=1"`
	TargetUserIDs             []string         `json:"target_user_ids"`
	IsActive                  *bool            `json:"is_active"`
}

// --- Response envelope ---

type response struct {
	Data  any            `json:"data,omitempty"`
	Error *errorResponse `json:"error,omitempty"`
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// --- Handlers ---

// CreateCampaign handles POST /api/v1/campaigns
func (h *CampaignHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	var req CreateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	startDate, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "start_date must be in RFC3339 format"},
		})
		return
	}

	endDate, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "end_date must be in RFC3339 format"},
		})
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	input := &service.CreateCampaignInput{
		Name:                      req.Name,
		Description:               req.Description,
		SponsorType:               req.SponsorType,
		VendorID:                  req.VendorID,
		Scope:                     req.Scope,
		DiscountType:              req.DiscountType,
		DiscountValue:             req.DiscountValue,
		MaxDiscountCap:            req.MaxDiscountCap,
		StartDate:                 startDate,
		EndDate:                   endDate,
		TotalBudget:               req.TotalBudget,
		MaxTransactionsPerUserDay: req.MaxTransactionsPerUserDay,
		TargetUserIDs:             req.TargetUserIDs,
		IsActive:                  isActive,
	}

	campaign, err := h.service.CreateCampaign(r.Context(), input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, response{Data: campaign})
}

// ListCampaigns handles GET /api/v1/campaigns
func (h *CampaignHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	filter := repository.CampaignFilter{
		Page:    params.Page,
		PerPage: params.PerPage,
	}

	if v := r.URL.Query().Get("is_active"); v != "" {
		if isActive, err := strconv.ParseBool(v); err == nil {
			filter.IsActive = &isActive
		}
	}
	if v := r.URL.Query().Get("scope"); v != "" {
		filter.Scope = &v
	}

	campaigns, total, err := h.service.ListCampaigns(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, pagination.NewResult(campaigns, total, params))
}

// GetCampaign handles GET /api/v1/campaigns/{id}
func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "campaign id is required"},
		})
		return
	}

	campaign, err := h.service.GetCampaign(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: campaign})
}

// UpdateCampaign handles PUT /api/v1/campaigns/{id}
func (h *CampaignHandler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "campaign id is required"},
		})
		return
	}

	var req UpdateCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		h.writeValidationError(w, err)
		return
	}

	input := &service.UpdateCampaignInput{
		Name:                      req.Name,
		Description:               req.Description,
		SponsorType:               req.SponsorType,
		VendorID:                  req.VendorID,
		Scope:                     req.Scope,
		DiscountType:              req.DiscountType,
		DiscountValue:             req.DiscountValue,
		MaxDiscountCap:            req.MaxDiscountCap,
		TotalBudget:               req.TotalBudget,
		MaxTransactionsPerUserDay: req.MaxTransactionsPerUserDay,
		TargetUserIDs:             req.TargetUserIDs,
		IsActive:                  req.IsActive,
	}

	if req.StartDate != nil {
		startDate, err := time.Parse(time.RFC3339, *req.StartDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, response{
				Error: &errorResponse{Code: "INVALID_INPUT", Message: "start_date must be in RFC3339 format"},
			})
			return
		}
		input.StartDate = &startDate
	}

	if req.EndDate != nil {
		endDate, err := time.Parse(time.RFC3339, *req.EndDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, response{
				Error: &errorResponse{Code: "INVALID_INPUT", Message: "end_date must be in RFC3339 format"},
			})
			return
		}
		input.EndDate = &endDate
	}

	campaign, err := h.service.UpdateCampaign(r.Context(), id, input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: campaign})
}

// DeactivateCampaign handles POST /api/v1/campaigns/{id}/deactivate
func (h *CampaignHandler) DeactivateCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "campaign id is required"},
		})
		return
	}

	campaign, err := h.service.DeactivateCampaign(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: campaign})
}

// DeleteCampaign handles DELETE /api/v1/campaigns/{id}
func (h *CampaignHandler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "campaign id is required"},
		})
		return
	}

	if err := h.service.DeleteCampaign(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusNoContent, nil)
}

// --- Helpers ---

func (h *CampaignHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, err, h.logger)
}

func (h *CampaignHandler) writeValidationError(w http.ResponseWriter, err error) {
	writeValidationError(w, err)
}

func writeError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.Status, response{
			Error: &errorResponse{Code: appErr.Code, Message: appErr.Message},
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	code := "INTERNAL_ERROR"
	message := "an internal error occurred"

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		code = "NOT_FOUND"
		message = "resource not found"
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrAlreadyExists):
		code = "ALREADY_EXISTS"
		message = "resource already exists"
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrInvalidInput):
		code = "INVALID_INPUT"
		message = err.Error()
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	writeJSON(w, status, response{
		Error: &errorResponse{Code: code, Message: message},
	})
}

func writeValidationError(w http.ResponseWriter, err error) {
	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "request validation failed",
				Fields:  valErr.Fields(),
			},
		})
		return
	}

	writeJSON(w, http.StatusBadRequest, response{
		Error: &errorResponse{Code: "INVALID_INPUT", Message: err.Error()},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
