package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/swiftcart/promotion-service/internal/service"
	"github.com/swiftcart/promotion-service/pkg/validator"
)

// userIDHeader carries the authenticated user identity set by the API
// gateway. Requests without it are rejected.
const userIDHeader = "X-User-ID"

// DiscountHandler handles the public discount discovery and redemption
// endpoints.
type DiscountHandler struct {
	service *service.DiscountService
	logger  *slog.Logger
}

// NewDiscountHandler creates a new discount HTTP handler.
func NewDiscountHandler(svc *service.DiscountService, logger *slog.Logger) *DiscountHandler {
	return &DiscountHandler{
		service: svc,
		logger:  logger,
	}
}

// RedeemDiscountRequest is the JSON request body for redeeming a discount.
type RedeemDiscountRequest struct {
	CampaignID  string          `json:"campaign_id" validate:"required"`
	OrderID     string          `json:"order_id" validate:"required"`
	CartTotal   decimal.Decimal `json:"cart_total"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
}

// AvailableDiscountResponse is the public projection of a redeemable campaign.
// Targeting lists and budget figures stay internal.
type AvailableDiscountResponse struct {
	CampaignID  string          `json:"campaign_id"`
	Name        string          `json:"name"`
	Scope       string          `json:"scope"`
	SponsorType string          `json:"sponsor_type"`
	Amount      decimal.Decimal `json:"amount"`
}

// RedeemDiscountResponse is the JSON response body for a committed redemption.
type RedeemDiscountResponse struct {
	Status          string          `json:"status"`
	DiscountApplied decimal.Decimal `json:"discount_applied"`
}

// AvailableDiscounts handles GET /api/v1/discounts/available
func (h *DiscountHandler) AvailableDiscounts(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "UNAUTHORIZED", Message: "X-User-ID header is required"},
		})
		return
	}

	order := service.OrderContext{
		CartTotal:   decimal.Zero,
		DeliveryFee: decimal.Zero,
	}

	if v := r.URL.Query().Get("cart_total"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			writeJSON(w, http.StatusBadRequest, response{
				Error: &errorResponse{Code: "INVALID_INPUT", Message: "cart_total must be a non-negative number"},
			})
			return
		}
		order.CartTotal = d
	}

	if v := r.URL.Query().Get("delivery_fee"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			writeJSON(w, http.StatusBadRequest, response{
				Error: &errorResponse{Code: "INVALID_INPUT", Message: "delivery_fee must be a non-negative number"},
			})
			return
		}
		order.DeliveryFee = d
	}

	available, err := h.service.AvailableDiscounts(r.Context(), userID, order)
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	out := make([]AvailableDiscountResponse, 0, len(available))
	for _, a := range available {
		out = append(out, AvailableDiscountResponse{
			CampaignID:  a.Campaign.ID,
			Name:        a.Campaign.Name,
			Scope:       a.Campaign.Scope,
			SponsorType: a.Campaign.SponsorType,
			Amount:      a.Discount,
		})
	}

	writeJSON(w, http.StatusOK, response{Data: out})
}

// RedeemDiscount handles POST /api/v1/discounts/redeem
func (h *DiscountHandler) RedeemDiscount(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit

	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeJSON(w, http.StatusUnauthorized, response{
			Error: &errorResponse{Code: "UNAUTHORIZED", Message: "X-User-ID header is required"},
		})
		return
	}

	var req RedeemDiscountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	if req.CartTotal.IsNegative() || req.DeliveryFee.IsNegative() {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "cart_total and delivery_fee must not be negative"},
		})
		return
	}

	redemption, err := h.service.Redeem(r.Context(), &service.RedeemInput{
		CampaignID:  req.CampaignID,
		UserID:      userID,
		OrderID:     req.OrderID,
		CartTotal:   req.CartTotal,
		DeliveryFee: req.DeliveryFee,
	})
	if err != nil {
		writeError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, response{Data: RedeemDiscountResponse{
		Status:          "success",
		DiscountApplied: redemption.AppliedDiscount,
	}})
}
