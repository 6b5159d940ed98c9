package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Campaign scope constants. The scope selects which monetary base a discount
// applies to: the cart subtotal or the delivery fee.
const (
	ScopeCart     = "CART"
	ScopeDelivery = "DELIVERY"
)

// Campaign sponsor constants.
const (
	SponsorPlatform = "PLATFORM"
	SponsorVendor   = "VENDOR"
)

// Discount type constants.
const (
	DiscountTypePercentage = "PERCENTAGE"
	DiscountTypeFixed      = "FIXED"
)

// Campaign represents a budgeted, time-boxed promotional campaign.
//
// TotalBudget and CurrentSpend form the budget ledger: CurrentSpend is mutated
// only by the redemption path while the campaign row lock is held, and the
// invariant 0 <= CurrentSpend <= TotalBudget holds at all times.
type Campaign struct {
	ID                        string           `json:"id"`
	Name                      string           `json:"name"`
	Description               string           `json:"description"`
	SponsorType               string           `json:"sponsor_type"`
	VendorID                  *int64           `json:"vendor_id,omitempty"`
	Scope                     string           `json:"scope"`
	DiscountType              string           `json:"discount_type"`
	DiscountValue             decimal.Decimal  `json:"discount_value"`
	MaxDiscountCap            *decimal.Decimal `json:"max_discount_cap,omitempty"`
	StartDate                 time.Time        `json:"start_date"`
	EndDate                   time.Time        `json:"end_date"`
	TotalBudget               decimal.Decimal  `json:"total_budget"`
	CurrentSpend              decimal.Decimal  `json:"current_spend"`
	MaxTransactionsPerUserDay int              `json:"max_transactions_per_user_day"`
	TargetUserIDs             []string         `json:"target_user_ids"`
	IsActive                  bool             `json:"is_active"`
	CreatedAt                 time.Time        `json:"created_at"`
	UpdatedAt                 time.Time        `json:"updated_at"`
}

// Redemption is an immutable record of one successful discount application.
// The pair (CampaignID, OrderID) is unique: redeeming the same order against
// the same campaign twice never creates a second record.
type Redemption struct {
	ID              string          `json:"id"`
	CampaignID      string          `json:"campaign_id"`
	UserID          string          `json:"user_id"`
	OrderID         string          `json:"order_id"`
	AppliedDiscount decimal.Decimal `json:"applied_discount"`
	RedeemedAt      time.Time       `json:"redeemed_at"`
}

// ValidScopes returns the set of valid campaign scopes.
func ValidScopes() []string {
	return []string{ScopeCart, ScopeDelivery}
}

// IsValidScope checks whether the given string is a valid campaign scope.
func IsValidScope(s string) bool {
	return s == ScopeCart || s == ScopeDelivery
}

// ValidSponsorTypes returns the set of valid sponsor types.
func ValidSponsorTypes() []string {
	return []string{SponsorPlatform, SponsorVendor}
}

// IsValidSponsorType checks whether the given string is a valid sponsor type.
func IsValidSponsorType(s string) bool {
	return s == SponsorPlatform || s == SponsorVendor
}

// ValidDiscountTypes returns the set of valid discount types.
func ValidDiscountTypes() []string {
	return []string{DiscountTypePercentage, DiscountTypeFixed}
}

// IsValidDiscountType checks whether the given string is a valid discount type.
func IsValidDiscountType(s string) bool {
	return s == DiscountTypePercentage || s == DiscountTypeFixed
}

// Targets reports whether the campaign is open to the given user. An empty
// target list means the campaign is open to all users.
func (c *Campaign) Targets(userID string) bool {
	if len(c.TargetUserIDs) == 0 {
		return true
	}
	for _, id := range c.TargetUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Headroom returns the amount of budget still spendable.
func (c *Campaign) Headroom() decimal.Decimal {
	return c.TotalBudget.Sub(c.CurrentSpend)
}

// WithinWindow reports whether now falls inside the campaign's date window.
func (c *Campaign) WithinWindow(now time.Time) bool {
	return !now.Before(c.StartDate) && !now.After(c.EndDate)
}
