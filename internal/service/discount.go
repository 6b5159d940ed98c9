package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/swiftcart/promotion-service/internal/domain"
	"github.com/swiftcart/promotion-service/internal/event"
	"github.com/swiftcart/promotion-service/internal/repository"
	apperrors "github.com/swiftcart/promotion-service/pkg/errors"
)

var (
	redemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discount_redemptions_total",
			Help: "Total number of redemption attempts by outcome",
		},
		[]string{"outcome"},
	)

	redeemedAmountTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "discount_redeemed_amount_total",
			Help: "Total monetary value of committed discounts",
		},
	)
)

func init() {
	prometheus.MustRegister(redemptionsTotal)
	prometheus.MustRegister(redeemedAmountTotal)
}

// DiscountService implements discount discovery and redemption. Discovery
// reads the cached campaign set and is advisory; redemption goes through the
// ledger lock and is authoritative.
type DiscountService struct {
	catalog  CampaignCatalog
	ledger   repository.RedemptionLedger
	producer *event.Producer
	logger   *slog.Logger

	now func() time.Time
}

// NewDiscountService creates a new discount service.
func NewDiscountService(catalog CampaignCatalog, ledger repository.RedemptionLedger, producer *event.Producer, logger *slog.Logger) *DiscountService {
	return &DiscountService{
		catalog:  catalog,
		ledger:   ledger,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// OrderContext carries the monetary context of the order being priced or
// redeemed against.
type OrderContext struct {
	CartTotal   decimal.Decimal
	DeliveryFee decimal.Decimal
}

// AvailableDiscount pairs a campaign with the discount it would grant for the
// given order context.
type AvailableDiscount struct {
	Campaign domain.Campaign `json:"campaign"`
	Discount decimal.Decimal `json:"discount"`
}

// RedeemInput holds the parameters for redeeming a discount.
type RedeemInput struct {
	CampaignID  string
	UserID      string
	OrderID     string
	CartTotal   decimal.Decimal
	DeliveryFee decimal.Decimal
}

// AvailableDiscounts returns the campaigns the user could redeem against the
// given order, with the discount each would grant, in campaign creation
// order. Campaign state comes from the cache and may lag the ledger, so a
// listed discount is a quote, not a reservation; Redeem re-checks everything
// under the lock.
func (s *DiscountService) AvailableDiscounts(ctx context.Context, userID string, order OrderContext) ([]AvailableDiscount, error) {
	campaigns, err := s.catalog.ActiveCampaigns(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active campaigns: %w", err)
	}

	now := s.now()
	dayStart := startOfDay(now)
	available := []AvailableDiscount{}

	for i := range campaigns {
		c := &campaigns[i]

		if !c.IsActive || !c.WithinWindow(now) || !c.Targets(userID) {
			continue
		}
		if c.Headroom().LessThanOrEqual(decimal.Zero) {
			continue
		}

		// The daily cap is checked against the ledger, not the cache, so a
		// user who just hit the cap stops seeing the campaign immediately.
		count, err := s.ledger.CountUserRedemptionsSince(ctx, c.ID, userID, dayStart)
		if err != nil {
			return nil, fmt.Errorf("count redemptions for discovery: %w", err)
		}
		if count >= c.MaxTransactionsPerUserDay {
			continue
		}

		discount := domain.CalculateDiscount(c, order.CartTotal, order.DeliveryFee)
		if discount.LessThanOrEqual(decimal.Zero) {
			continue
		}

		available = append(available, AvailableDiscount{Campaign: *c, Discount: discount})
	}

	return available, nil
}

// Redeem applies a campaign discount to an order and debits the campaign
// budget. The campaign is locked for the whole attempt, so eligibility, the
// discount amount, and the budget check are all evaluated against committed
// state that cannot move underneath them.
func (s *DiscountService) Redeem(ctx context.Context, input *RedeemInput) (*domain.Redemption, error) {
	tx, err := s.ledger.Lock(ctx, input.CampaignID)
	if err != nil {
		redemptionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("lock campaign for redemption: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil {
			s.logger.ErrorContext(ctx, "failed to release redemption lock",
				slog.String("campaign_id", input.CampaignID),
				slog.String("error", err.Error()),
			)
		}
	}()

	campaign := tx.Campaign()
	now := s.now()

	if err := checkEligibility(ctx, campaign, input.UserID, now, tx.CountRedemptionsSince); err != nil {
		redemptionsTotal.WithLabelValues("ineligible").Inc()
		return nil, err
	}

	discount := domain.CalculateDiscount(campaign, input.CartTotal, input.DeliveryFee)
	if discount.LessThanOrEqual(decimal.Zero) {
		redemptionsTotal.WithLabelValues("no_discount").Inc()
		return nil, apperrors.NoDiscount()
	}

	if discount.GreaterThan(campaign.Headroom()) {
		redemptionsTotal.WithLabelValues("budget_exhausted").Inc()
		return nil, apperrors.BudgetExhausted(campaign.ID)
	}

	redemption := &domain.Redemption{
		ID:              uuid.New().String(),
		CampaignID:      campaign.ID,
		UserID:          input.UserID,
		OrderID:         input.OrderID,
		AppliedDiscount: discount,
		RedeemedAt:      now.UTC(),
	}

	newSpend := campaign.CurrentSpend.Add(discount)

	if err := tx.Commit(ctx, newSpend, redemption); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateOrder) {
			redemptionsTotal.WithLabelValues("duplicate_order").Inc()
			return nil, err
		}
		redemptionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("commit redemption: %w", err)
	}

	redemptionsTotal.WithLabelValues("success").Inc()
	redeemedAmountTotal.Add(discount.InexactFloat64())

	if err := s.catalog.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate campaign catalog cache after redemption",
			slog.String("campaign_id", campaign.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishDiscountRedeemed(ctx, redemption, newSpend); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish discount.redeemed event",
			slog.String("campaign_id", campaign.ID),
			slog.String("order_id", redemption.OrderID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "discount redeemed",
		slog.String("campaign_id", campaign.ID),
		slog.String("user_id", input.UserID),
		slog.String("order_id", input.OrderID),
		slog.String("applied_discount", discount.String()),
		slog.String("campaign_spend", newSpend.String()),
	)

	return redemption, nil
}
