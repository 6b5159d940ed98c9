package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/swiftcart/promotion-service/internal/domain"
)

// CampaignFilter defines filter criteria for listing campaigns.
type CampaignFilter struct {
	IsActive *bool
	Scope    *string
	Page     int
	PerPage  int
}

// CampaignRepository defines the interface for campaign catalog persistence.
// It serves the administrative authoring path and the cache-fill read path;
// current_spend is never mutated through it.
type CampaignRepository interface {
	// Create inserts a new campaign into the store.
	Create(ctx context.Context, campaign *domain.Campaign) error

	// GetByID retrieves a campaign by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Campaign, error)

	// List returns campaigns matching the given filter along with the total count.
	List(ctx context.Context, filter CampaignFilter) ([]domain.Campaign, int, error)

	// ListActive returns all campaigns with is_active = true, in creation order.
	// This is the catalog cache's load source.
	ListActive(ctx context.Context) ([]domain.Campaign, error)

	// Update modifies an existing campaign in the store. current_spend is not
	// part of the update set.
	Update(ctx context.Context, campaign *domain.Campaign) error

	// Delete removes a campaign and its redemption records.
	Delete(ctx context.Context, id string) error
}

// RedemptionTx is an exclusive, transaction-scoped handle on a single campaign
// acquired by RedemptionLedger.Lock. No other redemption attempt against the
// same campaign proceeds until the handle is committed or rolled back. Reads
// through the handle observe the latest committed state.
type RedemptionTx interface {
	// Campaign returns the locked campaign snapshot read at lock time.
	Campaign() *domain.Campaign

	// CountRedemptionsSince counts the user's redemptions against the locked
	// campaign with redeemed_at >= since.
	CountRedemptionsSince(ctx context.Context, userID string, since time.Time) (int, error)

	// Commit atomically sets the campaign's current_spend to newSpend and
	// inserts the redemption record. A duplicate (campaign, order_id) pair
	// fails the whole commit with apperrors.ErrDuplicateOrder.
	Commit(ctx context.Context, newSpend decimal.Decimal, redemption *domain.Redemption) error

	// Rollback aborts the attempt and releases the lock. Safe to call after a
	// failed or successful Commit.
	Rollback(ctx context.Context) error
}

// RedemptionLedger is the authoritative budget ledger. Lock serializes
// redemption attempts per campaign id; attempts against different campaigns
// never contend.
type RedemptionLedger interface {
	// Lock acquires the exclusive per-campaign handle, blocking until it is
	// available or ctx is done. Cancellation while waiting leaves no trace in
	// the ledger.
	Lock(ctx context.Context, campaignID string) (RedemptionTx, error)

	// CountUserRedemptionsSince counts a user's redemptions against a campaign
	// without taking the lock. Used by the advisory discovery path.
	CountUserRedemptionsSince(ctx context.Context, campaignID, userID string, since time.Time) (int, error)
}
