package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/swiftcart/promotion-service/internal/domain"
	"github.com/swiftcart/promotion-service/internal/repository"
	"github.com/swiftcart/promotion-service/pkg/database"
	apperrors "github.com/swiftcart/promotion-service/pkg/errors"
)

// Ledger implements repository.RedemptionLedger using PostgreSQL row-level
// locking. SELECT ... FOR UPDATE on the campaign row is the per-campaign
// mutual-exclusion region: concurrent attempts against the same campaign queue
// on the row lock, attempts against different campaigns never contend.
type Ledger struct {
	pool database.DBTX
}

// NewLedger creates a new PostgreSQL-backed redemption ledger.
func NewLedger(pool database.DBTX) *Ledger {
	return &Ledger{pool: pool}
}

// Lock opens a transaction and locks the campaign row, returning the locked
// snapshot. Blocks until the row lock is granted or ctx is done; cancellation
// while waiting rolls the transaction back with no ledger effect.
func (l *Ledger) Lock(ctx context.Context, campaignID string) (repository.RedemptionTx, error) {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin redemption transaction: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM campaigns
		WHERE id = $1
		FOR UPDATE`, campaignColumns)

	c, err := scanCampaign(tx.QueryRow(ctx, query, campaignID))
	if err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("campaign", campaignID)
		}
		return nil, fmt.Errorf("lock campaign: %w", err)
	}

	return &redemptionTx{tx: tx, campaign: c}, nil
}

// CountUserRedemptionsSince counts a user's redemptions against a campaign
// without locking. Reads the latest committed state, not the cache.
func (l *Ledger) CountUserRedemptionsSince(ctx context.Context, campaignID, userID string, since time.Time) (int, error) {
	var count int
	err := l.pool.QueryRow(ctx, countRedemptionsQuery, campaignID, userID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count redemptions: %w", err)
	}
	return count, nil
}

const countRedemptionsQuery = `
		SELECT count(*)
		FROM redemptions
		WHERE campaign_id = $1 AND user_id = $2 AND redeemed_at >= $3`

// redemptionTx is the transaction-scoped handle for one redemption attempt.
type redemptionTx struct {
	tx       pgx.Tx
	campaign *domain.Campaign
}

func (t *redemptionTx) Campaign() *domain.Campaign {
	return t.campaign
}

// CountRedemptionsSince counts inside the lock transaction, so it observes all
// previously committed redemptions for the locked campaign.
func (t *redemptionTx) CountRedemptionsSince(ctx context.Context, userID string, since time.Time) (int, error) {
	var count int
	err := t.tx.QueryRow(ctx, countRedemptionsQuery, t.campaign.ID, userID, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count redemptions under lock: %w", err)
	}
	return count, nil
}

// Commit updates the campaign spend and inserts the redemption record in the
// lock transaction, then commits. Both mutations become visible together; a
// duplicate (campaign_id, order_id) aborts the whole attempt.
func (t *redemptionTx) Commit(ctx context.Context, newSpend decimal.Decimal, r *domain.Redemption) error {
	updateQuery := `
		UPDATE campaigns
		SET current_spend = $1, updated_at = NOW()
		WHERE id = $2`

	if _, err := t.tx.Exec(ctx, updateQuery, newSpend, t.campaign.ID); err != nil {
		_ = t.tx.Rollback(ctx)
		return fmt.Errorf("update campaign spend: %w", err)
	}

	insertQuery := `
		INSERT INTO redemptions (id, campaign_id, user_id, order_id, applied_discount, redeemed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := t.tx.Exec(ctx, insertQuery,
		r.ID,
		r.CampaignID,
		r.UserID,
		r.OrderID,
		r.AppliedDiscount,
		r.RedeemedAt,
	)
	if err != nil {
		_ = t.tx.Rollback(ctx)
		if isUniqueViolation(err) {
			return apperrors.DuplicateOrder(r.OrderID)
		}
		return fmt.Errorf("insert redemption: %w", err)
	}

	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit redemption: %w", err)
	}

	return nil
}

// Rollback releases the row lock. Rolling back after Commit is a no-op.
func (t *redemptionTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback redemption transaction: %w", err)
	}
	return nil
}
