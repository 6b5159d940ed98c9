package service

import (
	"context"
	"fmt"
	"time"

	"github.com/swiftcart/promotion-service/internal/domain"
	apperrors "github.com/swiftcart/promotion-service/pkg/errors"
)

// redemptionCounter counts a user's redemptions against one campaign since a
// given instant. The redemption path counts inside the ledger lock; the
// discovery path counts without it.
type redemptionCounter func(ctx context.Context, userID string, since time.Time) (int, error)

// checkEligibility runs the ordered eligibility checks for one user against
// one campaign: active flag, date window, user targeting, then the per-day
// transaction cap. The first failing check decides the rejection reason;
// later checks are not evaluated.
func checkEligibility(ctx context.Context, c *domain.Campaign, userID string, now time.Time, countSince redemptionCounter) error {
	if !c.IsActive {
		return apperrors.Ineligible("campaign is not active")
	}

	if now.Before(c.StartDate) {
		return apperrors.Ineligible("campaign has not started yet")
	}
	if now.After(c.EndDate) {
		return apperrors.Ineligible("campaign has ended")
	}

	if !c.Targets(userID) {
		return apperrors.Ineligible("user is not targeted by this campaign")
	}

	count, err := countSince(ctx, userID, startOfDay(now))
	if err != nil {
		return fmt.Errorf("count redemptions for eligibility: %w", err)
	}
	if count >= c.MaxTransactionsPerUserDay {
		return apperrors.Ineligible("daily redemption limit reached for this campaign")
	}

	return nil
}

// startOfDay returns midnight of the day containing t, in t's location. The
// daily cap window resets at server-local midnight rather than sliding over
// the last 24 hours.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
