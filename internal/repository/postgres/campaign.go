package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/swiftcart/promotion-service/internal/domain"
	"github.com/swiftcart/promotion-service/internal/repository"
	"github.com/swiftcart/promotion-service/pkg/database"
	apperrors "github.com/swiftcart/promotion-service/pkg/errors"
)

const campaignColumns = `id, name, description, sponsor_type, vendor_id, scope,
			   discount_type, discount_value, max_discount_cap, start_date, end_date,
			   total_budget, current_spend, max_transactions_per_user_day,
			   target_user_ids, is_active, created_at, updated_at`

// CampaignRepository implements repository.CampaignRepository using PostgreSQL.
type CampaignRepository struct {
	pool database.DBTX
}

// NewCampaignRepository creates a new PostgreSQL-backed campaign repository.
func NewCampaignRepository(pool database.DBTX) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

// Create inserts a new campaign into the database.
func (r *CampaignRepository) Create(ctx context.Context, c *domain.Campaign) error {
	targetsJSON, err := json.Marshal(c.TargetUserIDs)
	if err != nil {
		return fmt.Errorf("marshal target_user_ids: %w", err)
	}

	query := `
		INSERT INTO campaigns (
			id, name, description, sponsor_type, vendor_id, scope,
			discount_type, discount_value, max_discount_cap, start_date, end_date,
			total_budget, current_spend, max_transactions_per_user_day,
			target_user_ids, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err = r.pool.Exec(ctx, query,
		c.ID,
		c.Name,
		c.Description,
		c.SponsorType,
		c.VendorID,
		c.Scope,
		c.DiscountType,
		c.DiscountValue,
		c.MaxDiscountCap,
		c.StartDate,
		c.EndDate,
		c.TotalBudget,
		c.CurrentSpend,
		c.MaxTransactionsPerUserDay,
		targetsJSON,
		c.IsActive,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("campaign", "id", c.ID)
		}
		return fmt.Errorf("insert campaign: %w", err)
	}

	return nil
}

// GetByID retrieves a campaign by its ID.
func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM campaigns
		WHERE id = $1`, campaignColumns)

	c, err := scanCampaign(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("campaign", id)
		}
		return nil, fmt.Errorf("get campaign: %w", err)
	}

	return c, nil
}

// List returns campaigns matching the given filter with the total count.
func (r *CampaignRepository) List(ctx context.Context, filter repository.CampaignFilter) ([]domain.Campaign, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argIndex))
		args = append(args, *filter.IsActive)
		argIndex++
	}

	if filter.Scope != nil {
		conditions = append(conditions, fmt.Sprintf("scope = $%d", argIndex))
		args = append(args, *filter.Scope)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s,
			   count(*) OVER() AS total_count
		FROM campaigns
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		campaignColumns, whereClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var (
		campaigns  []domain.Campaign
		totalCount int
	)

	for rows.Next() {
		var (
			c           domain.Campaign
			targetsJSON []byte
		)

		if err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Description,
			&c.SponsorType,
			&c.VendorID,
			&c.Scope,
			&c.DiscountType,
			&c.DiscountValue,
			&c.MaxDiscountCap,
			&c.StartDate,
			&c.EndDate,
			&c.TotalBudget,
			&c.CurrentSpend,
			&c.MaxTransactionsPerUserDay,
			&targetsJSON,
			&c.IsActive,
			&c.CreatedAt,
			&c.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan campaign row: %w", err)
		}

		if err := unmarshalTargets(targetsJSON, &c); err != nil {
			return nil, 0, err
		}

		campaigns = append(campaigns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate campaign rows: %w", err)
	}

	if campaigns == nil {
		campaigns = []domain.Campaign{}
	}

	return campaigns, totalCount, nil
}

// ListActive returns all active campaigns in creation order. This feeds the
// catalog cache, so the returned order is the discovery result order.
func (r *CampaignRepository) ListActive(ctx context.Context) ([]domain.Campaign, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM campaigns
		WHERE is_active = true
		ORDER BY created_at ASC`, campaignColumns)

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []domain.Campaign

	for rows.Next() {
		var (
			c           domain.Campaign
			targetsJSON []byte
		)

		if err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Description,
			&c.SponsorType,
			&c.VendorID,
			&c.Scope,
			&c.DiscountType,
			&c.DiscountValue,
			&c.MaxDiscountCap,
			&c.StartDate,
			&c.EndDate,
			&c.TotalBudget,
			&c.CurrentSpend,
			&c.MaxTransactionsPerUserDay,
			&targetsJSON,
			&c.IsActive,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan active campaign row: %w", err)
		}

		if err := unmarshalTargets(targetsJSON, &c); err != nil {
			return nil, err
		}

		campaigns = append(campaigns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active campaign rows: %w", err)
	}

	if campaigns == nil {
		campaigns = []domain.Campaign{}
	}

	return campaigns, nil
}

// Update modifies an existing campaign. current_spend is deliberately excluded
// from the update set; it belongs to the redemption path.
func (r *CampaignRepository) Update(ctx context.Context, c *domain.Campaign) error {
	targetsJSON, err := json.Marshal(c.TargetUserIDs)
	if err != nil {
		return fmt.Errorf("marshal target_user_ids: %w", err)
	}

	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE campaigns
		SET name = $1, description = $2, sponsor_type = $3, vendor_id = $4, scope = $5,
		    discount_type = $6, discount_value = $7, max_discount_cap = $8,
		    start_date = $9, end_date = $10, total_budget = $11,
		    max_transactions_per_user_day = $12, target_user_ids = $13,
		    is_active = $14, updated_at = $15
		WHERE id = $16`

	ct, err := r.pool.Exec(ctx, query,
		c.Name,
		c.Description,
		c.SponsorType,
		c.VendorID,
		c.Scope,
		c.DiscountType,
		c.DiscountValue,
		c.MaxDiscountCap,
		c.StartDate,
		c.EndDate,
		c.TotalBudget,
		c.MaxTransactionsPerUserDay,
		targetsJSON,
		c.IsActive,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("campaign", c.ID)
	}

	return nil
}

// Delete removes a campaign. Redemption rows are removed by the foreign key
// cascade.
func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("campaign", id)
	}

	return nil
}

// scanCampaign scans a single campaign row in campaignColumns order.
func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var (
		c           domain.Campaign
		targetsJSON []byte
	)

	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Description,
		&c.SponsorType,
		&c.VendorID,
		&c.Scope,
		&c.DiscountType,
		&c.DiscountValue,
		&c.MaxDiscountCap,
		&c.StartDate,
		&c.EndDate,
		&c.TotalBudget,
		&c.CurrentSpend,
		&c.MaxTransactionsPerUserDay,
		&targetsJSON,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalTargets(targetsJSON, &c); err != nil {
		return nil, err
	}

	return &c, nil
}

func unmarshalTargets(data []byte, c *domain.Campaign) error {
	if data != nil {
		if err := json.Unmarshal(data, &c.TargetUserIDs); err != nil {
			return fmt.Errorf("unmarshal target_user_ids: %w", err)
		}
	}
	if c.TargetUserIDs == nil {
		c.TargetUserIDs = []string{}
	}
	return nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
