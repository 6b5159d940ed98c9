package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swiftcart/promotion-service/internal/domain"
	"github.com/swiftcart/promotion-service/internal/repository"
	"github.com/swiftcart/promotion-service/pkg/database"
	apperrors "github.com/swiftcart/promotion-service/pkg/errors"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func setupRepo(t *testing.T) (*CampaignRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewCampaignRepository(mock)
	return repo, mock
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// anyArgs returns n pgxmock.AnyArg matchers, for expectations that accept any
// arguments (pgxmock v4 requires the expected and actual argument counts to
// match, so omitting WithArgs only matches zero-argument statements).
func anyArgs(n int) []interface{} {
	args := make([]interface{}, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func sampleCampaign() *domain.Campaign {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Campaign{
		ID:                        "camp-001",
		Name:                      "Holiday Sale",
		Description:               "10% off on all carts above 50",
		SponsorType:               domain.SponsorPlatform,
		Scope:                     domain.ScopeCart,
		DiscountType:              domain.DiscountTypePercentage,
		DiscountValue:             dec("10.00"),
		MaxDiscountCap:            decPtr("50.00"),
		StartDate:                 now,
		EndDate:                   now.Add(30 * 24 * time.Hour),
		TotalBudget:               dec("10000.00"),
		CurrentSpend:              dec("0.00"),
		MaxTransactionsPerUserDay: 1,
		TargetUserIDs:             []string{"user-1", "user-2"},
		IsActive:                  true,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
}

func campaignColumnNames() []string {
	return []string{
		"id", "name", "description", "sponsor_type", "vendor_id", "scope",
		"discount_type", "discount_value", "max_discount_cap", "start_date",
		"end_date", "total_budget", "current_spend",
		"max_transactions_per_user_day", "target_user_ids", "is_active",
		"created_at", "updated_at",
	}
}

func campaignRow(c *domain.Campaign) *pgxmock.Rows {
	targetsJSON, _ := json.Marshal(c.TargetUserIDs)

	return pgxmock.NewRows(campaignColumnNames()).
		AddRow(
			c.ID, c.Name, c.Description, c.SponsorType, c.VendorID, c.Scope,
			c.DiscountType, c.DiscountValue, c.MaxDiscountCap, c.StartDate,
			c.EndDate, c.TotalBudget, c.CurrentSpend,
			c.MaxTransactionsPerUserDay, targetsJSON, c.IsActive,
			c.CreatedAt, c.UpdatedAt,
		)
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestCampaignRepository_Create_Success(t *testing.T) {
	repo, mock := setupRepo(t)
	c := sampleCampaign()

	mock.ExpectExec("INSERT INTO campaigns").
		WithArgs(
			c.ID, c.Name, c.Description, c.SponsorType, c.VendorID, c.Scope,
			c.DiscountType, c.DiscountValue, c.MaxDiscountCap, c.StartDate,
			c.EndDate, c.TotalBudget, c.CurrentSpend,
			c.MaxTransactionsPerUserDay, pgxmock.AnyArg(), c.IsActive,
			c.CreatedAt, c.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), c)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_Create_DuplicateID(t *testing.T) {
	repo, mock := setupRepo(t)
	c := sampleCampaign()

	mock.ExpectExec("INSERT INTO campaigns").
		WithArgs(anyArgs(18)...).
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "campaigns_pkey" (SQLSTATE 23505)`))

	err := repo.Create(context.Background(), c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrAlreadyExists))
	require.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// GetByID
// ---------------------------------------------------------------------------

func TestCampaignRepository_GetByID_Success(t *testing.T) {
	repo, mock := setupRepo(t)
	c := sampleCampaign()

	mock.ExpectQuery("SELECT (.+) FROM campaigns").
		WithArgs(c.ID).
		WillReturnRows(campaignRow(c))

	got, err := repo.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, c.Name, got.Name)
	assert.True(t, got.DiscountValue.Equal(c.DiscountValue))
	assert.True(t, got.TotalBudget.Equal(c.TotalBudget))
	assert.Equal(t, []string{"user-1", "user-2"}, got.TargetUserIDs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM campaigns").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(campaignColumnNames()))

	got, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// List
// ---------------------------------------------------------------------------

func TestCampaignRepository_List_WithFilter(t *testing.T) {
	repo, mock := setupRepo(t)
	c := sampleCampaign()
	targetsJSON, _ := json.Marshal(c.TargetUserIDs)

	rows := pgxmock.NewRows(append(campaignColumnNames(), "total_count")).
		AddRow(
			c.ID, c.Name, c.Description, c.SponsorType, c.VendorID, c.Scope,
			c.DiscountType, c.DiscountValue, c.MaxDiscountCap, c.StartDate,
			c.EndDate, c.TotalBudget, c.CurrentSpend,
			c.MaxTransactionsPerUserDay, targetsJSON, c.IsActive,
			c.CreatedAt, c.UpdatedAt, 1,
		)

	active := true
	mock.ExpectQuery("SELECT (.+) FROM campaigns").
		WithArgs(active, 20, 0).
		WillReturnRows(rows)

	campaigns, total, err := repo.List(context.Background(), repository.CampaignFilter{
		IsActive: &active,
		Page:     1,
		PerPage:  20,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, campaigns, 1)
	assert.Equal(t, c.ID, campaigns[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_List_Empty(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM campaigns").
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows(append(campaignColumnNames(), "total_count")))

	campaigns, total, err := repo.List(context.Background(), repository.CampaignFilter{Page: 1, PerPage: 20})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NotNil(t, campaigns)
	assert.Empty(t, campaigns)
	require.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// ListActive
// ---------------------------------------------------------------------------

func TestCampaignRepository_ListActive(t *testing.T) {
	repo, mock := setupRepo(t)
	c := sampleCampaign()

	mock.ExpectQuery("SELECT (.+) FROM campaigns").
		WillReturnRows(campaignRow(c))

	campaigns, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	assert.Equal(t, c.ID, campaigns[0].ID)
	assert.True(t, campaigns[0].IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestCampaignRepository_Update_Success(t *testing.T) {
	repo, mock := setupRepo(t)
	c := sampleCampaign()

	mock.ExpectExec("UPDATE campaigns").
		WithArgs(
			c.Name, c.Description, c.SponsorType, c.VendorID, c.Scope,
			c.DiscountType, c.DiscountValue, c.MaxDiscountCap, c.StartDate,
			c.EndDate, c.TotalBudget, c.MaxTransactionsPerUserDay,
			pgxmock.AnyArg(), c.IsActive, pgxmock.AnyArg(), c.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Update(context.Background(), c)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_Update_NotFound(t *testing.T) {
	repo, mock := setupRepo(t)
	c := sampleCampaign()
	c.ID = "missing"

	mock.ExpectExec("UPDATE campaigns").
		WithArgs(anyArgs(16)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), c)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

// ---------------------------------------------------------------------------
// Delete
// ---------------------------------------------------------------------------

func TestCampaignRepository_Delete_Success(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectExec("DELETE FROM campaigns").
		WithArgs("camp-001").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.Delete(context.Background(), "camp-001")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCampaignRepository_Delete_NotFound(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectExec("DELETE FROM campaigns").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}
