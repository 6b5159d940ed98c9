package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/swiftcart/promotion-service/pkg/errors"
	pkgkafka "github.com/swiftcart/promotion-service/pkg/kafka"

	"github.com/swiftcart/promotion-service/internal/domain"
	"github.com/swiftcart/promotion-service/internal/event"
	"github.com/swiftcart/promotion-service/internal/repository"
)

// --- Mock Repository ---

type mockCampaignRepository struct {
	mock.Mock
}

func (m *mockCampaignRepository) Create(ctx context.Context, campaign *domain.Campaign) error {
	args := m.Called(ctx, campaign)
	return args.Error(0)
}

func (m *mockCampaignRepository) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Campaign), args.Error(1)
}

func (m *mockCampaignRepository) List(ctx context.Context, filter repository.CampaignFilter) ([]domain.Campaign, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Campaign), args.Int(1), args.Error(2)
}

func (m *mockCampaignRepository) ListActive(ctx context.Context) ([]domain.Campaign, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Campaign), args.Error(1)
}

func (m *mockCampaignRepository) Update(ctx context.Context, campaign *domain.Campaign) error {
	args := m.Called(ctx, campaign)
	return args.Error(0)
}

func (m *mockCampaignRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Fake Catalog ---

// fakeCatalog records invalidations and serves a static campaign set.
type fakeCatalog struct {
	active          []domain.Campaign
	activeErr       error
	invalidations   int
	invalidationErr error
}

func (f *fakeCatalog) ActiveCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	if f.activeErr != nil {
		return nil, f.activeErr
	}
	return f.active, nil
}

func (f *fakeCatalog) Invalidate(ctx context.Context) error {
	f.invalidations++
	return f.invalidationErr
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestProducer() *event.Producer {
	logger := newTestLogger()
	// A Kafka producer pointed at a dead broker; publish errors are logged
	// by the service, never returned.
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func newTestCampaignService(repo *mockCampaignRepository) (*CampaignService, *fakeCatalog) {
	catalog := &fakeCatalog{}
	return NewCampaignService(repo, catalog, newTestProducer(), newTestLogger()), catalog
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func int64Ptr(i int64) *int64 { return &i }

func boolPtr(b bool) *bool { return &b }

func validCreateInput() *CreateCampaignInput {
	now := time.Now().UTC()
	return &CreateCampaignInput{
		Name:                      "Summer Cart Sale",
		Description:               "20 percent off carts",
		SponsorType:               domain.SponsorPlatform,
		Scope:                     domain.ScopeCart,
		DiscountType:              domain.DiscountTypePercentage,
		DiscountValue:             dec("20"),
		MaxDiscountCap:            decPtr("150"),
		StartDate:                 now.Add(-time.Hour),
		EndDate:                   now.Add(30 * 24 * time.Hour),
		TotalBudget:               dec("10000"),
		MaxTransactionsPerUserDay: 1,
		IsActive:                  true,
	}
}

func storedCampaign() *domain.Campaign {
	now := time.Now().UTC()
	return &domain.Campaign{
		ID:                        "camp-001",
		Name:                      "Summer Cart Sale",
		SponsorType:               domain.SponsorPlatform,
		Scope:                     domain.ScopeCart,
		DiscountType:              domain.DiscountTypePercentage,
		DiscountValue:             dec("20"),
		StartDate:                 now.Add(-time.Hour),
		EndDate:                   now.Add(30 * 24 * time.Hour),
		TotalBudget:               dec("10000"),
		CurrentSpend:              dec("100"),
		MaxTransactionsPerUserDay: 1,
		TargetUserIDs:             []string{},
		IsActive:                  true,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}
}

// --- CreateCampaign ---

func TestCreateCampaign_Success(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc, catalog := newTestCampaignService(repo)

	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Campaign")).Return(nil)

	campaign, err := svc.CreateCampaign(context.Background(), validCreateInput())
	require.NoError(t, err)
	assert.NotEmpty(t, campaign.ID)
	assert.Equal(t, "Summer Cart Sale", campaign.Name)
	assert.True(t, campaign.CurrentSpend.IsZero())
	assert.NotNil(t, campaign.TargetUserIDs)
	assert.Equal(t, 1, catalog.invalidations)
	repo.AssertExpectations(t)
}

func TestCreateCampaign_ValidationFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateCampaignInput)
	}{
		{"empty name", func(in *CreateCampaignInput) { in.Name = "" }},
		{"invalid sponsor type", func(in *CreateCampaignInput) { in.SponsorType = "CHARITY" }},
		{"vendor without vendor id", func(in *CreateCampaignInput) { in.SponsorType = domain.SponsorVendor; in.VendorID = nil }},
		{"invalid scope", func(in *CreateCampaignInput) { in.Scope = "SHIPPING" }},
		{"invalid discount type", func(in *CreateCampaignInput) { in.DiscountType = "BOGO" }},
		{"negative discount value", func(in *CreateCampaignInput) { in.DiscountValue = dec("-5") }},
		{"percentage above 100", func(in *CreateCampaignInput) { in.DiscountValue = dec("120") }},
		{"non-positive cap", func(in *CreateCampaignInput) { in.MaxDiscountCap = decPtr("0") }},
		{"negative budget", func(in *CreateCampaignInput) { in.TotalBudget = dec("-1") }},
		{"zero daily limit", func(in *CreateCampaignInput) { in.MaxTransactionsPerUserDay = 0 }},
		{"end before start", func(in *CreateCampaignInput) { in.EndDate = in.StartDate.Add(-time.Hour) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockCampaignRepository)
			svc, catalog := newTestCampaignService(repo)

			input := validCreateInput()
			tt.mutate(input)

			campaign, err := svc.CreateCampaign(context.Background(), input)
			require.Error(t, err)
			assert.Nil(t, campaign)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
			assert.Equal(t, 0, catalog.invalidations)
			repo.AssertNotCalled(t, "Create")
		})
	}
}

func TestCreateCampaign_ZeroDiscountValueAllowed(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc, _ := newTestCampaignService(repo)

	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Campaign")).Return(nil)

	input := validCreateInput()
	input.DiscountType = domain.DiscountTypeFixed
	input.DiscountValue = decimal.Zero
	input.MaxDiscountCap = nil

	campaign, err := svc.CreateCampaign(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, campaign.DiscountValue.IsZero())
}

func TestCreateCampaign_EndDateEqualToStartDateAllowed(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc, _ := newTestCampaignService(repo)

	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Campaign")).Return(nil)

	input := validCreateInput()
	input.EndDate = input.StartDate

	campaign, err := svc.CreateCampaign(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, campaign.EndDate.Equal(campaign.StartDate))
}

func TestCreateCampaign_VendorSponsorWithVendorID(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc, _ := newTestCampaignService(repo)

	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Campaign")).Return(nil)

	input := validCreateInput()
	input.SponsorType = domain.SponsorVendor
	input.VendorID = int64Ptr(42)

	campaign, err := svc.CreateCampaign(context.Background(), input)
	require.NoError(t, err)
	require.NotNil(t, campaign.VendorID)
	assert.Equal(t, int64(42), *campaign.VendorID)
}

func TestCreateCampaign_RepositoryError(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc, catalog := newTestCampaignService(repo)

	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	campaign, err := svc.CreateCampaign(context.Background(), validCreateInput())
	require.Error(t, err)
	assert.Nil(t, campaign)
	assert.Equal(t, 0, catalog.invalidations)
}

// --- GetCampaign ---

func TestGetCampaign_NotFound(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc, _ := newTestCampaignService(repo)

	repo.On("GetByID", mock.Anything, "missing").Return(nil, apperrors.NotFound("campaign", "missing"))

	campaign, err := svc.GetCampaign(context.Background(), "missing")
	require.Error(t, err)
	assert.Nil(t, campaign)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

// --- ListCampaigns ---

func TestListCampaigns_NormalizesPagination(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc, _ := newTestCampaignService(repo)

	expected := repository.CampaignFilter{Page: 1, PerPage: 20}
	repo.On("List", mock.Anything, expected).Return([]domain.Campaign{}, 0, nil)

	_, _, err := svc.ListCampaigns(context.Background(), repository.CampaignFilter{Page: -3, PerPage: 0})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestListCampaigns_CapsPerPage(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc, _ := newTestCampaignService(repo)

	expected := repository.CampaignFilter{Page: 2, PerPage: 100}
	repo.On("List", mock.Anything, expected).Return([]domain.Campaign{}, 0, nil)

	_, _, err := svc.ListCampaigns(context.Background(), repository.CampaignFilter{Page: 2, PerPage: 500})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

// --- UpdateCampaign ---

func TestUpdateCampaign_PartialUpdate(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc, catalog := newTestCampaignService(repo)

	existing := storedCampaign()
	repo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Campaign")).Return(nil)

	updated, err := svc.UpdateCampaign(context.Background(), existing.ID, &UpdateCampaignInput{
		Name:          strPtr("Renamed Sale"),
		DiscountValue: decPtr("25"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed Sale", updated.Name)
	assert.True(t, updated.DiscountValue.Equal(dec("25")))
	assert.Equal(t, domain.ScopeCart, updated.Scope)
	assert.Equal(t, 1, catalog.invalidations)
}

func TestUpdateCampaign_BudgetBelowSpend(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc, _ := newTestCampaignService(repo)

	existing := storedCampaign() // CurrentSpend is 100
	repo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)

	updated, err := svc.UpdateCampaign(context.Background(), existing.ID, &UpdateCampaignInput{
		TotalBudget: decPtr("50"),
	})
	require.Error(t, err)
	assert.Nil(t, updated)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	repo.AssertNotCalled(t, "Update")
}

func TestUpdateCampaign_InvalidDailyLimit(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc, _ := newTestCampaignService(repo)

	existing := storedCampaign()
	repo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)

	_, err := svc.UpdateCampaign(context.Background(), existing.ID, &UpdateCampaignInput{
		MaxTransactionsPerUserDay: intPtr(0),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

// --- DeactivateCampaign ---

func TestDeactivateCampaign(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc, catalog := newTestCampaignService(repo)

	existing := storedCampaign()
	repo.On("GetByID", mock.Anything, existing.ID).Return(existing, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(c *domain.Campaign) bool {
		return !c.IsActive
	})).Return(nil)

	campaign, err := svc.DeactivateCampaign(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.False(t, campaign.IsActive)
	assert.Equal(t, 1, catalog.invalidations)
	repo.AssertExpectations(t)
}

// --- DeleteCampaign ---

func TestDeleteCampaign(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc, catalog := newTestCampaignService(repo)

	repo.On("Delete", mock.Anything, "camp-001").Return(nil)

	require.NoError(t, svc.DeleteCampaign(context.Background(), "camp-001"))
	assert.Equal(t, 1, catalog.invalidations)
}

func TestDeleteCampaign_NotFound(t *testing.T) {
	repo := new(mockCampaignRepository)
	svc, catalog := newTestCampaignService(repo)

	repo.On("Delete", mock.Anything, "missing").Return(apperrors.NotFound("campaign", "missing"))

	err := svc.DeleteCampaign(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, 0, catalog.invalidations)
}
