package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/swiftcart/promotion-service/internal/domain"
	"github.com/swiftcart/promotion-service/internal/event"
	"github.com/swiftcart/promotion-service/internal/repository"
	apperrors "github.com/swiftcart/promotion-service/pkg/errors"
)

var oneHundred = decimal.NewFromInt(100)

// CampaignCatalog is the cached view of the active campaign set. Mutations go
// through Invalidate so the next read reloads from the database.
type CampaignCatalog interface {
	ActiveCampaigns(ctx context.Context) ([]domain.Campaign, error)
	Invalidate(ctx context.Context) error
}

// CampaignService implements the administrative campaign operations.
type CampaignService struct {
	repo     repository.CampaignRepository
	catalog  CampaignCatalog
	producer *event.Producer
	logger   *slog.Logger
}

// NewCampaignService creates a new campaign service.
func NewCampaignService(repo repository.CampaignRepository, catalog CampaignCatalog, producer *event.Producer, logger *slog.Logger) *CampaignService {
	return &CampaignService{
		repo:     repo,
		catalog:  catalog,
		producer: producer,
		logger:   logger,
	}
}

// CreateCampaignInput holds the parameters for creating a campaign.
type CreateCampaignInput struct {
	Name                      string
	Description               string
	SponsorType               string
	VendorID                  *int64
	Scope                     string
	DiscountType              string
	DiscountValue             decimal.Decimal
	MaxDiscountCap            *decimal.Decimal
	StartDate                 time.Time
	EndDate                   time.Time
	TotalBudget               decimal.Decimal
	MaxTransactionsPerUserDay int
	TargetUserIDs             []string
	IsActive                  bool
}

// UpdateCampaignInput holds the parameters for updating a campaign. Nil fields
// are left unchanged.
type UpdateCampaignInput struct {
	Name                      *string
	Description               *string
	SponsorType               *string
	VendorID                  *int64
	Scope                     *string
	DiscountType              *string
	DiscountValue             *decimal.Decimal
	MaxDiscountCap            *decimal.Decimal
	StartDate                 *time.Time
	EndDate                   *time.Time
	TotalBudget               *decimal.Decimal
	MaxTransactionsPerUserDay *int
	TargetUserIDs             []string
	IsActive                  *bool
}

// CreateCampaign creates a new campaign with the given input.
func (s *CampaignService) CreateCampaign(ctx context.Context, input *CreateCampaignInput) (*domain.Campaign, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("campaign name is required")
	}
	if !domain.IsValidSponsorType(input.SponsorType) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid sponsor type %q, must be one of: %s", input.SponsorType, strings.Join(domain.ValidSponsorTypes(), ", ")))
	}
	if input.SponsorType == domain.SponsorVendor && input.VendorID == nil {
		return nil, apperrors.InvalidInput("vendor-sponsored campaigns require a vendor_id")
	}
	if !domain.IsValidScope(input.Scope) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid scope %q, must be one of: %s", input.Scope, strings.Join(domain.ValidScopes(), ", ")))
	}
	if !domain.IsValidDiscountType(input.DiscountType) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid discount type %q, must be one of: %s", input.DiscountType, strings.Join(domain.ValidDiscountTypes(), ", ")))
	}
	if input.DiscountValue.IsNegative() {
		return nil, apperrors.InvalidInput("discount value must not be negative")
	}
	if input.DiscountType == domain.DiscountTypePercentage && input.DiscountValue.GreaterThan(oneHundred) {
		return nil, apperrors.InvalidInput("percentage discount must not exceed 100")
	}
	if input.MaxDiscountCap != nil && input.MaxDiscountCap.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.InvalidInput("max discount cap must be positive")
	}
	if input.TotalBudget.LessThan(decimal.Zero) {
		return nil, apperrors.InvalidInput("total budget must not be negative")
	}
	if input.MaxTransactionsPerUserDay < 1 {
		return nil, apperrors.InvalidInput("max transactions per user per day must be at least 1")
	}
	if input.EndDate.Before(input.StartDate) {
		return nil, apperrors.InvalidInput("end date must not be before start date")
	}

	now := time.Now().UTC()
	campaign := &domain.Campaign{
		ID:                        uuid.New().String(),
		Name:                      input.Name,
		Description:               input.Description,
		SponsorType:               input.SponsorType,
		VendorID:                  input.VendorID,
		Scope:                     input.Scope,
		DiscountType:              input.DiscountType,
		DiscountValue:             input.DiscountValue,
		MaxDiscountCap:            input.MaxDiscountCap,
		StartDate:                 input.StartDate,
		EndDate:                   input.EndDate,
		TotalBudget:               input.TotalBudget,
		CurrentSpend:              decimal.Zero,
		MaxTransactionsPerUserDay: input.MaxTransactionsPerUserDay,
		TargetUserIDs:             input.TargetUserIDs,
		IsActive:                  input.IsActive,
		CreatedAt:                 now,
		UpdatedAt:                 now,
	}

	if campaign.TargetUserIDs == nil {
		campaign.TargetUserIDs = []string{}
	}

	if err := s.repo.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("create campaign: %w", err)
	}

	s.invalidateCatalog(ctx, campaign.ID)

	if err := s.producer.PublishCampaignCreated(ctx, campaign); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish campaign.created event",
			slog.String("campaign_id", campaign.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "campaign created",
		slog.String("campaign_id", campaign.ID),
		slog.String("sponsor_type", campaign.SponsorType),
		slog.String("scope", campaign.Scope),
	)

	return campaign, nil
}

// GetCampaign retrieves a campaign by its ID.
func (s *CampaignService) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	campaign, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get campaign by id: %w", err)
	}
	return campaign, nil
}

// ListCampaigns returns a filtered, paginated list of campaigns.
func (s *CampaignService) ListCampaigns(ctx context.Context, filter repository.CampaignFilter) ([]domain.Campaign, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}

	campaigns, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}

	return campaigns, total, nil
}

// UpdateCampaign applies partial updates to an existing campaign.
func (s *CampaignService) UpdateCampaign(ctx context.Context, id string, input *UpdateCampaignInput) (*domain.Campaign, error) {
	campaign, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get campaign for update: %w", err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("campaign name must not be empty")
		}
		campaign.Name = *input.Name
	}

	if input.Description != nil {
		campaign.Description = *input.Description
	}

	if input.SponsorType != nil {
		if !domain.IsValidSponsorType(*input.SponsorType) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid sponsor type %q, must be one of: %s", *input.SponsorType, strings.Join(domain.ValidSponsorTypes(), ", ")))
		}
		campaign.SponsorType = *input.SponsorType
	}

	if input.VendorID != nil {
		campaign.VendorID = input.VendorID
	}

	if campaign.SponsorType == domain.SponsorVendor && campaign.VendorID == nil {
		return nil, apperrors.InvalidInput("vendor-sponsored campaigns require a vendor_id")
	}

	if input.Scope != nil {
		if !domain.IsValidScope(*input.Scope) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid scope %q, must be one of: %s", *input.Scope, strings.Join(domain.ValidScopes(), ", ")))
		}
		campaign.Scope = *input.Scope
	}

	if input.DiscountType != nil {
		if !domain.IsValidDiscountType(*input.DiscountType) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid discount type %q, must be one of: %s", *input.DiscountType, strings.Join(domain.ValidDiscountTypes(), ", ")))
		}
		campaign.DiscountType = *input.DiscountType
	}

	if input.DiscountValue != nil {
		if input.DiscountValue.IsNegative() {
			return nil, apperrors.InvalidInput("discount value must not be negative")
		}
		campaign.DiscountValue = *input.DiscountValue
	}

	if campaign.DiscountType == domain.DiscountTypePercentage && campaign.DiscountValue.GreaterThan(oneHundred) {
		return nil, apperrors.InvalidInput("percentage discount must not exceed 100")
	}

	if input.MaxDiscountCap != nil {
		if input.MaxDiscountCap.LessThanOrEqual(decimal.Zero) {
			return nil, apperrors.InvalidInput("max discount cap must be positive")
		}
		campaign.MaxDiscountCap = input.MaxDiscountCap
	}

	if input.StartDate != nil {
		campaign.StartDate = *input.StartDate
	}

	if input.EndDate != nil {
		campaign.EndDate = *input.EndDate
	}

	if campaign.EndDate.Before(campaign.StartDate) {
		return nil, apperrors.InvalidInput("end date must not be before start date")
	}

	if input.TotalBudget != nil {
		if input.TotalBudget.LessThan(campaign.CurrentSpend) {
			return nil, apperrors.InvalidInput("total budget must not be below the amount already spent")
		}
		campaign.TotalBudget = *input.TotalBudget
	}

	if input.MaxTransactionsPerUserDay != nil {
		if *input.MaxTransactionsPerUserDay < 1 {
			return nil, apperrors.InvalidInput("max transactions per user per day must be at least 1")
		}
		campaign.MaxTransactionsPerUserDay = *input.MaxTransactionsPerUserDay
	}

	if input.TargetUserIDs != nil {
		campaign.TargetUserIDs = input.TargetUserIDs
	}

	if input.IsActive != nil {
		campaign.IsActive = *input.IsActive
	}

	if err := s.repo.Update(ctx, campaign); err != nil {
		return nil, fmt.Errorf("update campaign: %w", err)
	}

	s.invalidateCatalog(ctx, campaign.ID)

	if err := s.producer.PublishCampaignUpdated(ctx, campaign); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish campaign.updated event",
			slog.String("campaign_id", campaign.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "campaign updated",
		slog.String("campaign_id", campaign.ID),
	)

	return campaign, nil
}

// DeactivateCampaign turns a campaign off without deleting it. Inactive
// campaigns disappear from discovery and reject redemptions.
func (s *CampaignService) DeactivateCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	campaign, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get campaign for deactivate: %w", err)
	}

	campaign.IsActive = false

	if err := s.repo.Update(ctx, campaign); err != nil {
		return nil, fmt.Errorf("deactivate campaign: %w", err)
	}

	s.invalidateCatalog(ctx, campaign.ID)

	if err := s.producer.PublishCampaignUpdated(ctx, campaign); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish campaign.updated event",
			slog.String("campaign_id", campaign.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "campaign deactivated",
		slog.String("campaign_id", campaign.ID),
	)

	return campaign, nil
}

// DeleteCampaign removes a campaign and its redemption history.
func (s *CampaignService) DeleteCampaign(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}

	s.invalidateCatalog(ctx, id)

	if err := s.producer.PublishCampaignDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish campaign.deleted event",
			slog.String("campaign_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "campaign deleted",
		slog.String("campaign_id", id),
	)

	return nil
}

// invalidateCatalog drops the cached campaign set after a mutation. A failed
// invalidation is logged, not propagated; the entry still expires by TTL.
func (s *CampaignService) invalidateCatalog(ctx context.Context, campaignID string) {
	if err := s.catalog.Invalidate(ctx); err != nil {
		s.logger.WarnContext(ctx, "failed to invalidate campaign catalog cache",
			slog.String("campaign_id", campaignID),
			slog.String("error", err.Error()),
		)
	}
}
