package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/swiftcart/promotion-service/internal/domain"
	pkgkafka "github.com/swiftcart/promotion-service/pkg/kafka"
)

// Kafka topics for promotion domain events.
var (
	TopicCampaignCreated  = pkgkafka.Topic("campaign", "created")
	TopicCampaignUpdated  = pkgkafka.Topic("campaign", "updated")
	TopicCampaignDeleted  = pkgkafka.Topic("campaign", "deleted")
	TopicDiscountRedeemed = pkgkafka.Topic("discount", "redeemed")
)

// Aggregate type constant.
const AggregateTypeCampaign = "campaign"

// Source identifier for events originating from the promotion service.
const SourcePromotionService = "promotion-service"

// CampaignEventData is the payload for campaign.created and campaign.updated
// events.
type CampaignEventData struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	SponsorType   string          `json:"sponsor_type"`
	Scope         string          `json:"scope"`
	DiscountType  string          `json:"discount_type"`
	DiscountValue decimal.Decimal `json:"discount_value"`
	TotalBudget   decimal.Decimal `json:"total_budget"`
	IsActive      bool            `json:"is_active"`
}

// CampaignDeletedData is the payload for a campaign.deleted event.
type CampaignDeletedData struct {
	ID string `json:"id"`
}

// DiscountRedeemedData is the payload for a discount.redeemed event.
type DiscountRedeemedData struct {
	RedemptionID    string          `json:"redemption_id"`
	CampaignID      string          `json:"campaign_id"`
	UserID          string          `json:"user_id"`
	OrderID         string          `json:"order_id"`
	AppliedDiscount decimal.Decimal `json:"applied_discount"`
	CampaignSpend   decimal.Decimal `json:"campaign_spend"`
}

// Producer publishes promotion domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the promotion service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCampaignCreated publishes a campaign.created event.
func (p *Producer) PublishCampaignCreated(ctx context.Context, campaign *domain.Campaign) error {
	return p.publishCampaign(ctx, TopicCampaignCreated, campaign)
}

// PublishCampaignUpdated publishes a campaign.updated event.
func (p *Producer) PublishCampaignUpdated(ctx context.Context, campaign *domain.Campaign) error {
	return p.publishCampaign(ctx, TopicCampaignUpdated, campaign)
}

func (p *Producer) publishCampaign(ctx context.Context, topic string, campaign *domain.Campaign) error {
	data := CampaignEventData{
		ID:            campaign.ID,
		Name:          campaign.Name,
		SponsorType:   campaign.SponsorType,
		Scope:         campaign.Scope,
		DiscountType:  campaign.DiscountType,
		DiscountValue: campaign.DiscountValue,
		TotalBudget:   campaign.TotalBudget,
		IsActive:      campaign.IsActive,
	}

	event, err := pkgkafka.NewEvent(topic, campaign.ID, AggregateTypeCampaign, SourcePromotionService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published campaign event",
		slog.String("topic", topic),
		slog.String("campaign_id", campaign.ID),
	)

	return nil
}

// PublishCampaignDeleted publishes a campaign.deleted event.
func (p *Producer) PublishCampaignDeleted(ctx context.Context, campaignID string) error {
	data := CampaignDeletedData{ID: campaignID}

	event, err := pkgkafka.NewEvent(TopicCampaignDeleted, campaignID, AggregateTypeCampaign, SourcePromotionService, data)
	if err != nil {
		return fmt.Errorf("create campaign.deleted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCampaignDeleted, event); err != nil {
		return fmt.Errorf("publish campaign.deleted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published campaign.deleted event",
		slog.String("campaign_id", campaignID),
	)

	return nil
}

// PublishDiscountRedeemed publishes a discount.redeemed event after a
// redemption has been committed to the ledger.
func (p *Producer) PublishDiscountRedeemed(ctx context.Context, redemption *domain.Redemption, campaignSpend decimal.Decimal) error {
	data := DiscountRedeemedData{
		RedemptionID:    redemption.ID,
		CampaignID:      redemption.CampaignID,
		UserID:          redemption.UserID,
		OrderID:         redemption.OrderID,
		AppliedDiscount: redemption.AppliedDiscount,
		CampaignSpend:   campaignSpend,
	}

	event, err := pkgkafka.NewEvent(TopicDiscountRedeemed, redemption.CampaignID, AggregateTypeCampaign, SourcePromotionService, data)
	if err != nil {
		return fmt.Errorf("create discount.redeemed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicDiscountRedeemed, event); err != nil {
		return fmt.Errorf("publish discount.redeemed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published discount.redeemed event",
		slog.String("campaign_id", redemption.CampaignID),
		slog.String("order_id", redemption.OrderID),
		slog.String("user_id", redemption.UserID),
	)

	return nil
}
