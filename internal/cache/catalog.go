package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"

	"github.com/swiftcart/promotion-service/internal/domain"
	"github.com/swiftcart/promotion-service/internal/repository"
)

// activeCampaignsKey is the single cache entry holding the full active
// campaign set. The set is small and always consumed whole, so one key is
// simpler than per-campaign entries and invalidation is a single DEL.
const activeCampaignsKey = "campaigns:active"

var (
	catalogCacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campaign_catalog_cache_hits_total",
		Help: "Total number of active-campaign reads served from Redis",
	})

	catalogCacheMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campaign_catalog_cache_misses_total",
		Help: "Total number of active-campaign reads that fell through to PostgreSQL",
	})
)

func init() {
	prometheus.MustRegister(catalogCacheHits)
	prometheus.MustRegister(catalogCacheMisses)
}

// Catalog is a read-through Redis cache over the active campaign set.
// Reads go through a circuit breaker; when Redis is down or the breaker is
// open, reads fall back to PostgreSQL so discovery keeps working without the
// cache. Cached campaign state (current_spend in particular) may lag the
// ledger by up to the TTL and is advisory only.
type Catalog struct {
	client  *redis.Client
	repo    repository.CampaignRepository
	breaker *gobreaker.CircuitBreaker[[]byte]
	ttl     time.Duration
	logger  *slog.Logger
}

// NewCatalog creates a catalog cache backed by the given Redis client, with
// repo as the authoritative load source on miss.
func NewCatalog(client *redis.Client, repo repository.CampaignRepository, ttl time.Duration, logger *slog.Logger) *Catalog {
	settings := gobreaker.Settings{
		Name:    "campaign-catalog-redis",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	}

	return &Catalog{
		client:  client,
		repo:    repo,
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
		ttl:     ttl,
		logger:  logger,
	}
}

// ActiveCampaigns returns the active campaign set, serving from Redis when a
// fresh entry exists and reloading from PostgreSQL otherwise. Any cache
// failure degrades to a direct database read.
func (c *Catalog) ActiveCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	data, err := c.breaker.Execute(func() ([]byte, error) {
		return c.client.Get(ctx, activeCampaignsKey).Bytes()
	})
	if err == nil {
		var campaigns []domain.Campaign
		if err := json.Unmarshal(data, &campaigns); err == nil {
			catalogCacheHits.Inc()
			return campaigns, nil
		}
		// A corrupt entry is treated as a miss and overwritten below.
		c.logger.WarnContext(ctx, "discarding corrupt catalog cache entry",
			slog.String("key", activeCampaignsKey),
		)
	} else if err != redis.Nil {
		c.logger.WarnContext(ctx, "catalog cache read failed, falling back to database",
			slog.String("error", err.Error()),
		)
	}

	catalogCacheMisses.Inc()

	campaigns, err := c.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active campaigns: %w", err)
	}

	c.store(ctx, campaigns)

	return campaigns, nil
}

// Invalidate drops the cached campaign set so the next read reloads from
// PostgreSQL. Called after every campaign mutation and every successful
// redemption.
func (c *Catalog) Invalidate(ctx context.Context) error {
	_, err := c.breaker.Execute(func() ([]byte, error) {
		return nil, c.client.Del(ctx, activeCampaignsKey).Err()
	})
	if err != nil {
		c.logger.WarnContext(ctx, "catalog cache invalidation failed",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("invalidate catalog cache: %w", err)
	}
	return nil
}

// store writes the campaign set to Redis with the configured TTL. Failures
// are logged and swallowed; the next read just misses again.
func (c *Catalog) store(ctx context.Context, campaigns []domain.Campaign) {
	data, err := json.Marshal(campaigns)
	if err != nil {
		c.logger.WarnContext(ctx, "marshal catalog cache entry failed",
			slog.String("error", err.Error()),
		)
		return
	}

	_, err = c.breaker.Execute(func() ([]byte, error) {
		return nil, c.client.Set(ctx, activeCampaignsKey, data, c.ttl).Err()
	})
	if err != nil {
		c.logger.WarnContext(ctx, "catalog cache write failed",
			slog.String("error", err.Error()),
		)
	}
}
