package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	id "tally/pkg/domain"
	"tally/pkg/platform/sentinel"
)

const (
	merchantKeyPrefix  = "tally:merchants:"
	defaultMerchantTTL = 24 * time.Hour
)

// RedisMerchants caches each tenant's allow-list as a Redis set so replicas
// answer merchant checks without a database round trip. It only holds
// positive entries: a miss must be confirmed against the directory store.
type RedisMerchants struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisMerchants(client redis.UniversalClient, ttl time.Duration) *RedisMerchants {
	if ttl <= 0 {
		ttl = defaultMerchantTTL
	}
	return &RedisMerchants{client: client, ttl: ttl}
}

func merchantKey(tenantID id.TenantID) string {
	return merchantKeyPrefix + tenantID.String()
}

// Add records channel refs as known and refreshes the set's expiry.
func (r *RedisMerchants) Add(ctx context.Context, tenantID id.TenantID, channelRefs ...string) error {
	if len(channelRefs) == 0 {
		return nil
	}
	members := make([]any, len(channelRefs))
	for i, ref := range channelRefs {
		members[i] = ref
	}
	key := merchantKey(tenantID)
	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, key, members...)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache merchants: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}

func (r *RedisMerchants) Contains(ctx context.Context, tenantID id.TenantID, channelRef string) (bool, error) {
	ok, err := r.client.SIsMember(ctx, merchantKey(tenantID), channelRef).Result()
	if err != nil {
		return false, fmt.Errorf("check cached merchant: %w: %w", sentinel.ErrUnavailable, err)
	}
	return ok, nil
}
