package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "tally/pkg/domain"
)

func TestNow(t *testing.T) {
	t.Run("falls back to wall clock", func(t *testing.T) {
		before := time.Now()
		got := Now(context.Background())
		assert.False(t, got.Before(before))
	})

	t.Run("returns injected time", func(t *testing.T) {
		fixed := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
		assert.Equal(t, fixed, Now(WithTime(context.Background(), fixed)))
	})
}

func TestScopedValues(t *testing.T) {
	tenant := id.NewTenantID()
	ctx := WithRequestID(WithTenantID(context.Background(), tenant), "req-1")

	assert.Equal(t, tenant, TenantID(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.True(t, TenantID(context.Background()).IsNil())
	assert.Empty(t, RequestID(context.Background()))
}
