//go:build integration

package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"tally/internal/platform/lock"
	"tally/pkg/platform/sentinel"
	"tally/pkg/testutil/containers"
)

type RedisLockSuite struct {
	suite.Suite
	redis *containers.RedisContainer
}

func TestRedisLockSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisLockSuite))
}

func (s *RedisLockSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisLockSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLockSuite) TestSecondHolderTimesOut() {
	ctx := context.Background()
	first := lock.NewRedis(s.redis.Client)
	second := lock.NewRedis(s.redis.Client, lock.WithWait(100*time.Millisecond))

	unlock, err := first.Lock(ctx, "record-1")
	s.Require().NoError(err)

	_, err = second.Lock(ctx, "record-1")
	s.ErrorIs(err, sentinel.ErrLockNotObtained)

	unlock()
	unlockAgain, err := second.Lock(ctx, "record-1")
	s.Require().NoError(err)
	unlockAgain()
}

func (s *RedisLockSuite) TestExpiredLockIsReclaimed() {
	ctx := context.Background()
	short := lock.NewRedis(s.redis.Client, lock.WithTTL(50*time.Millisecond))

	_, err := short.Lock(ctx, "record-2")
	s.Require().NoError(err)

	other := lock.NewRedis(s.redis.Client, lock.WithWait(time.Second))
	unlock, err := other.Lock(ctx, "record-2")
	s.Require().NoError(err)
	unlock()
}
