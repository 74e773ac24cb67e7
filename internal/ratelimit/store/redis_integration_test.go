//go:build integration

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"votebooth/pkg/testutil"
	"votebooth/pkg/testutil/containers"
)

var errRefused = errors.New("refused")

type RedisLimitSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *RedisStore
}

func TestRedisLimitSuite(t *testing.T) {
	suite.Run(t, new(RedisLimitSuite))
}

func (s *RedisLimitSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = NewRedisStore(s.redis.Client)
}

func (s *RedisLimitSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisLimitSuite) TestRefusesOverLimitAndExpires() {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res, err := s.store.Allow(ctx, "checkin:10.0.0.1", 3, time.Minute)
		s.Require().NoError(err)
		s.True(res.Allowed)
		s.Equal(2-i, res.Remaining)
	}

	res, err := s.store.Allow(ctx, "checkin:10.0.0.1", 3, time.Minute)
	s.Require().NoError(err)
	s.False(res.Allowed)
	s.GreaterOrEqual(res.RetryAfter, 1)

	n, err := s.redis.Client.ZCard(ctx, keyPrefix+"checkin:10.0.0.1").Result()
	s.Require().NoError(err)
	s.Equal(int64(3), n, "refused requests are withdrawn from the window")

	ttl, err := s.redis.Client.PTTL(ctx, keyPrefix+"checkin:10.0.0.1").Result()
	s.Require().NoError(err)
	s.Greater(ttl, 50*time.Second)
}

func (s *RedisLimitSuite) TestConcurrentCallersNeverExceedLimit() {
	result := testutil.RunConcurrent(40, func(int) error {
		res, err := s.store.Allow(context.Background(), "checkin:burst", 5, time.Minute)
		if err != nil {
			return err
		}
		if !res.Allowed {
			return errRefused
		}
		return nil
	})
	s.Equal(int32(5), result.Successes)
}
