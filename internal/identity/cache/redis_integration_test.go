//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/guregu/null/v5"
	"github.com/stretchr/testify/suite"

	"github.com/TylerGelinas/socure/internal/identity"
	"github.com/TylerGelinas/socure/pkg/platform/sentinel"
	"github.com/TylerGelinas/socure/pkg/testutil/containers"
)

type RedisSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *Redis
}

func TestRedisSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisSuite))
}

func (s *RedisSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.cache = NewRedis(s.redis.Client, time.Minute)
}

func (s *RedisSuite) SetupTest() {
	s.Require().NoError(s.redis.Flush(context.Background()))
}

func (s *RedisSuite) TestRoundTripPreservesNulls() {
	ctx := context.Background()
	rec := &identity.Record{GivenName: null.StringFrom("Ada"), Email: null.StringFrom("ada@example.com")}
	s.Require().NoError(s.cache.Set(ctx, "user-1", rec))

	got, err := s.cache.Get(ctx, "user-1")
	s.Require().NoError(err)
	s.Equal(*rec, *got)
	s.False(got.Phone.Valid)
}

func (s *RedisSuite) TestMiss() {
	_, err := s.cache.Get(context.Background(), "ghost")
	s.ErrorIs(err, sentinel.ErrCacheMiss)
}

func (s *RedisSuite) TestKeysDoNotContainSubject() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "alice@example.com", &identity.Record{}))

	keys, err := s.redis.Client.Keys(ctx, "*").Result()
	s.Require().NoError(err)
	s.Require().Len(keys, 1)
	s.NotContains(keys[0], "alice")
	s.Contains(keys[0], redisKeyPrefix)
}

func (s *RedisSuite) TestTTLApplied() {
	ctx := context.Background()
	s.Require().NoError(s.cache.Set(ctx, "user-1", &identity.Record{}))
	ttl, err := s.redis.Client.TTL(ctx, key("user-1")).Result()
	s.Require().NoError(err)
	s.Greater(ttl, 50*time.Second)
}
