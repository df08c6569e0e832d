// Package cache provides identity.Cache implementations.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/TylerGelinas/socure/internal/identity"
	"github.com/TylerGelinas/socure/pkg/platform/sentinel"
)

// LRU is a size-bounded in-process cache whose entries expire after a TTL.
type LRU struct {
	lru *expirable.LRU[string, identity.Record]
}

// NewLRU creates a cache holding at most size records for ttl each.
func NewLRU(size int, ttl time.Duration) *LRU {
	return &LRU{lru: expirable.NewLRU[string, identity.Record](size, nil, ttl)}
}

func (c *LRU) Name() string { return "lru" }

func (c *LRU) Get(_ context.Context, subject string) (*identity.Record, error) {
	rec, ok := c.lru.Get(subject)
	if !ok {
		return nil, sentinel.ErrCacheMiss
	}
	return &rec, nil
}

func (c *LRU) Set(_ context.Context, subject string, record *identity.Record) error {
	if record == nil {
		return nil
	}
	c.lru.Add(subject, *record)
	return nil
}

func (c *LRU) Len() int { return c.lru.Len() }
