package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

const ruleSetKey = "rules:active"

// RuleSource serves the active rule set through a cache. With a zero TTL
// caching is disabled and every call reads the underlying source, which
// keeps rule changes visible to the next analysis. With a positive TTL
// staleness is bounded by the TTL and by Invalidate, which the rule
// admin endpoints call on every mutation.
type RuleSource struct {
	src   domain.RuleSource
	store domain.Cache
	ttl   time.Duration
}

// NewRuleSource wraps src with a cache layer.
func NewRuleSource(src domain.RuleSource, store domain.Cache, ttl time.Duration) *RuleSource {
	return &RuleSource{src: src, store: store, ttl: ttl}
}

// ActiveRules returns the active rule set, read through the cache.
// Cache faults fall back to the underlying source.
func (s *RuleSource) ActiveRules(ctx context.Context) ([]*domain.FraudRule, error) {
	if s.ttl <= 0 {
		return s.src.ActiveRules(ctx)
	}

	if data, err := s.store.Get(ctx, ruleSetKey); err == nil && data != nil {
		var rules []*domain.FraudRule
		if err := json.Unmarshal(data, &rules); err == nil {
			return rules, nil
		}
	}

	rules, err := s.src.ActiveRules(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rules); err == nil {
		_ = s.store.Set(ctx, ruleSetKey, data, s.ttl)
	}

	return rules, nil
}

// Invalidate drops the cached rule set. Called after every rule mutation.
func (s *RuleSource) Invalidate(ctx context.Context) error {
	if s.ttl <= 0 {
		return nil
	}
	if err := s.store.Delete(ctx, ruleSetKey); err != nil {
		return fmt.Errorf("invalidate rule cache: %w", err)
	}
	return nil
}
