// Package ratelimit implements the per-tenant admission gate in front of
// the orchestrator: a token bucket keyed by API key/tenant id.
package ratelimit

import "context"

// Limiter is the admission-check capability. Allow reports whether the
// tenant may proceed and updates internal state (token balance, refill
// timestamp) regardless of the outcome.
type Limiter interface {
	Allow(ctx context.Context, tenantID string) (bool, error)
}

// Config holds the default rate (tokens/sec) and burst for tenants that
// have no per-key override.
type Config struct {
	DefaultRPS   float64
	DefaultBurst float64
	// PerKey overrides rate/burst for specific tenant ids, mirroring the
	// "token:label:rps:burst" API key configuration format of spec.md §6.
	PerKey map[string]KeyConfig
}

// KeyConfig is a per-tenant rate/burst override.
type KeyConfig struct {
	RPS   float64
	Burst float64
}

func (c Config) rateFor(tenantID string) (rps, burst float64) {
	if kc, ok := c.PerKey[tenantID]; ok {
		return kc.RPS, kc.Burst
	}
	return c.DefaultRPS, c.DefaultBurst
}
