package ratelimit

import "time"

// Tier names accepted by the admin surface
const (
	TierWebhook = "webhook"
	TierAPI     = "api"
	TierAuth    = "auth"
)

// Set bundles the three limiter tiers a deployment runs: permissive
// public webhook traffic, moderate authenticated API traffic, and
// strict auth endpoints.
type Set struct {
	Webhook *Limiter
	API     *Limiter
	Auth    *Limiter
}

// ByTier returns the limiter for a tier name, or nil
func (s *Set) ByTier(tier string) *Limiter {
	switch tier {
	case TierWebhook:
		return s.Webhook
	case TierAPI:
		return s.API
	case TierAuth:
		return s.Auth
	default:
		return nil
	}
}

// StartCleanup launches the background sweeper on every tier
func (s *Set) StartCleanup(interval time.Duration) {
	s.Webhook.StartCleanup(interval)
	s.API.StartCleanup(interval)
	s.Auth.StartCleanup(interval)
}

// Stop terminates all background sweepers
func (s *Set) Stop() {
	s.Webhook.Stop()
	s.API.Stop()
	s.Auth.Stop()
}
