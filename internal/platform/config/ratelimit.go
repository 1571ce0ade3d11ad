package config

import "time"

// TierLimit defines a fixed-window budget for one rate-limit tier.
type TierLimit struct {
	Requests int
	Window   time.Duration
}

// RateLimit captures the tiered limiter configuration. All values are
// per-identity (user id when authenticated, client IP otherwise).
type RateLimit struct {
	Enabled bool

	// Tier budgets for the general per-minute limiter.
	Anonymous TierLimit
	User      TierLimit
	Pro       TierLimit
	Premium   TierLimit

	// Burst bounds short spikes independently of the general budget.
	Burst TierLimit
	// Hourly is a coarse backstop applied after the general limiter.
	Hourly TierLimit
	// Login throttles authentication attempts keyed by email+IP.
	Login TierLimit
}

// RateLimitFromEnv builds the limiter configuration. Defaults:
// anonymous 20/min, user 50/min, pro 200/min, premium and admin 500/min.
func RateLimitFromEnv() RateLimit {
	return RateLimit{
		Enabled:   envString("AUTHGATE_RATELIMIT_ENABLED", "true") == "true",
		Anonymous: TierLimit{Requests: envInt("AUTHGATE_RL_ANONYMOUS", 20), Window: time.Minute},
		User:      TierLimit{Requests: envInt("AUTHGATE_RL_USER", 50), Window: time.Minute},
		Pro:       TierLimit{Requests: envInt("AUTHGATE_RL_PRO", 200), Window: time.Minute},
		Premium:   TierLimit{Requests: envInt("AUTHGATE_RL_PREMIUM", 500), Window: time.Minute},
		Burst: TierLimit{
			Requests: envInt("AUTHGATE_RL_BURST", 10),
			Window:   envDuration("AUTHGATE_RL_BURST_WINDOW", time.Second),
		},
		Hourly: TierLimit{
			Requests: envInt("AUTHGATE_RL_HOURLY", 2000),
			Window:   time.Hour,
		},
		Login: TierLimit{
			Requests: envInt("AUTHGATE_RL_LOGIN", 10),
			Window:   envDuration("AUTHGATE_RL_LOGIN_WINDOW", 15*time.Minute),
		},
	}
}
