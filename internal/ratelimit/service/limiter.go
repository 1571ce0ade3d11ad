package service

import (
	"context"
	"log/slog"
	"time"

	"authgate/internal/counterstore"
	"authgate/internal/platform/config"
	"authgate/internal/platform/metrics"
	"authgate/internal/ratelimit/models"
)

// Rule is one fixed-window budget in an admit chain.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Subject identifies who is being limited: a user id for authenticated
// traffic, a client IP otherwise.
type Subject struct {
	Prefix     models.KeyPrefix
	Identifier string
	Tier       models.Tier
}

// Limiter admits requests against tiered fixed-window counters backed
// by a shared counter store, so every instance of the service sees the
// same windows.
//
// The limiter fails open: when the counter store is unreachable the
// request is admitted and the outage logged. Losing rate limiting for
// the duration of an outage is preferable to refusing all traffic.
type Limiter struct {
	store   counterstore.Store
	cfg     config.RateLimit
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

type Option func(*Limiter)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Limiter) {
		l.metrics = m
	}
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

func NewLimiter(store counterstore.Store, cfg config.RateLimit, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		cfg:    cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Enabled reports whether limiting is configured on.
func (l *Limiter) Enabled() bool {
	return l.cfg.Enabled
}

func tierBudget(cfg config.RateLimit, tier models.Tier) config.TierLimit {
	switch tier {
	case models.TierUser:
		return cfg.User
	case models.TierPro:
		return cfg.Pro
	case models.TierPremium:
		return cfg.Premium
	default:
		return cfg.Anonymous
	}
}

// chain builds the admit chain for a subject: burst guard, tier budget,
// hourly backstop. Order matters; the first denial wins and later rules
// are not charged.
func (l *Limiter) chain(tier models.Tier) []Rule {
	budget := tierBudget(l.cfg, tier)
	rules := make([]Rule, 0, 3)
	if l.cfg.Burst.Requests > 0 {
		rules = append(rules, Rule{Name: "burst", Limit: l.cfg.Burst.Requests, Window: l.cfg.Burst.Window})
	}
	rules = append(rules, Rule{Name: tier.String(), Limit: budget.Requests, Window: budget.Window})
	if l.cfg.Hourly.Requests > 0 {
		rules = append(rules, Rule{Name: "hourly", Limit: l.cfg.Hourly.Requests, Window: l.cfg.Hourly.Window})
	}
	return rules
}

// Admit charges one request against the subject's chain and reports the
// most constrained outcome. Denials short-circuit: rules after the
// failed one are not charged, so a blocked request does not consume the
// hourly budget.
func (l *Limiter) Admit(ctx context.Context, subject Subject) models.Decision {
	if !l.cfg.Enabled {
		return models.Decision{Allowed: true}
	}
	return l.admitChain(ctx, subject.Prefix, subject.Identifier, l.chain(subject.Tier))
}

// AdmitLogin charges one login attempt, keyed per email+IP so an
// attacker rotating targets cannot reuse a victim's budget. The two
// segments are escaped independently before joining so an IPv6 source
// cannot collide with a crafted email/IP split.
func (l *Limiter) AdmitLogin(ctx context.Context, email, ip string) models.Decision {
	if !l.cfg.Enabled || l.cfg.Login.Requests <= 0 {
		return models.Decision{Allowed: true}
	}
	identifier := models.JoinIdentifier(email, ip)
	rule := Rule{Name: string(models.ClassLogin), Limit: l.cfg.Login.Requests, Window: l.cfg.Login.Window}
	return l.admitChain(ctx, models.KeyPrefixIP, identifier, []Rule{rule})
}

func (l *Limiter) admitChain(ctx context.Context, prefix models.KeyPrefix, identifier string, rules []Rule) models.Decision {
	// Track the tightest allowed rule for response headers.
	decision := models.Decision{Allowed: true, Remaining: -1}

	for _, rule := range rules {
		key := models.NewKey(prefix, identifier, rule.Name).String()
		count, err := l.store.Incr(ctx, key, rule.Window)
		if err != nil {
			l.logger.ErrorContext(ctx, "rate limit store unavailable, admitting request",
				"rule", rule.Name,
				"error", err,
			)
			l.incrementStoreError()
			continue
		}

		if count > int64(rule.Limit) {
			retryAfter := l.retryAfter(ctx, key, rule.Window)
			l.incrementDenied(rule.Name)
			return models.Decision{
				Allowed:    false,
				Rule:       rule.Name,
				Limit:      rule.Limit,
				Remaining:  0,
				ResetAt:    l.now().Add(time.Duration(retryAfter) * time.Second),
				RetryAfter: retryAfter,
			}
		}

		remaining := rule.Limit - int(count)
		if decision.Remaining < 0 || remaining < decision.Remaining {
			decision.Rule = rule.Name
			decision.Limit = rule.Limit
			decision.Remaining = remaining
		}
		l.incrementAllowed(rule.Name)
	}

	if decision.Remaining < 0 {
		decision.Remaining = 0
	}
	return decision
}

// retryAfter reads the bucket's remaining window. Falls back to the full
// window when the store cannot report a TTL.
func (l *Limiter) retryAfter(ctx context.Context, key string, window time.Duration) int {
	ttl, err := l.store.TTL(ctx, key)
	if err != nil || ttl <= 0 {
		ttl = window
	}
	seconds := int(ttl.Round(time.Second).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

func (l *Limiter) incrementAllowed(rule string) {
	if l.metrics != nil {
		l.metrics.IncrementRateLimitAllowed(rule)
	}
}

func (l *Limiter) incrementDenied(rule string) {
	if l.metrics != nil {
		l.metrics.IncrementRateLimitDenied(rule)
	}
}

func (l *Limiter) incrementStoreError() {
	if l.metrics != nil {
		l.metrics.IncrementStoreErrors("ratelimit")
	}
}
