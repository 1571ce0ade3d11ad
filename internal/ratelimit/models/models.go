package models

import (
	"time"

	authModels "authgate/internal/auth/models"
)

// Tier is the rate limit class an identity resolves to. Limits scale
// with account privilege; unauthenticated traffic shares the anonymous
// tier keyed by client IP.
type Tier string

const (
	TierAnonymous Tier = "anonymous"
	TierUser      Tier = "user"
	TierPro       Tier = "pro"
	TierPremium   Tier = "premium"
)

func (t Tier) IsValid() bool {
	switch t {
	case TierAnonymous, TierUser, TierPro, TierPremium:
		return true
	}
	return false
}

func (t Tier) String() string {
	return string(t)
}

// TierForRole maps an account role to its rate limit tier. Moderators
// share the pro tier; premium and admin accounts get the top tier.
func TierForRole(role authModels.Role) Tier {
	switch role {
	case authModels.RolePro, authModels.RoleModerator:
		return TierPro
	case authModels.RolePremium, authModels.RoleAdmin:
		return TierPremium
	case authModels.RoleUser:
		return TierUser
	default:
		return TierAnonymous
	}
}

// EndpointClass groups routes that share a dedicated limit on top of
// the tier limits.
type EndpointClass string

const (
	// ClassLogin: credential-guessing surface, tightly limited per IP.
	ClassLogin EndpointClass = "login"
	// ClassGeneral: everything else; tier limits only.
	ClassGeneral EndpointClass = "general"
)

// Decision is the outcome of admitting one request against one rule.
type Decision struct {
	Allowed    bool
	Rule       string
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds, only set when not allowed
}
