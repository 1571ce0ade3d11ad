package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"authgate/internal/auth/models"
	dErrors "authgate/pkg/domain-errors"
)

// Claims are the JWT claims carried by both access and refresh tokens.
// Kind distinguishes the two so a refresh token can never be presented
// where an access token is expected, and vice versa.
type Claims struct {
	UserID string           `json:"user_id"`
	Role   string           `json:"role"`
	Kind   models.TokenKind `json:"kind"`
	jwt.RegisteredClaims
}

// Pair is a freshly issued access/refresh token pair with expiries.
type Pair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Codec signs and verifies session credentials.
type Codec struct {
	signingKey []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	timeFunc   func() time.Time
}

type Option func(*Codec)

// WithTimeFunc overrides the clock used for expiry validation.
func WithTimeFunc(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.timeFunc = now
		}
	}
}

func NewCodec(signingKey string, issuer string, accessTTL, refreshTTL time.Duration, opts ...Option) *Codec {
	c := &Codec{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		timeFunc:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AccessTTL returns the configured access token lifetime.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// Issue signs a new access/refresh pair for the user. Each token carries
// a distinct JTI so two logins in the same second still produce distinct
// credentials.
func (c *Codec) Issue(userID uuid.UUID, role models.Role, now time.Time) (*Pair, error) {
	accessExpiry := now.Add(c.accessTTL)
	refreshExpiry := now.Add(c.refreshTTL)

	access, err := c.sign(userID, role, models.TokenKindAccess, now, accessExpiry)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign access token")
	}
	refresh, err := c.sign(userID, role, models.TokenKindRefresh, now, refreshExpiry)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign refresh token")
	}

	return &Pair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExpiry,
		RefreshExpiresAt: refreshExpiry,
	}, nil
}

func (c *Codec) sign(userID uuid.UUID, role models.Role, kind models.TokenKind, now, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID.String(),
		Role:   role.String(),
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    c.issuer,
			Subject:   userID.String(),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(c.signingKey)
}

// VerifyAccess validates the signature, expiry and kind of an access token.
func (c *Codec) VerifyAccess(tokenString string) (*Claims, error) {
	return c.verify(tokenString, models.TokenKindAccess)
}

// VerifyRefresh validates the signature, expiry and kind of a refresh token.
func (c *Codec) VerifyRefresh(tokenString string) (*Claims, error) {
	return c.verify(tokenString, models.TokenKindRefresh)
}

func (c *Codec) verify(tokenString string, kind models.TokenKind) (*Claims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeMissingToken, "empty token")
	}

	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return c.signingKey, nil
	},
		jwt.WithTimeFunc(c.timeFunc),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeTokenExpired, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeInvalidSignature, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeInvalidSignature, "invalid token")
	}

	if claims.Kind != kind {
		return nil, dErrors.New(dErrors.CodeInvalidSignature, "unexpected token kind")
	}
	if claims.Issuer != c.issuer {
		return nil, dErrors.New(dErrors.CodeInvalidSignature, "invalid token issuer")
	}
	if _, err := uuid.Parse(claims.UserID); err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidSignature, "invalid token subject")
	}

	return claims, nil
}

// ParseSkipExpiry parses a token WITHOUT validating expiration.
//
// SECURITY WARNING: this should ONLY be used where an expired credential
// still needs to be identified:
//   - logout, where revoking an already-expired token must stay idempotent
//   - refresh diagnostics, to distinguish expired from forged tokens
//
// Signature and algorithm are still validated. Callers MUST perform the
// remaining business validation (session lookup, revocation check).
func (c *Codec) ParseSkipExpiry(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, dErrors.New(dErrors.CodeMissingToken, "empty token")
	}

	claims := new(Claims)
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return c.signingKey, nil
	},
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidSignature, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeInvalidSignature, "invalid token")
	}

	return claims, nil
}
