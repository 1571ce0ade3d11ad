// Package password wraps bcrypt hashing behind a small, configuration-driven
// hasher so credential verification stays uniform across the auth service.
package password

import (
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used when none is configured.
const DefaultCost = 12

// Hasher hashes and verifies passwords with bcrypt at a fixed cost.
type Hasher struct {
	cost      int
	dummyHash []byte
}

// New creates a Hasher with the given bcrypt cost. Costs outside the valid
// bcrypt range fall back to DefaultCost.
func New(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	// Precomputed hash of an unguessable value, compared against incoming
	// passwords when the account does not exist. Keeps the timing profile of
	// unknown-email and wrong-password failures indistinguishable.
	dummy, err := bcrypt.GenerateFromPassword([]byte("authgate-dummy-password-4f1c"), cost)
	if err != nil {
		// Only reachable with an invalid cost, which is guarded above.
		panic(err)
	}
	return &Hasher{cost: cost, dummyHash: dummy}
}

// Hash returns the bcrypt hash of the given plaintext password.
func (h *Hasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored bcrypt hash.
func (h *Hasher) Verify(hash, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// VerifyDummy burns a bcrypt comparison against a throwaway hash. Called on
// login attempts for unknown emails so response timing does not reveal
// whether an account exists.
func (h *Hasher) VerifyDummy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(plaintext))
}
