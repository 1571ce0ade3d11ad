package tokens

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/internal/auth/models"
	dErrors "authgate/pkg/domain-errors"
)

var testUserID = uuid.New()

var codec = NewCodec("test-signing-key", "authgate-test", 24*time.Hour, 7*24*time.Hour)

func Test_Issue_RoundTrip(t *testing.T) {
	now := time.Now()
	pair, err := codec.Issue(testUserID, models.RoleUser, now)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.WithinDuration(t, now.Add(24*time.Hour), pair.AccessExpiresAt, time.Second)
	assert.WithinDuration(t, now.Add(7*24*time.Hour), pair.RefreshExpiresAt, time.Second)

	claims, err := codec.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, testUserID.String(), claims.UserID)
	assert.Equal(t, models.RoleUser.String(), claims.Role)
	assert.Equal(t, models.TokenKindAccess, claims.Kind)

	claims, err = codec.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, models.TokenKindRefresh, claims.Kind)
}

func Test_Issue_DistinctJTIs(t *testing.T) {
	now := time.Now()
	a, err := codec.Issue(testUserID, models.RoleUser, now)
	require.NoError(t, err)
	b, err := codec.Issue(testUserID, models.RoleUser, now)
	require.NoError(t, err)
	assert.NotEqual(t, a.AccessToken, b.AccessToken)
	assert.NotEqual(t, a.RefreshToken, b.RefreshToken)
}

func Test_Verify_KindMismatch(t *testing.T) {
	pair, err := codec.Issue(testUserID, models.RoleUser, time.Now())
	require.NoError(t, err)

	_, err = codec.VerifyAccess(pair.RefreshToken)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidSignature))

	_, err = codec.VerifyRefresh(pair.AccessToken)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidSignature))
}

func Test_Verify_Expired(t *testing.T) {
	short := NewCodec("test-signing-key", "authgate-test", -time.Minute, -time.Minute)
	pair, err := short.Issue(testUserID, models.RoleUser, time.Now())
	require.NoError(t, err)

	_, err = short.VerifyAccess(pair.AccessToken)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTokenExpired))
}

func Test_Verify_WrongKey(t *testing.T) {
	other := NewCodec("other-key", "authgate-test", time.Hour, time.Hour)
	pair, err := other.Issue(testUserID, models.RoleUser, time.Now())
	require.NoError(t, err)

	_, err = codec.VerifyAccess(pair.AccessToken)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidSignature))
}

func Test_Verify_WrongIssuer(t *testing.T) {
	other := NewCodec("test-signing-key", "someone-else", time.Hour, time.Hour)
	pair, err := other.Issue(testUserID, models.RoleUser, time.Now())
	require.NoError(t, err)

	_, err = codec.VerifyAccess(pair.AccessToken)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidSignature))
}

func Test_Verify_Empty(t *testing.T) {
	_, err := codec.VerifyAccess("")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeMissingToken))
}

func Test_Verify_RejectsAlgorithmConfusion(t *testing.T) {
	claims := Claims{
		UserID: testUserID.String(),
		Role:   models.RoleUser.String(),
		Kind:   models.TokenKindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			Issuer:    "authgate-test",
		},
	}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	tokenString, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = codec.VerifyAccess(tokenString)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidSignature))
}

func Test_ParseSkipExpiry(t *testing.T) {
	short := NewCodec("test-signing-key", "authgate-test", -time.Minute, -time.Minute)
	pair, err := short.Issue(testUserID, models.RoleUser, time.Now())
	require.NoError(t, err)

	// Verify rejects the expired token; ParseSkipExpiry still identifies it.
	_, err = short.VerifyAccess(pair.AccessToken)
	require.Error(t, err)

	claims, err := short.ParseSkipExpiry(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, testUserID.String(), claims.UserID)

	// Signature is still enforced.
	_, err = codec.ParseSkipExpiry(pair.AccessToken)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidSignature))
}
