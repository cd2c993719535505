package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library_auth/internal/models"
)

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()

	id, err := uuid.NewV4()
	require.NoError(t, err)
	return id
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	codec := NewTokenCodec("test-secret", time.Hour)
	userID := mustUUID(t)

	token, err := codec.Issue(userID, models.RoleAdmin)
	require.NoError(t, err)

	claims, err := codec.Parse(token)
	require.NoError(t, err)

	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.NotNil(t, claims.IssuedAt)
	assert.NotNil(t, claims.ExpiresAt)
}

func TestTokenCodec_Expired(t *testing.T) {
	t.Parallel()

	codec := NewTokenCodec("test-secret", -1*time.Second)

	token, err := codec.Issue(mustUUID(t), models.RoleUser)
	require.NoError(t, err)

	_, err = codec.Parse(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenCodec_TamperedSignature(t *testing.T) {
	t.Parallel()

	codec := NewTokenCodec("test-secret", time.Hour)

	token, err := codec.Issue(mustUUID(t), models.RoleUser)
	require.NoError(t, err)

	last := token[len(token)-1]
	flipped := byte('A')
	if last == flipped {
		flipped = 'B'
	}
	tampered := token[:len(token)-1] + string(flipped)

	_, err = codec.Parse(tampered)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenCodec_TamperedPayload(t *testing.T) {
	t.Parallel()

	codec := NewTokenCodec("test-secret", time.Hour)

	token, err := codec.Issue(mustUUID(t), models.RoleUser)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)

	// Any bit-level change to the payload must break verification.
	payload := []byte(parts[1])
	if payload[0] == 'A' {
		payload[0] = 'B'
	} else {
		payload[0] = 'A'
	}
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	claims, err := codec.Parse(tampered)
	assert.Error(t, err)
	assert.Nil(t, claims)
}

func TestTokenCodec_WrongSecret(t *testing.T) {
	t.Parallel()

	issuer := NewTokenCodec("right-secret", time.Hour)
	verifier := NewTokenCodec("wrong-secret", time.Hour)

	token, err := issuer.Issue(mustUUID(t), models.RoleUser)
	require.NoError(t, err)

	_, err = verifier.Parse(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenCodec_MissingIssuedAt(t *testing.T) {
	t.Parallel()

	codec := NewTokenCodec("test-secret", time.Hour)
	userID := mustUUID(t)

	// A correctly signed token that never carried iat must be rejected,
	// not flow into the password-change comparison.
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID: userID,
		Role:   models.RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = codec.Parse(signed)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenCodec_Malformed(t *testing.T) {
	t.Parallel()

	codec := NewTokenCodec("test-secret", time.Hour)

	_, err := codec.Parse("not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenMalformed)

	_, err = codec.Parse("")
	assert.ErrorIs(t, err, ErrTokenMalformed)
}
