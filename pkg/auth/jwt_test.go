package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(now time.Time) *jwtService {
	svc := NewJWTService(Config{Secret: "test-secret", Issuer: "urovital", Expiry: time.Hour}).(*jwtService)
	svc.now = func() time.Time { return now }
	return svc
}

func TestGenerateAndValidate(t *testing.T) {
	now := time.Now()
	svc := newTestService(now)

	token, expiresAt, err := svc.GenerateAccessToken("actor-1")
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(time.Hour), expiresAt, time.Second)

	actorID, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "actor-1", actorID)
}

func TestValidateRejects(t *testing.T) {
	now := time.Now()
	svc := newTestService(now)

	token, _, err := svc.GenerateAccessToken("actor-1")
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := newTestService(now.Add(2 * time.Hour))
		_, err := later.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(Config{Secret: "other", Issuer: "urovital", Expiry: time.Hour})
		_, err := other.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTService(Config{Secret: "test-secret", Issuer: "someone-else", Expiry: time.Hour})
		_, err := other.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
			Subject: "actor-1",
			Issuer:  "urovital",
		}).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ValidateToken(unsigned)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Issuer:    "urovital",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}).SignedString([]byte("test-secret"))
		require.NoError(t, err)

		_, err = svc.ValidateToken(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
