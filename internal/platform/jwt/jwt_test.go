package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "verigate/pkg/domain-errors"
)

var (
	jwtService = NewService("test-signing-key", "test-issuer", "test-audience")
	userID     = uuid.New()
	sessionID  = uuid.New()
)

func TestGenerateAndValidate(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(userID, sessionID, time.Hour)
	require.NoError(t, err)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, sessionID.String(), claims.SessionID)
}

func TestParseToken_Expiry(t *testing.T) {
	token, err := jwtService.GenerateAccessToken(userID, sessionID, time.Hour)
	require.NoError(t, err)

	claims, err := jwtService.ParseToken(token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestValidateToken_Rejections(t *testing.T) {
	t.Run("garbage", func(t *testing.T) {
		_, err := jwtService.ValidateToken("invalid-token-string")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("expired", func(t *testing.T) {
		token, err := jwtService.GenerateAccessToken(userID, sessionID, -time.Hour)
		require.NoError(t, err)

		_, err = jwtService.ValidateToken(token)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expired")
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := NewService("test-signing-key", "test-issuer", "someone-else")
		token, err := other.GenerateAccessToken(userID, sessionID, time.Hour)
		require.NoError(t, err)

		_, err = jwtService.ValidateToken(token)
		require.Error(t, err)
	})

	t.Run("wrong key", func(t *testing.T) {
		other := NewService("another-key", "test-issuer", "test-audience")
		token, err := other.GenerateAccessToken(userID, sessionID, time.Hour)
		require.NoError(t, err)

		_, err = jwtService.ValidateToken(token)
		require.Error(t, err)
	})
}
