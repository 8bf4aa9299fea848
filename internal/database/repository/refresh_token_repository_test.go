package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spatalkback/talkback/internal/database/models"
)

func TestRefreshTokenRepository_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRefreshTokenRepository(db)
	user := createUser(t, db, "dave")

	token := &models.RefreshToken{
		UserID:    user.ID,
		Token:     "valid-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.Create(token))

	found, err := repo.FindByToken("valid-token")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.UserID)
	assert.Equal(t, "dave", found.User.Username)

	require.NoError(t, repo.RevokeToken("valid-token"))

	_, err = repo.FindByToken("valid-token")
	assert.ErrorIs(t, err, ErrTokenNotFound)

	// Revoking twice reports the token as unknown
	assert.ErrorIs(t, repo.RevokeToken("valid-token"), ErrTokenNotFound)
}

func TestRefreshTokenRepository_Expired(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRefreshTokenRepository(db)
	user := createUser(t, db, "erin")

	require.NoError(t, repo.Create(&models.RefreshToken{
		UserID:    user.ID,
		Token:     "expired-token",
		ExpiresAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, repo.Create(&models.RefreshToken{
		UserID:    user.ID,
		Token:     "fresh-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	_, err := repo.FindByToken("expired-token")
	assert.ErrorIs(t, err, ErrTokenExpired)

	removed, err := repo.DeleteExpiredTokens()
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, err = repo.FindByToken("fresh-token")
	assert.NoError(t, err)
}
