package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/mediconnect-api/internal/model"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", "mediconnect", time.Hour)

	token, err := svc.GenerateAccessToken(&model.User{ID: 7, Role: model.RolePatient})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, model.Actor{UserID: 7, Role: model.RolePatient}, claims.Actor())
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService("secret", "mediconnect", time.Hour)
	token, err := svc.GenerateAccessToken(&model.User{ID: 7, Role: model.RolePatient})
	require.NoError(t, err)

	_, err = NewJWTService("other", "mediconnect", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewJWTService("secret", "someone-else", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewJWTService("secret", "mediconnect", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = expired.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	noRole, err := svc.GenerateAccessToken(&model.User{ID: 7, Role: "nurse"})
	require.NoError(t, err)
	_, err = svc.ValidateToken(noRole)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
