package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quocanhngo/airguard/internal/model"
	"github.com/quocanhngo/airguard/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAdminService_Login(t *testing.T) {
	jwtManager := auth.NewJWTManager("secret", time.Hour)
	svc := NewAdminService("admin", "hunter22", jwtManager, nil)

	resp, err := svc.Login(model.AdminLoginRequest{Username: "admin", Password: "hunter22"})
	require.NoError(t, err)
	claims, err := jwtManager.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)

	_, err = svc.Login(model.AdminLoginRequest{Username: "admin", Password: "nope"})
	assert.True(t, errors.Is(err, ErrInvalidLogin))
	_, err = svc.Login(model.AdminLoginRequest{Username: "root", Password: "hunter22"})
	assert.True(t, errors.Is(err, ErrInvalidLogin))

	assert.NoError(t, svc.Logout(context.Background(), resp.Token))
}

func TestAdminService_AcceptsBcryptHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := NewAdminService("admin", string(hash), auth.NewJWTManager("secret", time.Hour), nil)

	_, err = svc.Login(model.AdminLoginRequest{Username: "admin", Password: "hunter22"})
	assert.NoError(t, err)
}

func TestAdminService_DisabledWithoutPassword(t *testing.T) {
	svc := NewAdminService("admin", "", auth.NewJWTManager("secret", time.Hour), nil)
	_, err := svc.Login(model.AdminLoginRequest{Username: "admin", Password: ""})
	assert.True(t, errors.Is(err, ErrInvalidLogin))
}
