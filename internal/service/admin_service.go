package service

import (
	"context"
	"crypto/subtle"
	"log"
	"strings"
	"time"

	"github.com/quocanhngo/airguard/internal/model"
	"github.com/quocanhngo/airguard/pkg/auth"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const adminRole = "admin"

// AdminService authenticates the operator account configured via ADMIN_*
type AdminService struct {
	username     string
	passwordHash []byte
	jwtManager   *auth.JWTManager
	rdb          *redis.Client // optional, enables logout
}

// NewAdminService accepts a bcrypt hash or a plain password, which is hashed
// once at startup.
func NewAdminService(username, password string, jwtManager *auth.JWTManager, rdb *redis.Client) *AdminService {
	hash := []byte(password)
	if password != "" && !strings.HasPrefix(password, "$2") {
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("⚠️  Failed to hash admin password, admin login disabled: %v", err)
			hash = nil
		}
	}
	return &AdminService{
		username:     username,
		passwordHash: hash,
		jwtManager:   jwtManager,
		rdb:          rdb,
	}
}

// Login verifies the operator credentials and issues a token
func (s *AdminService) Login(req model.AdminLoginRequest) (*model.AdminLoginResponse, error) {
	if s.username == "" || len(s.passwordHash) == 0 {
		return nil, ErrInvalidLogin
	}
	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(s.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password))
	if !userOK || passErr != nil {
		return nil, ErrInvalidLogin
	}

	token, expiresAt, err := s.jwtManager.GenerateToken(s.username, adminRole)
	if err != nil {
		return nil, err
	}
	return &model.AdminLoginResponse{Token: token, ExpiresAt: expiresAt}, nil
}

// Logout revokes a token until it would have expired
func (s *AdminService) Logout(ctx context.Context, tokenString string) error {
	if s.rdb == nil {
		return nil
	}
	claims, err := s.jwtManager.ValidateToken(tokenString)
	if err != nil {
		return err
	}

	expiresIn := time.Until(claims.ExpiresAt.Time)
	if expiresIn <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, RevokedTokenKey(tokenString), "revoked", expiresIn).Err()
}

// RevokedTokenKey is the redis key marking a logged-out token
func RevokedTokenKey(token string) string {
	return "blacklist:" + token
}
