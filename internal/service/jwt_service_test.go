package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/MorseWayne/shop_ledger/internal/config"
	"github.com/MorseWayne/shop_ledger/internal/domain"
)

func newJWTConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "shop-ledger-test"},
		JWT: config.JWTConfig{
			Secret:          "test-secret",
			AccessTokenTTL:  15 * time.Minute,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
	}
}

func testUser() *domain.User {
	return &domain.User{
		ID:       1,
		Username: "alice",
		Role:     domain.UserRoleOwner,
		IsActive: true,
	}
}

func TestJWTService_GenerateAndValidate(t *testing.T) {
	svc := NewJWTService(newJWTConfig(), newFakeUserRepo(), zap.NewNop())

	pair, err := svc.GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if claims.UserID != 1 || claims.Username != "alice" || claims.Role != domain.UserRoleOwner {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.Type != "access" {
		t.Errorf("Type = %s, want access", claims.Type)
	}

	if _, err := svc.ValidateRefreshToken(pair.RefreshToken); err != nil {
		t.Errorf("ValidateRefreshToken() error = %v", err)
	}
}

func TestJWTService_TokenTypeMismatch(t *testing.T) {
	svc := NewJWTService(newJWTConfig(), newFakeUserRepo(), zap.NewNop())

	pair, err := svc.GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}

	// 刷新令牌不能当访问令牌用，反之亦然
	if _, err := svc.ValidateAccessToken(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateAccessToken(refresh) error = %v, want ErrInvalidToken", err)
	}
	if _, err := svc.ValidateRefreshToken(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateRefreshToken(access) error = %v, want ErrInvalidToken", err)
	}
}

func TestJWTService_TamperedToken(t *testing.T) {
	svc := NewJWTService(newJWTConfig(), newFakeUserRepo(), zap.NewNop())

	pair, err := svc.GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}

	tampered := pair.AccessToken + "x"
	if _, err := svc.ValidateAccessToken(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("ValidateAccessToken() error = %v, want ErrInvalidToken", err)
	}
}

func TestJWTService_ExpiredToken(t *testing.T) {
	cfg := newJWTConfig()
	cfg.JWT.AccessTokenTTL = -time.Minute
	svc := NewJWTService(cfg, newFakeUserRepo(), zap.NewNop())

	pair, err := svc.GenerateTokenPair(testUser())
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}

	if _, err := svc.ValidateAccessToken(pair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("ValidateAccessToken() error = %v, want ErrTokenExpired", err)
	}
}

func TestJWTService_RefreshTokenPair(t *testing.T) {
	userRepo := newFakeUserRepo()
	user := userRepo.seed(&domain.User{Username: "alice", Role: domain.UserRoleOwner, IsActive: true})
	svc := NewJWTService(newJWTConfig(), userRepo, zap.NewNop())

	pair, err := svc.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}

	newPair, err := svc.RefreshTokenPair(context.Background(), pair.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshTokenPair() error = %v", err)
	}
	if newPair.AccessToken == "" || newPair.RefreshToken == "" {
		t.Error("expected non-empty token pair")
	}
}

func TestJWTService_RefreshTokenPair_InactiveUser(t *testing.T) {
	userRepo := newFakeUserRepo()
	user := userRepo.seed(&domain.User{Username: "alice", Role: domain.UserRoleOwner, IsActive: true})
	svc := NewJWTService(newJWTConfig(), userRepo, zap.NewNop())

	pair, err := svc.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}

	// 被停用的账号不能凭旧刷新令牌续命
	user.IsActive = false
	if _, err := svc.RefreshTokenPair(context.Background(), pair.RefreshToken); !errors.Is(err, ErrUserInactive) {
		t.Errorf("RefreshTokenPair() error = %v, want ErrUserInactive", err)
	}
}

func TestJWTService_RefreshTokenPair_WithAccessToken(t *testing.T) {
	userRepo := newFakeUserRepo()
	user := userRepo.seed(&domain.User{Username: "alice", Role: domain.UserRoleOwner, IsActive: true})
	svc := NewJWTService(newJWTConfig(), userRepo, zap.NewNop())

	pair, err := svc.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("GenerateTokenPair() error = %v", err)
	}

	if _, err := svc.RefreshTokenPair(context.Background(), pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("RefreshTokenPair(access) error = %v, want ErrInvalidToken", err)
	}
}
