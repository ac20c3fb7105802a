package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/MorseWayne/shop_ledger/internal/domain"
	"github.com/MorseWayne/shop_ledger/internal/service"
)

// mockJWTService 是用于测试的JWT服务模拟实现
type mockJWTService struct {
	validTokens   map[string]*service.Claims
	expiredTokens map[string]bool
}

func newMockJWTService() *mockJWTService {
	return &mockJWTService{
		validTokens:   make(map[string]*service.Claims),
		expiredTokens: make(map[string]bool),
	}
}

func (m *mockJWTService) GenerateTokenPair(user *domain.User) (*service.TokenPair, error) {
	accessToken := "mock_access_token_" + user.Username
	refreshToken := "mock_refresh_token_" + user.Username

	m.validTokens[accessToken] = &service.Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Type:     "access",
	}
	m.validTokens[refreshToken] = &service.Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		Type:     "refresh",
	}

	return &service.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (m *mockJWTService) ValidateAccessToken(tokenString string) (*service.Claims, error) {
	return m.validate(tokenString, "access")
}

func (m *mockJWTService) ValidateRefreshToken(tokenString string) (*service.Claims, error) {
	return m.validate(tokenString, "refresh")
}

func (m *mockJWTService) validate(tokenString, tokenType string) (*service.Claims, error) {
	if m.expiredTokens[tokenString] {
		return nil, service.ErrTokenExpired
	}
	claims, exists := m.validTokens[tokenString]
	if !exists || claims.Type != tokenType {
		return nil, service.ErrInvalidToken
	}
	return claims, nil
}

func (m *mockJWTService) RefreshTokenPair(ctx context.Context, refreshToken string) (*service.TokenPair, error) {
	claims, err := m.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	return m.GenerateTokenPair(&domain.User{
		ID:       claims.UserID,
		Username: claims.Username,
		Role:     claims.Role,
	})
}

func (m *mockJWTService) addExpiredToken(token string) {
	m.expiredTokens[token] = true
}

func echoUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) != nil {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("authenticated"))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("not authenticated"))
	}
}

func TestAuthMiddleware_Success(t *testing.T) {
	mockJWT := newMockJWTService()
	logger := zap.NewNop()

	user := &domain.User{
		ID:       1,
		Username: "owner1",
		Role:     domain.UserRoleOwner,
	}
	tokenPair, err := mockJWT.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	handler := AuthMiddleware(mockJWT, logger)(echoUserHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokenPair.AccessToken)
	req = req.WithContext(withRequestID(req.Context(), "test-id"))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "authenticated" {
		t.Errorf("Expected 'authenticated', got %s", rr.Body.String())
	}
}

func TestAuthMiddleware_MissingAuthHeader(t *testing.T) {
	handler := AuthMiddleware(newMockJWTService(), zap.NewNop())(echoUserHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	req = req.WithContext(withRequestID(req.Context(), "test-id"))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rr.Code)
	}
}

func TestAuthMiddleware_InvalidAuthHeader(t *testing.T) {
	testCases := []struct {
		name   string
		header string
	}{
		{"missing Bearer prefix", "invalid_token"},
		{"empty token", "Bearer "},
		{"only Bearer", "Bearer"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := AuthMiddleware(newMockJWTService(), zap.NewNop())(echoUserHandler())

			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("Authorization", tc.header)
			req = req.WithContext(withRequestID(req.Context(), "test-id"))

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != http.StatusUnauthorized {
				t.Errorf("Expected status 401, got %d", rr.Code)
			}
		})
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	mockJWT := newMockJWTService()

	user := &domain.User{
		ID:       1,
		Username: "owner1",
		Role:     domain.UserRoleOwner,
	}
	tokenPair, err := mockJWT.GenerateTokenPair(user)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	mockJWT.addExpiredToken(tokenPair.AccessToken)

	handler := AuthMiddleware(mockJWT, zap.NewNop())(echoUserHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+tokenPair.AccessToken)
	req = req.WithContext(withRequestID(req.Context(), "test-id"))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rr.Code)
	}
}

func TestRequireRole(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name     string
		user     *domain.User
		required domain.UserRole
		want     int
	}{
		{
			name:     "admin passes admin check",
			user:     &domain.User{ID: 1, Username: "admin", Role: domain.UserRoleAdmin},
			required: domain.UserRoleAdmin,
			want:     http.StatusOK,
		},
		{
			name:     "owner rejected by admin check",
			user:     &domain.User{ID: 2, Username: "owner1", Role: domain.UserRoleOwner},
			required: domain.UserRoleAdmin,
			want:     http.StatusForbidden,
		},
		{
			name:     "no user in context",
			user:     nil,
			required: domain.UserRoleAdmin,
			want:     http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireRole(tt.required, logger)(echoUserHandler())

			req := httptest.NewRequest("GET", "/test", nil)
			ctx := withRequestID(req.Context(), "test-id")
			if tt.user != nil {
				ctx = context.WithValue(ctx, contextKeyUser, tt.user)
			}
			req = req.WithContext(ctx)

			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("Expected status %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestUserFromContext(t *testing.T) {
	user := &domain.User{
		ID:       1,
		Username: "owner1",
		Role:     domain.UserRoleOwner,
	}

	ctx := context.WithValue(context.Background(), contextKeyUser, user)
	retrieved := UserFromContext(ctx)
	if retrieved == nil {
		t.Fatal("Expected user from context, got nil")
	}
	if retrieved.ID != user.ID {
		t.Errorf("Expected user ID %d, got %d", user.ID, retrieved.ID)
	}

	if UserFromContext(context.Background()) != nil {
		t.Error("Expected nil from empty context, got user")
	}
}
