package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, expiresIn time.Duration) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"role":    "shopkeeper",
		"exp":     time.Now().Add(expiresIn).Unix(),
		"iat":     time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token, userID
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	token, userID := signToken(t, testSecret, time.Hour)

	var gotID uuid.UUID
	var gotRole string
	handler := AuthMiddleware(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = GetUserUUID(r.Context())
		gotRole, _ = GetUserRole(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotID != userID {
		t.Errorf("user ID in context = %v, want %v", gotID, userID)
	}
	if gotRole != "shopkeeper" {
		t.Errorf("role in context = %q, want %q", gotRole, "shopkeeper")
	}
}

func TestAuthMiddleware_Rejections(t *testing.T) {
	expired, _ := signToken(t, testSecret, -time.Hour)
	wrongKey, _ := signToken(t, "other-secret", time.Hour)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic abc"},
		{"garbage token", "Bearer not-a-token"},
		{"expired token", "Bearer " + expired},
		{"wrong signing key", "Bearer " + wrongKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := AuthMiddleware(testSecret, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/inventory", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
			if called {
				t.Error("handler was called despite rejection")
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("shopkeeper denied", func(t *testing.T) {
		token, _ := signToken(t, testSecret, time.Hour)
		chain := AuthMiddleware(testSecret, zap.NewNop())(handler)

		req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		chain.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("no role in context", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})
}
