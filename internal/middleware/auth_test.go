package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return signed
}

func TestJWTAuth(t *testing.T) {
	validToken := signToken(t, testSecret, jwt.MapClaims{
		"user_id": "u1",
		"email":   "alice@example.com",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	expiredToken := signToken(t, testSecret, jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})
	wrongKeyToken := signToken(t, "other-secret", jwt.MapClaims{
		"user_id": "u1",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	noUserToken := signToken(t, testSecret, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantUserID string
	}{
		{"valid token", "Bearer " + validToken, http.StatusOK, "u1"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"malformed header", "Token abc", http.StatusUnauthorized, ""},
		{"expired token", "Bearer " + expiredToken, http.StatusUnauthorized, ""},
		{"wrong signing key", "Bearer " + wrongKeyToken, http.StatusUnauthorized, ""},
		{"no user id claim", "Bearer " + noUserToken, http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUserID, gotEmail string
			handler := JWTAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUserID = GetUserID(r.Context())
				gotEmail = GetUserEmail(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if gotUserID != tt.wantUserID {
				t.Errorf("user id = %q, want %q", gotUserID, tt.wantUserID)
			}
			if tt.wantStatus == http.StatusOK && gotEmail != "alice@example.com" {
				t.Errorf("email = %q, want alice@example.com", gotEmail)
			}
		})
	}
}
