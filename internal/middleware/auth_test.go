package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/plugboard/plugboard/internal/logging"
)

const testSecret = "test-secret-key"

func newTestAuthMiddleware(skipPaths ...string) *AuthMiddleware {
	return NewAuthMiddleware([]byte(testSecret), logging.NewNop(), skipPaths)
}

func generateTestToken(t *testing.T, userID string, expired bool) string {
	t.Helper()

	claims := &Claims{
		UserID: userID,
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	if expired {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-1 * time.Hour))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	return tokenString
}

func okHandler(t *testing.T, wantUserID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if wantUserID != "" {
			if got := GetUserID(r.Context()); got != wantUserID {
				t.Errorf("GetUserID() = %s, want %s", got, wantUserID)
			}
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewareSkipPaths(t *testing.T) {
	m := newTestAuthMiddleware("/healthz")
	handler := m.Handler(okHandler(t, ""))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("skip path status = %d, want 200", rr.Code)
	}
}

func TestAuthMiddlewareMissingHeader(t *testing.T) {
	m := newTestAuthMiddleware()
	handler := m.Handler(okHandler(t, ""))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/console/", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("missing header status = %d, want 401", rr.Code)
	}
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	m := newTestAuthMiddleware()
	handler := m.Handler(okHandler(t, ""))

	req := httptest.NewRequest(http.MethodGet, "/console/", nil)
	req.Header.Set("Authorization", "Token abc")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("malformed header status = %d, want 401", rr.Code)
	}
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	m := newTestAuthMiddleware()
	handler := m.Handler(okHandler(t, "user-1"))

	req := httptest.NewRequest(http.MethodGet, "/console/", nil)
	req.Header.Set("Authorization", "Bearer "+generateTestToken(t, "user-1", false))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", rr.Code)
	}
}

func TestAuthMiddlewareExpiredToken(t *testing.T) {
	m := newTestAuthMiddleware()
	handler := m.Handler(okHandler(t, ""))

	req := httptest.NewRequest(http.MethodGet, "/console/", nil)
	req.Header.Set("Authorization", "Bearer "+generateTestToken(t, "user-1", true))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expired token status = %d, want 401", rr.Code)
	}
}

func TestAuthMiddlewareWrongSecret(t *testing.T) {
	m := NewAuthMiddleware([]byte("other-secret"), logging.NewNop(), nil)
	handler := m.Handler(okHandler(t, ""))

	req := httptest.NewRequest(http.MethodGet, "/console/", nil)
	req.Header.Set("Authorization", "Bearer "+generateTestToken(t, "user-1", false))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret status = %d, want 401", rr.Code)
	}
}

func TestIssueTokenRoundTrip(t *testing.T) {
	m := newTestAuthMiddleware()

	token, err := m.IssueToken("user-1", "admin", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	claims, err := m.validateToken(token)
	if err != nil {
		t.Fatalf("validateToken() error: %v", err)
	}
	if claims.UserID != "user-1" || claims.Role != "admin" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestRequireUserID(t *testing.T) {
	handler := RequireUserID(okHandler(t, ""))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/console/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/console/", nil)
	req = req.WithContext(logging.WithUserID(req.Context(), "user-1"))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", rr.Code)
	}
}
