package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/manalBatta/MyHealthPalestine/internal/app"
	"github.com/manalBatta/MyHealthPalestine/internal/domain"
)

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAuthenticatorWrap(t *testing.T) {
	t.Parallel()

	const secret = "test-secret"
	auth := NewAuthenticator(secret)

	var gotActor app.Actor
	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		gotActor, _ = actorFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	t.Run("valid token passes the actor through", func(t *testing.T) {
		called = false
		token := signToken(t, secret, jwt.MapClaims{
			"sub":  "doc-1",
			"role": "doctor",
			"exp":  time.Now().Add(time.Hour).Unix(),
		})
		req := httptest.NewRequest(http.MethodGet, "/consultation-slots", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		auth.Wrap(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK || !called {
			t.Fatalf("expected handler to run, got %d", rec.Code)
		}
		if gotActor.ID != "doc-1" || gotActor.Role != domain.RoleDoctor {
			t.Fatalf("unexpected actor: %+v", gotActor)
		}
	})

	t.Run("missing header", func(t *testing.T) {
		called = false
		req := httptest.NewRequest(http.MethodGet, "/consultation-slots", nil)
		rec := httptest.NewRecorder()

		auth.Wrap(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized || called {
			t.Fatalf("expected 401 without handler run, got %d", rec.Code)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		called = false
		token := signToken(t, "other-secret", jwt.MapClaims{"sub": "doc-1", "role": "doctor"})
		req := httptest.NewRequest(http.MethodGet, "/consultation-slots", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		auth.Wrap(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized || called {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		called = false
		token := signToken(t, secret, jwt.MapClaims{
			"sub":  "doc-1",
			"role": "doctor",
			"exp":  time.Now().Add(-time.Hour).Unix(),
		})
		req := httptest.NewRequest(http.MethodGet, "/consultation-slots", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		auth.Wrap(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized || called {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("claims without role", func(t *testing.T) {
		called = false
		token := signToken(t, secret, jwt.MapClaims{"sub": "doc-1"})
		req := httptest.NewRequest(http.MethodGet, "/consultation-slots", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		auth.Wrap(next).ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized || called {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}
