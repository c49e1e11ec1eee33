package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/manalBatta/MyHealthPalestine/internal/app"
	"github.com/manalBatta/MyHealthPalestine/internal/domain"
)

type actorKey struct{}

// Authenticator verifies bearer tokens issued by the external auth service
// and exposes the acting user to handlers. Token issuance, refresh and
// blacklisting live outside this service.
type Authenticator struct {
	secret []byte
}

func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// Wrap rejects requests without a valid bearer token and stores the actor in
// the request context.
func (a *Authenticator) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, found := strings.CutPrefix(header, "Bearer ")
		if !found || raw == "" {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing bearer token")
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return a.secret, nil
		})
		if err != nil || !token.Valid {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid bearer token")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid token claims")
			return
		}
		sub, _ := claims["sub"].(string)
		role, _ := claims["role"].(string)
		if sub == "" || role == "" {
			writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid token claims")
			return
		}

		actor := app.Actor{ID: sub, Role: domain.Role(role)}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), actorKey{}, actor)))
	})
}

func actorFrom(ctx context.Context) (app.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(app.Actor)
	return actor, ok
}

// requireActor fetches the authenticated actor or writes a 401.
func requireActor(w http.ResponseWriter, r *http.Request) (app.Actor, bool) {
	actor, ok := actorFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	return actor, ok
}
