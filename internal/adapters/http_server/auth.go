package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"travel_market/internal/domain"
)

// Claims carried by bearer tokens. Token issuance lives elsewhere.
type Claims struct {
	UserID string `json:"userId,omitempty"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type actorKey struct{}

func WithActor(ctx context.Context, a domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func ActorFrom(ctx context.Context) (domain.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(domain.Actor)
	return a, ok && a.ID != ""
}

// Authenticator verifies HS256 bearer tokens.
type Authenticator struct{ secret []byte }

func NewAuthenticator(secret []byte) *Authenticator { return &Authenticator{secret: secret} }

var errNoToken = errors.New("missing bearer token")

func (a *Authenticator) Verify(header string) (domain.Actor, error) {
	if len(a.secret) == 0 {
		return domain.Actor{}, errors.New("authentication is not configured")
	}
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return domain.Actor{}, errNoToken
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		return domain.Actor{}, errors.New("invalid token")
	}
	id := claims.UserID
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return domain.Actor{}, errors.New("token carries no user id")
	}
	role := domain.RoleUser
	if strings.EqualFold(claims.Role, string(domain.RoleAdmin)) {
		role = domain.RoleAdmin
	}
	return domain.Actor{ID: id, Role: role}, nil
}

// Authenticate rejects requests without a valid token and stores the actor
// on the request context for the handler to pass on explicitly.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := a.Verify(r.Header.Get("Authorization"))
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="travel"`)
			writeProblem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a, ok := ActorFrom(r.Context()); !ok || !a.IsAdmin() {
			writeProblem(w, http.StatusForbidden, "Forbidden", "administrators only")
			return
		}
		next.ServeHTTP(w, r)
	})
}
