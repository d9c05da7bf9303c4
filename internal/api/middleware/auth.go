package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hutmovies/hutmovies/internal/utils"
	"github.com/sirupsen/logrus"
)

// Identity is the authenticated caller
type Identity struct {
	UserID string
	Email  string
}

// TokenVerifier turns a bearer token into an identity
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

// OIDCVerifier verifies tokens issued by an OpenID Connect provider
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the provider and builds a token verifier
func NewOIDCVerifier(ctx context.Context, providerURL, clientID string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, providerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to query OIDC provider: %w", err)
	}

	// Access tokens often carry an audience other than the client ID
	verifier := provider.Verifier(&oidc.Config{
		ClientID:          clientID,
		SkipClientIDCheck: clientID == "",
	})
	return &OIDCVerifier{verifier: verifier}, nil
}

// Verify checks the token signature and expiry and extracts the subject
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	var claims struct {
		Sub               string `json:"sub"`
		Email             string `json:"email"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("invalid token claims: %w", err)
	}
	if claims.Sub == "" {
		return nil, fmt.Errorf("token has no subject")
	}

	email := claims.Email
	if email == "" {
		email = claims.PreferredUsername
	}
	return &Identity{UserID: claims.Sub, Email: email}, nil
}

type identityKey struct{}

// WithIdentity stores the caller identity in the context
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller identity stored by RequireAuth
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*Identity)
	return id, ok && id != nil
}

// RequireAuth rejects requests without a valid bearer token
func RequireAuth(next http.Handler, verifier TokenVerifier, logger *logrus.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if verifier == nil {
			http.Error(w, "Authentication not configured", http.StatusServiceUnavailable)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		id, err := verifier.Verify(r.Context(), token)
		if err != nil {
			logger.WithError(err).WithField("path", r.URL.Path).Debug("Token verification failed")
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// RequireAdmin rejects authenticated callers that are not admins
func RequireAdmin(next http.Handler, admins *utils.Admins, logger *logrus.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok || !admins.IsAdmin(id.UserID) {
			if ok {
				logger.WithFields(logrus.Fields{
					"user_id": id.UserID,
					"path":    r.URL.Path,
				}).Warn("Non-admin tried to use admin endpoint")
			}
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
