package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/taskchain/taskchain/pkg/app/errors"
	apphttp "github.com/taskchain/taskchain/pkg/app/http"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrNotInOrg     = errors.New("caller is not a member of the required organization")
)

// Authenticator resolves a bearer token into the caller identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*AuthInfo, error)
}

// Middleware rejects requests without a valid bearer token and stores the
// caller identity in the request context.
func Middleware(authn Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(ErrMissingToken, "authentication required"))
				return
			}

			info, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				logger.Debug("bearer token rejected", zap.Error(err))
				apphttp.DefaultErrorHandler(w, apperrors.UnAuthorizedError(err, "invalid token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithAuthInfo(r.Context(), info)))
		})
	}
}

// RequireOrg allows only callers whose organization equals orgID.
// An empty orgID rejects everyone.
func RequireOrg(orgID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			org, ok := OrgIDFromContext(r.Context())
			if orgID == "" || !ok || org != orgID {
				apphttp.DefaultErrorHandler(w, apperrors.ForbiddenError(ErrNotInOrg, "insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireUserID returns the authenticated user id or an Unauthorized service error.
func RequireUserID(ctx context.Context) (string, error) {
	id, ok := UserIDFromContext(ctx)
	if !ok {
		return "", apperrors.UnAuthorizedError(ErrMissingToken, "authentication required")
	}
	return id, nil
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
