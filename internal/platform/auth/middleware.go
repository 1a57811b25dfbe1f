package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/docslot/docslot/internal/platform/apperr"
)

type contextKey string

const identityKey contextKey = "identity"

// RequireRole returns middleware that admits only requests carrying a valid
// bearer token for role. The resolved identity is stored on the request
// context.
func RequireRole(authz Authorizer, role Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return apperr.ToHTTP(err)
			}

			ident, err := authz.Authorize(token, role)
			if err != nil {
				return apperr.ToHTTP(err)
			}

			c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), ident)))
			c.Set("user_id", ident.ID.String())
			return next(c)
		}
	}
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", fmt.Errorf("%w: missing authorization header", apperr.ErrUnauthenticated)
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", fmt.Errorf("%w: invalid authorization format", apperr.ErrUnauthenticated)
	}
	return strings.TrimSpace(parts[1]), nil
}

// WithIdentity returns a copy of ctx carrying ident.
func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// IdentityFromContext returns the identity stored by RequireRole.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityKey).(Identity)
	return ident, ok
}
