// AngelaMos | 2026
// guard.go

package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/agrimesh/platform-api/internal/authz"
	"github.com/agrimesh/platform-api/internal/core"
	"github.com/agrimesh/platform-api/internal/org"
)

// Guard evaluates route authorization after the Authenticator has
// established identity. Each protected request resolves its
// authorization context from the cache, passes organization isolation,
// then the requirement's gates and access checks, in that order. The
// stage order matters: a caller with a valid token but a deleted
// account gets 401, everything after identity gets 403.
type Guard struct {
	cache      authz.ContextCache
	orgs       *org.ContextResolver
	failClosed bool
	logger     *slog.Logger
}

func NewGuard(
	cache authz.ContextCache,
	orgs *org.ContextResolver,
	failClosed bool,
	logger *slog.Logger,
) *Guard {
	return &Guard{
		cache:      cache,
		orgs:       orgs,
		failClosed: failClosed,
		logger:     logger,
	}
}

// Protect returns middleware enforcing the given requirement. A zero
// requirement still resolves the authorization context and organization
// filter so handlers downstream can read them; whether it permits the
// request depends on the guard's fail-closed setting.
func (g *Guard) Protect(req authz.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == "" {
				core.JSONError(
					w,
					core.UnauthorizedError("authentication required"),
				)
				return
			}

			actx, err := g.cache.Get(r.Context(), userID)
			if err != nil {
				if errors.Is(err, core.ErrNotFound) {
					core.JSONError(
						w,
						core.UnauthorizedError("account is no longer active"),
					)
					return
				}
				g.logger.Error("authorization context resolution failed",
					"user_id", userID,
					"error", err,
				)
				core.JSONError(w, err)
				return
			}

			// Suspension invalidates the organization's cached
			// contexts, so the flag is current on the next resolve.
			if actx.OrganizationSuspended && !actx.IsPlatformAdmin {
				g.deny(
					w, r, actx,
					core.ForbiddenError("organization is suspended"),
				)
				return
			}

			ctx := authz.WithContext(r.Context(), actx)

			if !req.BypassOrgIsolation {
				filter, filterErr := g.orgs.Resolve(r, actx)
				if filterErr != nil {
					core.JSONError(w, filterErr)
					return
				}
				ctx = org.WithFilter(ctx, filter)
			}

			if req.IsZero() {
				if g.failClosed {
					g.logger.Warn("request denied, no requirement declared",
						"user_id", userID,
						"path", r.URL.Path,
					)
					core.JSONError(
						w,
						core.ForbiddenError("access denied"),
					)
					return
				}
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			if err := req.CheckGates(actx); err != nil {
				g.deny(w, r, actx, err)
				return
			}

			if err := req.CheckAccess(actx); err != nil {
				g.deny(w, r, actx, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PlatformAdmin is shorthand for routes that exist only for operators.
func (g *Guard) PlatformAdmin() func(http.Handler) http.Handler {
	return g.Protect(authz.RequirePlatformAdmin())
}

func (g *Guard) deny(
	w http.ResponseWriter,
	r *http.Request,
	actx *authz.Context,
	err error,
) {
	g.logger.Warn("authorization denied",
		"user_id", actx.UserID,
		"org_id", actx.OrganizationID,
		"path", r.URL.Path,
		"method", r.Method,
		"reason", err.Error(),
	)
	core.JSONError(w, err)
}

// TierFunc adapts the cache for the tiered rate limiter. Errors fall
// back to empty, which the limiter treats as the free tier.
func (g *Guard) TierFunc() func(*http.Request) string {
	return func(r *http.Request) string {
		userID := GetUserID(r.Context())
		if userID == "" {
			return ""
		}
		actx, err := g.cache.Get(r.Context(), userID)
		if err != nil {
			return ""
		}
		return string(actx.PlanTier)
	}
}
