package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/PabloPavan/swiftsnip/internal/apperrors"
	"github.com/PabloPavan/swiftsnip/internal/auth"
	"github.com/PabloPavan/swiftsnip/internal/identity"
	"github.com/PabloPavan/swiftsnip/internal/session"
)

type Authenticator interface {
	AuthenticateBearer(ctx context.Context, token string) (identity.Principal, error)
	AuthenticateSession(ctx context.Context, sessionID, csrfToken, method string) (auth.SessionInfo, bool, error)
}

type AuthOptions struct {
	Cookie session.CookieConfig
	// Optional lets anonymous requests through with no principal attached.
	Optional bool
}

// AuthMiddleware resolves the caller from a bearer token or the session
// cookie. Cookie sessions need X-CSRF-Token on unsafe methods.
func AuthMiddleware(authenticator Authenticator, opts AuthOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authenticator == nil {
				http.Error(w, "auth not configured", http.StatusInternalServerError)
				return
			}

			if token := bearerToken(r); token != "" {
				principal, err := authenticator.AuthenticateBearer(r.Context(), token)
				if err != nil {
					writeAppError(w, err)
					return
				}
				ctx := identity.WithMethod(identity.WithUser(r.Context(), principal.UserID, principal.Role), identity.MethodBearer)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			sessionID := opts.Cookie.Read(r)
			if sessionID == "" {
				if opts.Optional {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			csrfToken := r.Header.Get("X-CSRF-Token")
			sess, refreshed, err := authenticator.AuthenticateSession(r.Context(), sessionID, csrfToken, r.Method)
			if err != nil {
				if opts.Optional && apperrors.Is(err, apperrors.KindUnauthorized) {
					// unknown session: drop the cookie and browse anonymously. Store failures fall through as 503.
					opts.Cookie.Clear(w)
					next.ServeHTTP(w, r)
					return
				}
				writeAppError(w, err)
				return
			}

			if refreshed {
				opts.Cookie.Write(w, sess.ID, sess.ExpiresAt)
			}

			ctx := identity.WithMethod(identity.WithUser(r.Context(), sess.UserID, sess.Role), identity.MethodSession)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
