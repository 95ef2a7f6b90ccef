package auth

import (
	"context"
	"errors"
	"net/http"

	"ledger/internal/log"
)

// DefaultLoginPath is where unauthenticated callers are sent.
const DefaultLoginPath = "/login"

var ErrUnauthenticated = errors.New("unauthenticated")

// Session describes the caller of a guarded request.
type Session struct {
	Authenticated bool `json:"authenticated"`
}

// Redirect is returned by the guard when the caller must log in first.
type Redirect struct {
	To string
}

func (r *Redirect) Error() string {
	return "unauthenticated: redirect to " + r.To
}

func (r *Redirect) Unwrap() error {
	return ErrUnauthenticated
}

type sessionContextKey struct{}

// SessionFromContext returns the session stored by Guard.Middleware.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionContextKey{}).(Session)
	return s, ok
}

// Guard short-circuits protected operations for unauthenticated callers.
type Guard struct {
	gate      *Gate
	loginPath string
}

func NewGuard(gate *Gate, loginPath string) *Guard {
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	return &Guard{gate: gate, loginPath: loginPath}
}

// RequireAuthenticated returns the session, or a *Redirect to the login path.
func (g *Guard) RequireAuthenticated(cookieHeader string) (Session, error) {
	if !g.gate.IsAuthenticated(cookieHeader) {
		return Session{}, &Redirect{To: g.loginPath}
	}
	return Session{Authenticated: true}, nil
}

// Middleware redirects with 303 See Other before next runs when the caller
// is not authenticated.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := g.RequireAuthenticated(CookieHeader(r))
		if err != nil {
			var redirect *Redirect
			if errors.As(err, &redirect) {
				log.FromContext(r.Context()).WithComponent(log.ComponentAuth).WarnContext(r.Context(), "Unauthenticated request redirected",
					log.FieldPath, r.URL.Path,
					log.FieldMethod, r.Method,
					"redirect_to", redirect.To)
				http.Redirect(w, r, redirect.To, http.StatusSeeOther)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Wrap is Middleware for a single handler function.
func (g *Guard) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return g.Middleware(next).ServeHTTP
}
