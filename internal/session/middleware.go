package session

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/card-flasher/internal/httpx"
	"github.com/ovaphlow/pitchfork/card-flasher/internal/user/entity"
)

// CookieName is the name of the session cookie.
const CookieName = "card_flasher_session"

type ctxKey struct{}

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u *entity.CurrentUser) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext returns the user set by RequireUser.
func UserFromContext(ctx context.Context) (*entity.CurrentUser, bool) {
	u, ok := ctx.Value(ctxKey{}).(*entity.CurrentUser)
	return u, ok && u != nil
}

// CurrentUser returns the signed-in user, or writes 401 and reports false
// when the request did not pass through RequireUser.
func CurrentUser(w http.ResponseWriter, r *http.Request, logger *zap.SugaredLogger) (*entity.CurrentUser, bool) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, logger, errUnauthorized)
	}
	return u, ok
}

// TokenFromRequest returns the session cookie value or "".
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// RequireUser rejects requests without a live session with 401 and otherwise
// passes the resolved user down in the request context.
func (s *Service) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := s.Resolve(r.Context(), TokenFromRequest(r))
		if err != nil {
			httpx.WriteError(w, s.logger, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// SetCookie writes the session cookie; expiresAt is epoch milliseconds.
func (s *Service) SetCookie(w http.ResponseWriter, token string, expiresAt int64) {
	exp := time.UnixMilli(expiresAt)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(exp.Sub(s.now()).Round(time.Second).Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie with the same flags.
func (s *Service) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
