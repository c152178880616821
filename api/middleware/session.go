package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/bakery-cart/api/responses"
	"github.com/angelmondragon/bakery-cart/internal/cart"
	pkgerrors "github.com/angelmondragon/bakery-cart/pkg/errors"
	"github.com/angelmondragon/bakery-cart/pkg/logger"
)

const (
	SessionHeader = "X-Cart-Session"
	SessionCookie = "cart_session"

	sessionCookieMaxAge = 60 * 60 * 24 * 365
)

// CartSession resolves the cart session from the X-Cart-Session header or the
// cart_session cookie, minting a new one when neither is present. The resolved
// id is echoed back in both places.
func CartSession(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
			if sessionID == "" {
				if c, err := r.Cookie(SessionCookie); err == nil {
					sessionID = strings.TrimSpace(c.Value)
				}
			}
			if sessionID == "" {
				sessionID = uuid.NewString()
			}
			if !cart.ValidSessionID(sessionID) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid cart session").
					WithDetails(map[string]string{"session": "must be 1-128 characters of letters, digits, '.', '_' or '-'"}))
				return
			}

			w.Header().Set(SessionHeader, sessionID)
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sessionID,
				Path:     "/",
				MaxAge:   sessionCookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})

			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
