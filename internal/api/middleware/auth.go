package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shoehub/inventory-system/internal/api/format"
	"github.com/shoehub/inventory-system/internal/api/metrics"
	"github.com/shoehub/inventory-system/internal/core/ports"
)

const (
	// TokenHeader is the dedicated header carrying the access token.
	TokenHeader = "x-access-token"
	// TokenCookie is the cookie set by the HTML login flow.
	TokenCookie = "token"

	usernameKey = "username"
)

const (
	msgTokenMissing = "Token is missing!"
	msgTokenInvalid = "Token is invalid!"
)

// Auth rejects requests without a valid access token. The token is read from
// the x-access-token header, then an Authorization bearer header, then the
// token cookie. Structured requests (format=json|xml) get a 401 body, every
// other request is redirected to /login.
func Auth(validator ports.TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, fromCookie := extractToken(c.Request())
			if token == "" {
				metrics.AuthRejectionsTotal.WithLabelValues("missing").Inc()
				return reject(c, msgTokenMissing)
			}

			username, err := validator.ValidateToken(token)
			if err != nil {
				metrics.AuthRejectionsTotal.WithLabelValues("invalid").Inc()
				if fromCookie {
					ClearTokenCookie(c)
				}
				return reject(c, msgTokenInvalid)
			}

			c.Set(usernameKey, username)
			return next(c)
		}
	}
}

func extractToken(r *http.Request) (token string, fromCookie bool) {
	if v := strings.TrimSpace(r.Header.Get(TokenHeader)); v != "" {
		return v, false
	}
	if v := r.Header.Get(echo.HeaderAuthorization); v != "" {
		parts := strings.SplitN(v, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			if t := strings.TrimSpace(parts[1]); t != "" {
				return t, false
			}
		}
	}
	if ck, err := r.Cookie(TokenCookie); err == nil && ck.Value != "" {
		return ck.Value, true
	}
	return "", false
}

func reject(c echo.Context, msg string) error {
	target := format.Selector(c)
	if format.Structured(target) {
		return format.Respond(c, http.StatusUnauthorized, format.Message("message", msg), target)
	}
	return c.Redirect(http.StatusFound, "/login")
}

// Username returns the authenticated user stored by Auth.
func Username(c echo.Context) string {
	u, _ := c.Get(usernameKey).(string)
	return u
}

// SetTokenCookie stores token in an HttpOnly cookie that expires with it.
func SetTokenCookie(c echo.Context, token string, expires time.Time, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearTokenCookie expires the token cookie.
func ClearTokenCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// HasTokenCookie reports whether the request carries a token cookie. It
// does not validate the token.
func HasTokenCookie(c echo.Context) bool {
	ck, err := c.Cookie(TokenCookie)
	return err == nil && ck.Value != ""
}
