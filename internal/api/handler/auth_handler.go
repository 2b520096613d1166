package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shoehub/inventory-system/internal/api/format"
	"github.com/shoehub/inventory-system/internal/api/metrics"
	"github.com/shoehub/inventory-system/internal/api/middleware"
	"github.com/shoehub/inventory-system/internal/api/view"
	"github.com/shoehub/inventory-system/internal/core/domain"
	"github.com/shoehub/inventory-system/internal/core/ports"
)

type AuthHandler struct {
	authService  ports.AuthService
	cookieSecure bool
}

func NewAuthHandler(authService ports.AuthService, cookieSecure bool) *AuthHandler {
	return &AuthHandler{authService: authService, cookieSecure: cookieSecure}
}

// Home renders the landing page.
func (h *AuthHandler) Home(c echo.Context) error {
	return c.Render(http.StatusOK, view.PageHome, view.HomeData{LoggedIn: middleware.HasTokenCookie(c)})
}

// ShowRegister renders the registration form.
func (h *AuthHandler) ShowRegister(c echo.Context) error {
	return c.Render(http.StatusOK, view.PageRegister, nil)
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json,xml,html
// @Param        format  query     string       false  "Response format"  Enums(html, json, xml)
// @Param        body    body      authRequest  true   "Credentials"
// @Success      201     {object}  messageResponse
// @Failure      400     {object}  errorResponse
// @Failure      429     {object}  errorResponse
// @Failure      500     {object}  errorResponse
// @Router       /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req authRequest
	if err := bind(c, &req); err != nil {
		metrics.RegistrationsTotal.WithLabelValues("invalid").Inc()
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		metrics.RegistrationsTotal.WithLabelValues(registrationResult(err)).Inc()
		return err
	}
	metrics.RegistrationsTotal.WithLabelValues("success").Inc()

	target := format.Selector(c)
	if format.Structured(target) {
		return format.Respond(c, http.StatusCreated, format.Record{
			{Key: "message", Value: "Registered successfully"},
			{Key: "username", Value: user.Username},
		}, target)
	}
	return c.Render(http.StatusOK, view.PageMessage, view.MessageData{
		Title:    "Registered",
		Message:  "Registered successfully!",
		Link:     "/login",
		LinkText: "Login now",
	})
}

func registrationResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrUserExists):
		return "duplicate"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	default:
		return "error"
	}
}

// ShowLogin renders the login form.
func (h *AuthHandler) ShowLogin(c echo.Context) error {
	return c.Render(http.StatusOK, view.PageLogin, nil)
}

// Login authenticates a user and issues an access token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json,xml,html
// @Param        format  query     string       false  "Response format"  Enums(html, json, xml)
// @Param        body    body      authRequest  true   "Credentials"
// @Success      200     {object}  tokenResponse
// @Failure      400     {object}  errorResponse
// @Failure      401     {object}  errorResponse
// @Failure      429     {object}  errorResponse
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req authRequest
	if err := bind(c, &req); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		} else {
			metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		}
		return err
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()

	target := format.Selector(c)
	if format.Structured(target) {
		return format.Respond(c, http.StatusOK, format.Record{
			{Key: "token", Value: res.Token},
			{Key: "expires_at", Value: res.ExpiresAt.UTC()},
		}, target)
	}

	middleware.SetTokenCookie(c, res.Token, res.ExpiresAt, h.cookieSecure)
	return c.Redirect(http.StatusFound, "/shoes")
}

// Logout clears the token cookie. Tokens held by API clients stay valid
// until they expire.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json,xml,html
// @Param        format  query     string  false  "Response format"  Enums(html, json, xml)
// @Success      200     {object}  messageResponse
// @Router       /logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	middleware.ClearTokenCookie(c)

	target := format.Selector(c)
	if format.Structured(target) {
		return format.Respond(c, http.StatusOK, format.Message("message", "Logged out"), target)
	}
	return c.Redirect(http.StatusFound, "/login")
}
