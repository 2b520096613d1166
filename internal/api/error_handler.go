package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/shoehub/inventory-system/internal/api/format"
	"github.com/shoehub/inventory-system/internal/api/view"
	"github.com/shoehub/inventory-system/internal/core/domain"
)

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders {"error": "<message>"} through the Formatter for json/xml
//     requests and a short HTML page with a back link otherwise.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}

		target := format.Selector(c)
		if format.Structured(target) {
			if rerr := format.Respond(c, code, format.Message("error", msg), target); rerr != nil {
				log.Error().Err(rerr).Msg("render error response")
			}
			return
		}

		link, text := backLink(c)
		page := view.MessageData{Title: "Error", Message: htmlMessage(err, msg), Link: link, LinkText: text}
		if rerr := c.Render(code, view.PageMessage, page); rerr != nil {
			log.Error().Err(rerr).Msg("render error page")
			_ = c.String(code, msg)
		}
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (router 404/405, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ve.Message
	}

	switch {
	case errors.Is(err, domain.ErrShoeNotFound):
		return http.StatusNotFound, "Shoe not found"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized, "Token is invalid!"
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusBadRequest, "Username already exists"
	case errors.Is(err, domain.ErrRequestInProgress):
		return http.StatusConflict, "A request with this Idempotency-Key is still in progress"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "Too many requests, try again later"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

// htmlMessage prefixes validation failures the way the forms show them.
func htmlMessage(err error, msg string) string {
	if errors.Is(err, domain.ErrValidation) {
		return "Error: " + msg
	}
	return msg
}

// backLink points the error page at the form the request came from.
func backLink(c echo.Context) (string, string) {
	path := c.Request().URL.Path
	post := c.Request().Method != http.MethodGet

	switch {
	case path == "/register":
		return "/register", "Try again"
	case path == "/login":
		return "/login", "Try again"
	case path == "/shoes/new", path == "/shoes" && post:
		return "/shoes/new", "Try again"
	case strings.HasPrefix(path, "/shoes/") && post && !strings.HasSuffix(path, "/delete"):
		return strings.TrimSuffix(path, "/edit") + "/edit", "Try again"
	default:
		return "/shoes", "Back"
	}
}
