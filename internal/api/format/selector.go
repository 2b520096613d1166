package format

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// Selector returns the format requested with ?format=. Anything other than
// json or xml, including an empty value, selects html.
func Selector(c echo.Context) string {
	return Parse(c.QueryParam("format"))
}

// Parse normalises a raw format value.
func Parse(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case JSON:
		return JSON
	case XML:
		return XML
	default:
		return HTML
	}
}

// Structured reports whether target is rendered through the Formatter.
func Structured(target string) bool {
	return target == JSON || target == XML
}
