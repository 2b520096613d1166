package format

import "github.com/labstack/echo/v4"

// Respond writes data encoded for target with the given status code.
func (f Formatter) Respond(c echo.Context, code int, data any, target string) error {
	body, contentType, err := f.Format(data, target)
	if err != nil {
		return err
	}
	return c.Blob(code, contentType, body)
}

// Respond writes data with the Default formatter.
func Respond(c echo.Context, code int, data any, target string) error {
	return Default.Respond(c, code, data, target)
}
