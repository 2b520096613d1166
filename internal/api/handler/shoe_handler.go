package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/shoehub/inventory-system/internal/api/format"
	"github.com/shoehub/inventory-system/internal/api/metrics"
	"github.com/shoehub/inventory-system/internal/api/middleware"
	"github.com/shoehub/inventory-system/internal/api/view"
	"github.com/shoehub/inventory-system/internal/core/domain"
	"github.com/shoehub/inventory-system/internal/core/ports"
)

// IdempotencyKeyHeader lets clients retry a create without a duplicate row.
const IdempotencyKeyHeader = "Idempotency-Key"

const historyLimit = 50

// historyFormatter wraps each audit entry in an <event> element.
var historyFormatter = format.Formatter{Root: "response", Item: "event"}

type ShoeHandler struct {
	shoes ports.ShoeService
	audit ports.AuditService
}

// NewShoeHandler creates a ShoeHandler. audit may be nil, which disables
// the history endpoint.
func NewShoeHandler(shoes ports.ShoeService, audit ports.AuditService) *ShoeHandler {
	return &ShoeHandler{shoes: shoes, audit: audit}
}

// List returns every shoe, optionally filtered.
//
// @Summary      List shoes
// @Tags         shoes
// @Produce      json,xml,html
// @Security     ApiKeyAuth
// @Param        search  query     string  false  "Substring of brand, model or color"
// @Param        format  query     string  false  "Response format"  Enums(html, json, xml)
// @Success      200     {array}   shoeResponse
// @Failure      401     {object}  messageResponse
// @Router       /shoes [get]
func (h *ShoeHandler) List(c echo.Context) error {
	search := c.QueryParam("search")
	shoes, err := h.shoes.List(c.Request().Context(), search)
	if err != nil {
		return err
	}

	target := format.Selector(c)
	if format.Structured(target) {
		return format.Respond(c, http.StatusOK, shoeRecords(shoes), target)
	}
	return c.Render(http.StatusOK, view.PageShoes, view.ShoesData{Shoes: shoes, Search: search})
}

// New renders the create form.
func (h *ShoeHandler) New(c echo.Context) error {
	return c.Render(http.StatusOK, view.PageShoeForm, view.ShoeFormData{
		Title:  "Add New Shoe",
		Action: "/shoes/new",
		Submit: "Add Shoe",
		Cancel: "/shoes",
	})
}

// Create adds a shoe.
//
// @Summary      Create a shoe
// @Tags         shoes
// @Accept       json,x-www-form-urlencoded
// @Produce      json,xml,html
// @Security     ApiKeyAuth
// @Param        format           query     string       false  "Response format"  Enums(html, json, xml)
// @Param        Idempotency-Key  header    string       false  "Replays the first create made with this key"
// @Param        body             body      shoeRequest  true   "Shoe fields"
// @Success      201              {object}  shoeResponse
// @Failure      400              {object}  errorResponse
// @Failure      401              {object}  messageResponse
// @Router       /shoes [post]
func (h *ShoeHandler) Create(c echo.Context) error {
	var req shoeRequest
	if err := bind(c, &req); err != nil {
		metrics.ValidationErrorsTotal.Inc()
		return err
	}

	shoe, err := h.shoes.Create(c.Request().Context(), ports.CreateShoeInput{
		ShoeInput:      req.input(),
		Actor:          middleware.Username(c),
		IdempotencyKey: strings.TrimSpace(c.Request().Header.Get(IdempotencyKeyHeader)),
	})
	if err != nil {
		countValidation(err)
		return err
	}
	metrics.ShoeOperationsTotal.WithLabelValues("create").Inc()

	target := format.Selector(c)
	if format.Structured(target) {
		return format.Respond(c, http.StatusCreated, shoeRecord(*shoe), target)
	}
	return c.Redirect(http.StatusFound, "/shoes")
}

// Show returns one shoe.
//
// @Summary      Get a shoe
// @Tags         shoes
// @Produce      json,xml,html
// @Security     ApiKeyAuth
// @Param        id      path      int     true   "Shoe ID"
// @Param        format  query     string  false  "Response format"  Enums(html, json, xml)
// @Success      200     {object}  shoeResponse
// @Failure      401     {object}  messageResponse
// @Failure      404     {object}  errorResponse
// @Router       /shoes/{id} [get]
func (h *ShoeHandler) Show(c echo.Context) error {
	shoe, err := h.load(c)
	if err != nil {
		return err
	}

	target := format.Selector(c)
	if format.Structured(target) {
		return format.Respond(c, http.StatusOK, shoeRecord(*shoe), target)
	}
	return c.Render(http.StatusOK, view.PageShoe, view.ShoeData{Shoe: shoe})
}

// Edit renders the edit form prefilled with the current values.
func (h *ShoeHandler) Edit(c echo.Context) error {
	shoe, err := h.load(c)
	if err != nil {
		return err
	}
	action := "/shoes/" + strconv.FormatInt(shoe.ID, 10)
	return c.Render(http.StatusOK, view.PageShoeForm, view.ShoeFormData{
		Title:  "Edit Shoe",
		Action: action,
		Submit: "Save Changes",
		Cancel: action,
		Shoe:   shoe,
	})
}

// Update replaces every field of a shoe.
//
// @Summary      Update a shoe
// @Tags         shoes
// @Accept       json,x-www-form-urlencoded
// @Produce      json,xml,html
// @Security     ApiKeyAuth
// @Param        id      path      int          true   "Shoe ID"
// @Param        format  query     string       false  "Response format"  Enums(html, json, xml)
// @Param        body    body      shoeRequest  true   "Shoe fields"
// @Success      200     {object}  shoeResponse
// @Failure      400     {object}  errorResponse
// @Failure      401     {object}  messageResponse
// @Failure      404     {object}  errorResponse
// @Router       /shoes/{id} [put]
func (h *ShoeHandler) Update(c echo.Context) error {
	id, err := shoeID(c)
	if err != nil {
		return err
	}

	var req shoeRequest
	if err := bind(c, &req); err != nil {
		metrics.ValidationErrorsTotal.Inc()
		return err
	}

	shoe, err := h.shoes.Update(c.Request().Context(), id, req.input(), middleware.Username(c))
	if err != nil {
		countValidation(err)
		return err
	}
	metrics.ShoeOperationsTotal.WithLabelValues("update").Inc()

	target := format.Selector(c)
	if format.Structured(target) {
		return format.Respond(c, http.StatusOK, shoeRecord(*shoe), target)
	}
	return c.Redirect(http.StatusFound, "/shoes/"+strconv.FormatInt(id, 10))
}

// Delete removes a shoe.
//
// @Summary      Delete a shoe
// @Tags         shoes
// @Produce      json,xml,html
// @Security     ApiKeyAuth
// @Param        id      path      int     true   "Shoe ID"
// @Param        format  query     string  false  "Response format"  Enums(html, json, xml)
// @Success      200     {object}  messageResponse
// @Failure      401     {object}  messageResponse
// @Failure      404     {object}  errorResponse
// @Router       /shoes/{id} [delete]
func (h *ShoeHandler) Delete(c echo.Context) error {
	id, err := shoeID(c)
	if err != nil {
		return err
	}
	if err := h.shoes.Delete(c.Request().Context(), id, middleware.Username(c)); err != nil {
		return err
	}
	metrics.ShoeOperationsTotal.WithLabelValues("delete").Inc()

	target := format.Selector(c)
	if format.Structured(target) {
		return format.Respond(c, http.StatusOK, format.Message("message", "Deleted"), target)
	}
	return c.Redirect(http.StatusFound, "/shoes")
}

// History lists the recorded changes of a shoe, newest first. Entries of
// deleted shoes stay readable.
//
// @Summary      Shoe change history
// @Tags         shoes
// @Produce      json,xml,html
// @Security     ApiKeyAuth
// @Param        id      path      int     true   "Shoe ID"
// @Param        format  query     string  false  "Response format"  Enums(html, json, xml)
// @Success      200     {array}   eventResponse
// @Failure      401     {object}  messageResponse
// @Router       /shoes/{id}/history [get]
func (h *ShoeHandler) History(c echo.Context) error {
	if h.audit == nil {
		return echo.NewHTTPError(http.StatusNotFound, "history is not enabled")
	}
	id, err := shoeID(c)
	if err != nil {
		return err
	}

	events, err := h.audit.History(c.Request().Context(), id, historyLimit)
	if err != nil {
		return err
	}

	target := format.Selector(c)
	if format.Structured(target) {
		return historyFormatter.Respond(c, http.StatusOK, eventRecords(events), target)
	}
	return c.Render(http.StatusOK, view.PageHistory, view.HistoryData{ShoeID: id, Events: events})
}

func (h *ShoeHandler) load(c echo.Context) (*domain.Shoe, error) {
	id, err := shoeID(c)
	if err != nil {
		return nil, err
	}
	return h.shoes.Get(c.Request().Context(), id)
}

// shoeID parses the :id path parameter. A malformed id cannot name a row,
// so it is reported as not found.
func shoeID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ErrShoeNotFound
	}
	return id, nil
}

func countValidation(err error) {
	if errors.Is(err, domain.ErrValidation) {
		metrics.ValidationErrorsTotal.Inc()
	}
}
