// Package view renders the HTML pages of the inventory UI.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/shoehub/inventory-system/internal/api/format"
	"github.com/shoehub/inventory-system/internal/core/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// Page names accepted by Renderer.Render.
const (
	PageHome     = "home"
	PageRegister = "register"
	PageLogin    = "login"
	PageMessage  = "message"
	PageShoes    = "shoes"
	PageShoe     = "shoe"
	PageShoeForm = "shoe_form"
	PageHistory  = "history"
)

// Renderer implements echo.Renderer over the embedded templates. Each page
// is parsed together with the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

var _ echo.Renderer = (*Renderer)(nil)

var funcs = template.FuncMap{
	"num": format.Number,
}

// NewRenderer parses every embedded page.
func NewRenderer() (*Renderer, error) {
	base, err := template.New("layout").Funcs(funcs).ParseFS(templateFS, layoutFile)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		tmpl, err := template.Must(base.Clone()).ParseFS(templateFS, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		pages[strings.TrimSuffix(path.Base(file), ".html")] = tmpl
	}
	return &Renderer{pages: pages}, nil
}

// Render writes the named page.
func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("view: unknown page %q", name)
	}
	return tmpl.ExecuteTemplate(w, "layout", data)
}

// HomeData feeds the home page.
type HomeData struct {
	LoggedIn bool
}

// MessageData feeds the short status and error pages.
type MessageData struct {
	Title    string
	Message  string
	Link     string
	LinkText string
}

// ShoesData feeds the list page.
type ShoesData struct {
	Shoes  []domain.Shoe
	Search string
}

// ShoeData feeds the detail page.
type ShoeData struct {
	Shoe *domain.Shoe
}

// ShoeFormData feeds the create and edit forms. Shoe is nil for a new record.
type ShoeFormData struct {
	Title  string
	Action string
	Submit string
	Cancel string
	Shoe   *domain.Shoe
}

// HistoryData feeds the audit history page.
type HistoryData struct {
	ShoeID int64
	Events []domain.InventoryEvent
}
