package handler

import (
	"context"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shoehub/inventory-system/internal/api/view"
	"github.com/shoehub/inventory-system/internal/core/domain"
	"github.com/shoehub/inventory-system/internal/core/ports"
)

func newEcho(t *testing.T) *echo.Echo {
	t.Helper()
	r, err := view.NewRenderer()
	if err != nil {
		t.Fatalf("renderer: %v", err)
	}
	e := echo.New()
	e.Renderer = r
	e.Validator = NewValidator()
	return e
}

func newContext(e *echo.Echo, method, target, contentType, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func formBody(kv ...string) string {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return v.Encode()
}

// --- stubs ---

type stubAuthService struct {
	registerFn func(ctx context.Context, username, password string) (*domain.User, error)
	loginFn    func(ctx context.Context, username, password string) (*ports.LoginResult, error)
}

func (s *stubAuthService) Register(ctx context.Context, username, password string) (*domain.User, error) {
	return s.registerFn(ctx, username, password)
}

func (s *stubAuthService) Login(ctx context.Context, username, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, username, password)
}

func (s *stubAuthService) ValidateToken(token string) (string, error) {
	if token == "valid" {
		return "alice", nil
	}
	return "", domain.ErrInvalidToken
}

type stubShoeService struct {
	shoes   map[int64]domain.Shoe
	nextID  int64
	created []ports.CreateShoeInput
	err     error
}

func newStubShoes(shoes ...domain.Shoe) *stubShoeService {
	s := &stubShoeService{shoes: map[int64]domain.Shoe{}, nextID: 1}
	for _, sh := range shoes {
		s.shoes[sh.ID] = sh
		if sh.ID >= s.nextID {
			s.nextID = sh.ID + 1
		}
	}
	return s
}

func (s *stubShoeService) Create(_ context.Context, in ports.CreateShoeInput) (*domain.Shoe, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = append(s.created, in)
	sh := domain.Shoe{ID: s.nextID, Brand: in.Brand, Model: in.Model, Color: in.Color, Size: 9.5, Price: 150, Stock: 25}
	s.shoes[sh.ID] = sh
	s.nextID++
	return &sh, nil
}

func (s *stubShoeService) List(_ context.Context, search string) ([]domain.Shoe, error) {
	out := []domain.Shoe{}
	for id := int64(1); id < s.nextID; id++ {
		sh, ok := s.shoes[id]
		if !ok {
			continue
		}
		if search == "" || strings.Contains(strings.ToLower(sh.Brand), strings.ToLower(search)) {
			out = append(out, sh)
		}
	}
	return out, nil
}

func (s *stubShoeService) Get(_ context.Context, id int64) (*domain.Shoe, error) {
	sh, ok := s.shoes[id]
	if !ok {
		return nil, domain.ErrShoeNotFound
	}
	return &sh, nil
}

func (s *stubShoeService) Update(_ context.Context, id int64, in ports.ShoeInput, _ string) (*domain.Shoe, error) {
	if s.err != nil {
		return nil, s.err
	}
	sh, ok := s.shoes[id]
	if !ok {
		return nil, domain.ErrShoeNotFound
	}
	sh.Brand, sh.Model, sh.Color = in.Brand, in.Model, in.Color
	s.shoes[id] = sh
	return &sh, nil
}

func (s *stubShoeService) Delete(_ context.Context, id int64, _ string) error {
	if _, ok := s.shoes[id]; !ok {
		return domain.ErrShoeNotFound
	}
	delete(s.shoes, id)
	return nil
}

type stubAuditService struct {
	events []domain.InventoryEvent
	limit  int
}

func (s *stubAuditService) Record(context.Context, domain.InventoryEvent) error { return nil }

func (s *stubAuditService) History(_ context.Context, shoeID int64, limit int) ([]domain.InventoryEvent, error) {
	s.limit = limit
	out := []domain.InventoryEvent{}
	for _, ev := range s.events {
		if ev.ShoeID == shoeID {
			out = append(out, ev)
		}
	}
	return out, nil
}

var fixedTime = time.Date(2026, 4, 1, 8, 30, 0, 0, time.UTC)
