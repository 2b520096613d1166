package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/shoehub/inventory-system/internal/core/domain"
	"github.com/shoehub/inventory-system/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stubs
// ---------------------------------------------------------------------------

type stubShoeRepo struct {
	shoes     map[int64]domain.Shoe
	nextID    int64
	insertErr error
}

func newStubShoeRepo() *stubShoeRepo {
	return &stubShoeRepo{shoes: make(map[int64]domain.Shoe)}
}

func (r *stubShoeRepo) Insert(_ context.Context, s *domain.Shoe) (int64, error) {
	if r.insertErr != nil {
		return 0, r.insertErr
	}
	r.nextID++
	clone := *s
	clone.ID = r.nextID
	r.shoes[clone.ID] = clone
	return clone.ID, nil
}

func (r *stubShoeRepo) FindByID(_ context.Context, id int64) (*domain.Shoe, error) {
	s, ok := r.shoes[id]
	if !ok {
		return nil, domain.ErrShoeNotFound
	}
	return &s, nil
}

// List mirrors the ILIKE filter of the Postgres repository.
func (r *stubShoeRepo) List(_ context.Context, search string) ([]domain.Shoe, error) {
	needle := strings.ToLower(search)
	var out []domain.Shoe
	for _, s := range r.shoes {
		if needle != "" &&
			!strings.Contains(strings.ToLower(s.Brand), needle) &&
			!strings.Contains(strings.ToLower(s.Model), needle) &&
			!strings.Contains(strings.ToLower(s.Color), needle) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubShoeRepo) Update(_ context.Context, s *domain.Shoe) error {
	if _, ok := r.shoes[s.ID]; !ok {
		return domain.ErrShoeNotFound
	}
	r.shoes[s.ID] = *s
	return nil
}

func (r *stubShoeRepo) Delete(_ context.Context, id int64) error {
	if _, ok := r.shoes[id]; !ok {
		return domain.ErrShoeNotFound
	}
	delete(r.shoes, id)
	return nil
}

// stubIdempotency stores 0 for a reserved key that has no shoe yet.
type stubIdempotency struct {
	keys map[string]int64
	err  error
}

func newStubIdempotency() *stubIdempotency {
	return &stubIdempotency{keys: make(map[string]int64)}
}

func (s *stubIdempotency) Reserve(_ context.Context, key string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = 0
	return true, nil
}

func (s *stubIdempotency) Lookup(_ context.Context, key string) (int64, bool, error) {
	if s.err != nil {
		return 0, false, s.err
	}
	id, ok := s.keys[key]
	if ok && id == 0 {
		return 0, false, domain.ErrRequestInProgress
	}
	return id, ok, nil
}

func (s *stubIdempotency) Remember(_ context.Context, key string, id int64) error {
	s.keys[key] = id
	return nil
}

func (s *stubIdempotency) Release(_ context.Context, key string) error {
	delete(s.keys, key)
	return nil
}

type recordingAudit struct {
	events []domain.InventoryEvent
}

func (a *recordingAudit) Enqueue(e domain.InventoryEvent) {
	a.events = append(a.events, e)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

func validInput() ports.ShoeInput {
	return ports.ShoeInput{
		Brand: "Nike",
		Model: "Air Max",
		Size:  "9.5",
		Color: "Black",
		Price: "150.00",
		Stock: "25",
	}
}

func newTestShoeService() (*ShoeService, *stubShoeRepo, *stubIdempotency, *recordingAudit) {
	repo := newStubShoeRepo()
	idem := newStubIdempotency()
	audit := &recordingAudit{}
	return NewShoeService(repo, idem, audit, discardLogger), repo, idem, audit
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestShoeService_Create_Success(t *testing.T) {
	svc, repo, _, audit := newTestShoeService()

	shoe, err := svc.Create(context.Background(), ports.CreateShoeInput{ShoeInput: validInput(), Actor: "alice"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shoe.ID == 0 {
		t.Fatalf("expected generated id")
	}
	if shoe.Size != 9.5 || shoe.Price != 150 || shoe.Stock != 25 {
		t.Fatalf("numeric fields not parsed: %+v", shoe)
	}
	if len(repo.shoes) != 1 {
		t.Fatalf("expected 1 stored shoe, got %d", len(repo.shoes))
	}
	if len(audit.events) != 1 || audit.events[0].Action != domain.ActionCreated || audit.events[0].Username != "alice" {
		t.Fatalf("unexpected audit events: %+v", audit.events)
	}
	if audit.events[0].ID == "" || audit.events[0].ShoeID != shoe.ID {
		t.Fatalf("audit event not populated: %+v", audit.events[0])
	}
}

func TestShoeService_Create_Validation(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(in *ports.ShoeInput)
		wantMsg string
	}{
		{"zero price", func(in *ports.ShoeInput) { in.Price = "0" }, "Price > 0, Stock >= 0"},
		{"negative stock", func(in *ports.ShoeInput) { in.Stock = "-1" }, "Price > 0, Stock >= 0"},
		{"non numeric size", func(in *ports.ShoeInput) { in.Size = "nine" }, "Invalid number format"},
		{"fractional stock", func(in *ports.ShoeInput) { in.Stock = "2.5" }, "Invalid number format"},
		{"nan price", func(in *ports.ShoeInput) { in.Price = "NaN" }, "Invalid number format"},
		{"missing brand", func(in *ports.ShoeInput) { in.Brand = "  " }, "brand is required"},
		{"missing stock", func(in *ports.ShoeInput) { in.Stock = "" }, "stock is required"},
		{"size over column", func(in *ports.ShoeInput) { in.Size = "1000" }, "Size must be between -999.9 and 999.9"},
		{"price over column", func(in *ports.ShoeInput) { in.Price = "1e9" }, "Price must be at most 99999999.99"},
		{"stock over column", func(in *ports.ShoeInput) { in.Stock = "3000000000" }, "Stock must be at most 2147483647"},
		{"price rounds to zero", func(in *ports.ShoeInput) { in.Price = "0.004" }, "Price > 0, Stock >= 0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo, _, _ := newTestShoeService()
			in := validInput()
			tc.mutate(&in)

			_, err := svc.Create(context.Background(), ports.CreateShoeInput{ShoeInput: in})
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if err.Error() != tc.wantMsg {
				t.Fatalf("expected %q, got %q", tc.wantMsg, err.Error())
			}
			if len(repo.shoes) != 0 {
				t.Fatalf("invalid shoe must not be stored")
			}
		})
	}
}

func TestShoeService_Create_BoundaryValuesAccepted(t *testing.T) {
	svc, _, _, _ := newTestShoeService()
	in := validInput()
	in.Price = "0.01"
	in.Stock = "0"

	shoe, err := svc.Create(context.Background(), ports.CreateShoeInput{ShoeInput: in})
	if err != nil {
		t.Fatalf("expected boundary values to be accepted, got %v", err)
	}
	if shoe.Price != 0.01 || shoe.Stock != 0 {
		t.Fatalf("unexpected shoe: %+v", shoe)
	}
}

func TestShoeService_Create_RoundsToStoredPrecision(t *testing.T) {
	svc, repo, _, _ := newTestShoeService()
	in := validInput()
	in.Size = "9.25"
	in.Price = "150.555"

	shoe, err := svc.Create(context.Background(), ports.CreateShoeInput{ShoeInput: in})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shoe.Size != 9.3 || shoe.Price != 150.56 {
		t.Fatalf("response not rounded: %+v", shoe)
	}
	if stored := repo.shoes[shoe.ID]; stored != *shoe {
		t.Fatalf("response %+v differs from stored %+v", *shoe, stored)
	}

	updated, err := svc.Update(context.Background(), shoe.ID, in, "bob")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Size != 9.3 || updated.Price != 150.56 {
		t.Fatalf("update response not rounded: %+v", updated)
	}
}

func TestShoeService_Create_RepoError(t *testing.T) {
	svc, repo, _, audit := newTestShoeService()
	repo.insertErr = errors.New("db unavailable")

	if _, err := svc.Create(context.Background(), ports.CreateShoeInput{ShoeInput: validInput()}); err == nil {
		t.Fatal("expected error when repo fails, got nil")
	}
	if len(audit.events) != 0 {
		t.Fatalf("failed create must not be audited")
	}
}

func TestShoeService_Create_IdempotencyReplay(t *testing.T) {
	svc, repo, _, audit := newTestShoeService()
	in := ports.CreateShoeInput{ShoeInput: validInput(), IdempotencyKey: "key-abc-123"}

	first, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	second, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("second create (replay) failed: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("replay must return the same shoe: got %d, want %d", second.ID, first.ID)
	}
	if len(repo.shoes) != 1 {
		t.Fatalf("expected 1 stored shoe, got %d", len(repo.shoes))
	}
	if len(audit.events) != 1 {
		t.Fatalf("replay must not be audited again, got %d events", len(audit.events))
	}
}

func TestShoeService_Create_IdempotencyKeyInFlight(t *testing.T) {
	svc, repo, idem, audit := newTestShoeService()
	// Another create holds the reservation and has not inserted yet.
	if ok, _ := idem.Reserve(context.Background(), "key-busy"); !ok {
		t.Fatal("reserve failed")
	}

	_, err := svc.Create(context.Background(), ports.CreateShoeInput{ShoeInput: validInput(), IdempotencyKey: "key-busy"})
	if !errors.Is(err, domain.ErrRequestInProgress) {
		t.Fatalf("expected ErrRequestInProgress, got %v", err)
	}
	if len(repo.shoes) != 0 || len(audit.events) != 0 {
		t.Fatalf("concurrent duplicate must not insert: %d shoes, %d events", len(repo.shoes), len(audit.events))
	}
}

func TestShoeService_Create_FailedInsertReleasesKey(t *testing.T) {
	svc, repo, idem, _ := newTestShoeService()
	in := ports.CreateShoeInput{ShoeInput: validInput(), IdempotencyKey: "key-retry"}

	repo.insertErr = errors.New("db unavailable")
	if _, err := svc.Create(context.Background(), in); err == nil {
		t.Fatal("expected insert error")
	}
	if _, held := idem.keys["key-retry"]; held {
		t.Fatal("failed create must release its reservation")
	}

	repo.insertErr = nil
	shoe, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("retry after failure: %v", err)
	}
	if idem.keys["key-retry"] != shoe.ID {
		t.Fatalf("key not bound to the new shoe: %v", idem.keys)
	}
}

func TestShoeService_Create_ReplayTargetDeleted(t *testing.T) {
	svc, repo, idem, _ := newTestShoeService()
	in := ports.CreateShoeInput{ShoeInput: validInput(), IdempotencyKey: "key-gone"}

	first, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	delete(repo.shoes, first.ID)

	second, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if second.ID == first.ID || idem.keys["key-gone"] != second.ID {
		t.Fatalf("expected key rebound to a fresh shoe: first=%d second=%d keys=%v", first.ID, second.ID, idem.keys)
	}
}

func TestShoeService_Create_IdempotencyStoreDown(t *testing.T) {
	svc, repo, idem, _ := newTestShoeService()
	idem.err = errors.New("redis down")
	in := ports.CreateShoeInput{ShoeInput: validInput(), IdempotencyKey: "k"}

	if _, err := svc.Create(context.Background(), in); err != nil {
		t.Fatalf("create must degrade to a normal insert, got %v", err)
	}
	if len(repo.shoes) != 1 {
		t.Fatalf("expected shoe to be stored")
	}
}

func TestShoeService_Create_WithoutCollaborators(t *testing.T) {
	svc := NewShoeService(newStubShoeRepo(), nil, nil, discardLogger)

	if _, err := svc.Create(context.Background(), ports.CreateShoeInput{ShoeInput: validInput(), IdempotencyKey: "k"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ---------------------------------------------------------------------------
// List / Get / Update / Delete
// ---------------------------------------------------------------------------

func seedShoes(t *testing.T, svc *ShoeService, inputs ...ports.ShoeInput) []*domain.Shoe {
	t.Helper()
	out := make([]*domain.Shoe, 0, len(inputs))
	for _, in := range inputs {
		s, err := svc.Create(context.Background(), ports.CreateShoeInput{ShoeInput: in})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
		out = append(out, s)
	}
	return out
}

func TestShoeService_List_Search(t *testing.T) {
	svc, _, _, _ := newTestShoeService()
	nike := validInput()
	adidas := validInput()
	adidas.Brand, adidas.Model, adidas.Color = "Adidas", "Superstar", "White"
	collab := validInput()
	collab.Brand, collab.Model, collab.Color = "Sacai", "LDWaffle x NIKE", "Green"
	seedShoes(t, svc, nike, adidas, collab)

	got, err := svc.List(context.Background(), "nike")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d: %+v", len(got), got)
	}
	for _, s := range got {
		if s.Brand == "Adidas" {
			t.Fatalf("unexpected match %+v", s)
		}
	}

	all, err := svc.List(context.Background(), "")
	if err != nil || len(all) != 3 {
		t.Fatalf("expected all 3 shoes, got %d (%v)", len(all), err)
	}
}

func TestShoeService_List_EmptyIsNotNil(t *testing.T) {
	svc, _, _, _ := newTestShoeService()

	got, err := svc.List(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestShoeService_Update(t *testing.T) {
	svc, repo, _, audit := newTestShoeService()
	seeded := seedShoes(t, svc, validInput())[0]

	in := validInput()
	in.Stock = "3"
	updated, err := svc.Update(context.Background(), seeded.ID, in, "bob")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Stock != 3 || repo.shoes[seeded.ID].Stock != 3 {
		t.Fatalf("stock not updated: %+v", repo.shoes[seeded.ID])
	}
	if last := audit.events[len(audit.events)-1]; last.Action != domain.ActionUpdated || last.Username != "bob" {
		t.Fatalf("unexpected audit event: %+v", last)
	}

	if _, err := svc.Update(context.Background(), 999, in, "bob"); !errors.Is(err, domain.ErrShoeNotFound) {
		t.Fatalf("expected ErrShoeNotFound, got %v", err)
	}

	in.Price = "-5"
	if _, err := svc.Update(context.Background(), seeded.ID, in, "bob"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestShoeService_Delete(t *testing.T) {
	svc, _, _, audit := newTestShoeService()
	seeded := seedShoes(t, svc, validInput())[0]

	if err := svc.Delete(context.Background(), 404, "alice"); !errors.Is(err, domain.ErrShoeNotFound) {
		t.Fatalf("expected ErrShoeNotFound for missing id, got %v", err)
	}

	if err := svc.Delete(context.Background(), seeded.ID, "alice"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), seeded.ID); !errors.Is(err, domain.ErrShoeNotFound) {
		t.Fatalf("expected deleted shoe to be gone, got %v", err)
	}

	last := audit.events[len(audit.events)-1]
	if last.Action != domain.ActionDeleted || last.Snapshot.Brand != "Nike" {
		t.Fatalf("delete audit must carry the removed snapshot: %+v", last)
	}
}
