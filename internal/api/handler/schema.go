package handler

import (
	"time"

	gojson "github.com/goccy/go-json"

	"github.com/shoehub/inventory-system/internal/api/format"
	"github.com/shoehub/inventory-system/internal/core/domain"
	"github.com/shoehub/inventory-system/internal/core/ports"
)

// rawValue keeps the literal text of a form value or of a JSON string or
// number, so the service parses both encodings the same way.
type rawValue string

func (v *rawValue) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := gojson.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = rawValue(s)
		return nil
	}
	var n gojson.Number
	if err := gojson.Unmarshal(b, &n); err != nil {
		return err
	}
	*v = rawValue(n)
	return nil
}

type authRequest struct {
	Username string `json:"username" form:"username" validate:"max=64"`
	// bcrypt ignores bytes past 72.
	Password string `json:"password" form:"password" validate:"max=72"`
}

type shoeRequest struct {
	Brand rawValue `json:"brand" form:"brand" validate:"max=100"`
	Model rawValue `json:"model" form:"model" validate:"max=100"`
	Size  rawValue `json:"size"  form:"size"  validate:"max=32"`
	Color rawValue `json:"color" form:"color" validate:"max=50"`
	Price rawValue `json:"price" form:"price" validate:"max=32"`
	Stock rawValue `json:"stock" form:"stock" validate:"max=32"`
}

func (r shoeRequest) input() ports.ShoeInput {
	return ports.ShoeInput{
		Brand: string(r.Brand),
		Model: string(r.Model),
		Size:  string(r.Size),
		Color: string(r.Color),
		Price: string(r.Price),
		Stock: string(r.Stock),
	}
}

// shoeResponse documents the structured shoe payload.
type shoeResponse struct {
	ID    int64   `json:"id" example:"1"`
	Brand string  `json:"brand" example:"Nike"`
	Model string  `json:"model" example:"Air Max"`
	Size  float64 `json:"size" example:"9.5"`
	Color string  `json:"color" example:"Black"`
	Price float64 `json:"price" example:"150.0"`
	Stock int     `json:"stock" example:"25"`
}

// tokenResponse documents the structured login payload.
type tokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// messageResponse documents {message: ...} bodies.
type messageResponse struct {
	Message string `json:"message"`
}

// errorResponse documents {error: ...} bodies.
type errorResponse struct {
	Error string `json:"error"`
}

// eventResponse documents a structured audit history entry.
type eventResponse struct {
	ID         string       `json:"id"`
	Action     string       `json:"action" example:"updated"`
	ShoeID     int64        `json:"shoe_id"`
	Username   string       `json:"username"`
	OccurredAt time.Time    `json:"occurred_at"`
	Snapshot   shoeResponse `json:"snapshot"`
}

func shoeRecord(s domain.Shoe) format.Record {
	return format.Record{
		{Key: "id", Value: s.ID},
		{Key: "brand", Value: s.Brand},
		{Key: "model", Value: s.Model},
		{Key: "size", Value: s.Size},
		{Key: "color", Value: s.Color},
		{Key: "price", Value: s.Price},
		{Key: "stock", Value: s.Stock},
	}
}

func shoeRecords(shoes []domain.Shoe) []format.Record {
	out := make([]format.Record, 0, len(shoes))
	for _, s := range shoes {
		out = append(out, shoeRecord(s))
	}
	return out
}

func eventRecords(events []domain.InventoryEvent) []format.Record {
	out := make([]format.Record, 0, len(events))
	for _, ev := range events {
		out = append(out, format.Record{
			{Key: "id", Value: ev.ID},
			{Key: "action", Value: string(ev.Action)},
			{Key: "shoe_id", Value: ev.ShoeID},
			{Key: "username", Value: ev.Username},
			{Key: "occurred_at", Value: ev.OccurredAt.UTC()},
			{Key: "snapshot", Value: shoeRecord(ev.Snapshot)},
		})
	}
	return out
}
