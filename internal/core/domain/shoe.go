package domain

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrShoeNotFound      = errors.New("shoe not found")
	ErrRequestInProgress = errors.New("request with this idempotency key is in progress")
)

// ErrValidation is matched by every *ValidationError through errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError carries the human readable reason a request was rejected.
type ValidationError struct {
	Message string
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Shoe is one inventory row.
type Shoe struct {
	ID    int64   `json:"id"`
	Brand string  `json:"brand"`
	Model string  `json:"model"`
	Size  float64 `json:"size"`
	Color string  `json:"color"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

// Column limits of the shoes table: size NUMERIC(4,1), price
// NUMERIC(10,2), stock INTEGER.
const (
	MaxSize  = 999.9
	MaxPrice = 99999999.99
	MaxStock = math.MaxInt32
)

// Round brings size and price to the precision they are stored with.
func (s *Shoe) Round() {
	s.Size = math.Round(s.Size*10) / 10
	s.Price = math.Round(s.Price*100) / 100
}

// Validate enforces the stock and price ranges and the storable limits.
func (s *Shoe) Validate() error {
	if s.Price <= 0 || s.Stock < 0 {
		return NewValidationError("Price > 0, Stock >= 0")
	}
	switch {
	case math.Abs(s.Size) > MaxSize:
		return NewValidationError("Size must be between -%.1f and %.1f", MaxSize, MaxSize)
	case s.Price > MaxPrice:
		return NewValidationError("Price must be at most %.2f", MaxPrice)
	case s.Stock > MaxStock:
		return NewValidationError("Stock must be at most %d", MaxStock)
	}
	return nil
}
