package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shoehub/inventory-system/internal/core/domain"
)

const shoeColumns = `id, brand, model, size, color, price, stock`

// ShoeRepository is the Postgres record store.
type ShoeRepository struct {
	db DBTX
}

func NewShoeRepository(db DBTX) *ShoeRepository {
	return &ShoeRepository{db: db}
}

// Insert stores a new shoe and returns its generated id.
func (r *ShoeRepository) Insert(ctx context.Context, s *domain.Shoe) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query :=
		`INSERT INTO shoes (brand, model, size, color, price, stock)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`

	var id int64
	err := r.db.QueryRowContext(ctx, query, s.Brand, s.Model, s.Size, s.Color, s.Price, s.Stock).Scan(&id)
	if err != nil {
		return 0, mapWriteError("insert shoe", err)
	}
	return id, nil
}

func (r *ShoeRepository) FindByID(ctx context.Context, id int64) (*domain.Shoe, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `SELECT `+shoeColumns+` FROM shoes WHERE id = $1`, id)

	var s domain.Shoe
	if err := row.Scan(&s.ID, &s.Brand, &s.Model, &s.Size, &s.Color, &s.Price, &s.Stock); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrShoeNotFound
		}
		return nil, fmt.Errorf("find shoe: %w", err)
	}
	return &s, nil
}

// List returns shoes ordered by id. A non-empty search keeps the rows whose
// brand, model or color contains it, ignoring case.
func (r *ShoeRepository) List(ctx context.Context, search string) ([]domain.Shoe, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `SELECT ` + shoeColumns + ` FROM shoes ORDER BY id`
	var args []any
	if search != "" {
		query = `SELECT ` + shoeColumns + ` FROM shoes
		 WHERE brand ILIKE $1 OR model ILIKE $1 OR color ILIKE $1
		 ORDER BY id`
		args = append(args, "%"+escapeLike(search)+"%")
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list shoes: %w", err)
	}
	defer rows.Close()

	shoes := []domain.Shoe{}
	for rows.Next() {
		var s domain.Shoe
		if err := rows.Scan(&s.ID, &s.Brand, &s.Model, &s.Size, &s.Color, &s.Price, &s.Stock); err != nil {
			return nil, fmt.Errorf("scan shoe: %w", err)
		}
		shoes = append(shoes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list shoes: %w", err)
	}
	return shoes, nil
}

func (r *ShoeRepository) Update(ctx context.Context, s *domain.Shoe) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query :=
		`UPDATE shoes
		 SET brand = $1, model = $2, size = $3, color = $4, price = $5, stock = $6
		 WHERE id = $7`

	res, err := r.db.ExecContext(ctx, query, s.Brand, s.Model, s.Size, s.Color, s.Price, s.Stock, s.ID)
	if err != nil {
		return mapWriteError("update shoe", err)
	}
	return affectedOrNotFound(res, domain.ErrShoeNotFound)
}

func (r *ShoeRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `DELETE FROM shoes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete shoe: %w", err)
	}
	return affectedOrNotFound(res, domain.ErrShoeNotFound)
}

// mapWriteError turns CHECK constraint and numeric range violations into
// validation errors.
func mapWriteError(op string, err error) error {
	switch pgErrorCode(err) {
	case codeCheckViolation:
		return errors.Join(domain.NewValidationError("Price > 0, Stock >= 0"), err)
	case codeOutOfRange:
		return errors.Join(domain.NewValidationError("Numeric value out of range"), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike neutralises LIKE wildcards so search is matched literally.
func escapeLike(search string) string {
	return likeEscaper.Replace(search)
}
