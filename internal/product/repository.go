package product

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrProductNotActive  = errors.New("product is not active")
	ErrInsufficientStock = errors.New("insufficient stock")
)

type Repository interface {
	Create(ctx context.Context, product *Product) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	ReserveStock(ctx context.Context, id uuid.UUID, quantity int) (float64, error)
	ReleaseStock(ctx context.Context, id uuid.UUID, quantity int) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, p *Product) (uuid.UUID, error) {
	id := p.ID
	if id == uuid.Nil {
		genID, err := uuid.NewV4()
		if err != nil {
			return uuid.Nil, fmt.Errorf("repository: failed to generate product id: %w", err)
		}
		id = genID
	}
	p.ID = id

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO products (id, name, description, price, available_stock, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Price,
		p.AvailableStock,
		p.IsActive,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to insert product: %w", err)
	}

	return id, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := `
		SELECT id, name, description, price, available_stock, is_active, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var p Product
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.AvailableStock,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product by id %s: %w", id, err)
	}

	return &p, nil
}

func (r *postgresRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `
		UPDATE products
		SET is_active = $1, updated_at = $2
		WHERE id = $3
	`
	cmdTag, err := r.db.Exec(ctx, query, active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("repository: failed to update product active flag %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}

// ReserveStock decrements available stock and returns the current unit price
// in the same statement. The WHERE clause carries the whole guard, so the
// decrement is atomic: no row is touched when the product is inactive or the
// stock is short.
func (r *postgresRepository) ReserveStock(ctx context.Context, id uuid.UUID, quantity int) (float64, error) {
	query := `
		UPDATE products
		SET available_stock = available_stock - $2, updated_at = $3
		WHERE id = $1 AND is_active = TRUE AND available_stock >= $2
		RETURNING price
	`

	var price float64
	err := r.db.QueryRow(ctx, query, id, quantity, time.Now().UTC()).Scan(&price)
	if err == nil {
		return price, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("repository: failed to reserve stock for product %s: %w", id, err)
	}

	// The guarded update matched nothing. Re-read the row to tell the caller
	// which precondition failed.
	p, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return 0, getErr
	}
	if !p.IsActive {
		return 0, ErrProductNotActive
	}
	return 0, ErrInsufficientStock
}

// ReleaseStock increments available stock unconditionally. There is no upper
// bound and no check that the quantity was ever reserved.
func (r *postgresRepository) ReleaseStock(ctx context.Context, id uuid.UUID, quantity int) error {
	query := `
		UPDATE products
		SET available_stock = available_stock + $2, updated_at = $3
		WHERE id = $1
	`
	cmdTag, err := r.db.Exec(ctx, query, id, quantity, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("repository: failed to release stock for product %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}

	return nil
}
