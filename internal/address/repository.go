package address

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("address not found")

type Repository interface {
	Create(ctx context.Context, address *Address) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Address, error)
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]Address, error)
	Update(ctx context.Context, address *Address) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type sqlxRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &sqlxRepository{db: db}
}

func (r *sqlxRepository) Create(ctx context.Context, a *Address) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to generate address id: %w", err)
	}
	a.ID = id

	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	query := `
		INSERT INTO addresses (id, user_id, street, city, postal_code, country, created_at, updated_at)
		VALUES (:id, :user_id, :street, :city, :postal_code, :country, :created_at, :updated_at)
	`
	_, err = r.db.NamedExecContext(ctx, query, a)
	if err != nil {
		return uuid.Nil, fmt.Errorf("repository: failed to insert address: %w", err)
	}

	return id, nil
}

func (r *sqlxRepository) GetByID(ctx context.Context, id uuid.UUID) (*Address, error) {
	query := `
		SELECT id, user_id, street, city, postal_code, country, created_at, updated_at
		FROM addresses
		WHERE id = $1
	`

	var a Address
	err := r.db.GetContext(ctx, &a, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select address by id %s: %w", id, err)
	}

	return &a, nil
}

func (r *sqlxRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]Address, error) {
	query := `
		SELECT id, user_id, street, city, postal_code, country, created_at, updated_at
		FROM addresses
		WHERE user_id = $1
		ORDER BY created_at
	`

	addresses := make([]Address, 0)
	err := r.db.SelectContext(ctx, &addresses, query, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to select addresses for user %s: %w", userID, err)
	}

	return addresses, nil
}

func (r *sqlxRepository) Update(ctx context.Context, a *Address) error {
	a.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE addresses
		SET street = :street, city = :city, postal_code = :postal_code, country = :country, updated_at = :updated_at
		WHERE id = :id
	`
	res, err := r.db.NamedExecContext(ctx, query, a)
	if err != nil {
		return fmt.Errorf("repository: failed to update address %s: %w", a.ID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to read rows affected for address %s: %w", a.ID, err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *sqlxRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM addresses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete address %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repository: failed to read rows affected for address %s: %w", id, err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}
