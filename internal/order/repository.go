package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var ErrOrderNotFound = errors.New("order not found")

type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	Update(ctx context.Context, order *Order) error
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*Order, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, o *Order) (err error) {
	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Stringer("order_id", o.id).Msg("Panic recovered during order create, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", o.id).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", o.id).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	queryOrder := `
		INSERT INTO orders (id, user_id, shipping_address_id, billing_address_id, status, cancellation_reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = tx.Exec(ctx, queryOrder,
		o.id,
		o.userID,
		o.shippingAddressID,
		o.billingAddressID,
		string(o.status),
		o.cancellationReason,
		o.createdAt,
		o.updatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	if err = insertItems(ctx, tx, o); err != nil {
		return err
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	queryOrder := `
		SELECT id, user_id, shipping_address_id, billing_address_id, status, cancellation_reason, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var o Order
	var status string
	err := r.db.QueryRow(ctx, queryOrder, id).Scan(
		&o.id,
		&o.userID,
		&o.shippingAddressID,
		&o.billingAddressID,
		&status,
		&o.cancellationReason,
		&o.createdAt,
		&o.updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", id, err)
	}
	o.status = Status(status)

	queryItems := `
		SELECT id, product_id, quantity, unit_price, created_at, updated_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.db.Query(ctx, queryItems, id)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for order id %s: %w", id, err)
	}
	defer rows.Close()

	items := make([]*Item, 0)
	for rows.Next() {
		var item Item
		err := rows.Scan(
			&item.id,
			&item.productID,
			&item.quantity,
			&item.unitPrice,
			&item.createdAt,
			&item.updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for order id %s: %w", id, err)
		}
		items = append(items, &item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for order id %s: %w", id, err)
	}

	o.items = items

	return &o, nil
}

// Update rewrites the order row and replaces the item set. There is no
// version column: two concurrent updates of the same order are a plain
// read-modify-write race and the last writer wins.
func (r *postgresRepository) Update(ctx context.Context, o *Order) (err error) {
	tx, beginErr := r.db.Begin(ctx)
	if beginErr != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", beginErr)
	}
	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic_value", p).Stringer("order_id", o.id).Msg("Panic recovered during order update, rolling back")
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", o.id).Msg("Failed to rollback transaction after panic")
			}
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Stringer("order_id", o.id).Msg("Failed to rollback transaction")
			}
		} else {
			if commitErr := tx.Commit(ctx); commitErr != nil {
				err = fmt.Errorf("repository: failed to commit transaction: %w", commitErr)
			}
		}
	}()

	queryOrder := `
		UPDATE orders
		SET status = $1, cancellation_reason = $2, updated_at = $3
		WHERE id = $4
	`
	cmdTag, err := tx.Exec(ctx, queryOrder,
		string(o.status),
		o.cancellationReason,
		o.updatedAt,
		o.id,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to update order %s: %w", o.id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		err = ErrOrderNotFound
		return err
	}

	_, err = tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, o.id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete order items for order %s: %w", o.id, err)
	}

	if err = insertItems(ctx, tx, o); err != nil {
		return err
	}

	return nil
}

// ListByUserID returns the user's orders newest first, items included.
func (r *postgresRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	queryOrders := `
		SELECT id, user_id, shipping_address_id, billing_address_id, status, cancellation_reason, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, queryOrders, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders for user id %s: %w", userID, err)
	}
	defer rows.Close()

	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID

	for rows.Next() {
		var o Order
		var status string
		err := rows.Scan(
			&o.id,
			&o.userID,
			&o.shippingAddressID,
			&o.billingAddressID,
			&status,
			&o.cancellationReason,
			&o.createdAt,
			&o.updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order for user id %s: %w", userID, err)
		}
		o.status = Status(status)
		o.items = make([]*Item, 0)
		ordersMap[o.id] = &o
		orderIDs = append(orderIDs, o.id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders for user id %s: %w", userID, err)
	}

	if len(orderIDs) == 0 {
		return []*Order{}, nil
	}

	queryItems := `
		SELECT id, order_id, product_id, quantity, unit_price, created_at, updated_at
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY created_at, id
	`
	itemRows, err := r.db.Query(ctx, queryItems, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items for user id %s: %w", userID, err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item Item
		var orderID uuid.UUID
		err := itemRows.Scan(
			&item.id,
			&orderID,
			&item.productID,
			&item.quantity,
			&item.unitPrice,
			&item.createdAt,
			&item.updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item for user id %s: %w", userID, err)
		}

		if o, ok := ordersMap[orderID]; ok {
			o.items = append(o.items, &item)
		}
	}

	if err = itemRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items for user id %s: %w", userID, err)
	}

	result := make([]*Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		if o, ok := ordersMap[id]; ok {
			result = append(result, o)
		}
	}

	return result, nil
}

func insertItems(ctx context.Context, tx pgx.Tx, o *Order) error {
	queryItem := `
		INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, item := range o.items {
		_, err := tx.Exec(ctx, queryItem,
			item.id,
			o.id,
			item.productID,
			item.quantity,
			item.unitPrice,
			item.createdAt,
			item.updatedAt,
		)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.id, err)
		}
	}
	return nil
}
