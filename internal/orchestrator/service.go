// Package orchestrator sequences the cross-service order workflows: user and
// address validation, stock reservation and order persistence. Every workflow
// is a fixed chain of calls executed on the caller's context with no retries
// and no saga log; when a step after a stock reservation fails, the
// reservation is compensated by a single release attempt whose own failure is
// only logged.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/address"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/order"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/user"
)

// maxItemQuantity is the hard cap on a single line item's quantity.
const maxItemQuantity = 100

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrAddressNotFound     = errors.New("address not found")
	ErrAddressUserMismatch = errors.New("address does not belong to the user")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderItemNotFound   = errors.New("order item not found")
	ErrDuplicateItem       = errors.New("product is already in the order, update its quantity instead")
	ErrInvalidQuantity     = errors.New("quantity must be greater than zero")
	ErrTooManyItems        = errors.New("quantity exceeds the per-item limit")
)

// UserLookup is the existence check the workflows need; the user repository
// satisfies it directly.
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// AddressLookup resolves an address to its owner.
type AddressLookup interface {
	GetAddressByID(ctx context.Context, id uuid.UUID) (*address.Address, error)
}

// InventoryLedger is the stock reserve/release boundary of the product
// service. Reserve returns the unit price captured atomically with the
// decrement; that price is authoritative for the order line.
type InventoryLedger interface {
	Reserve(ctx context.Context, productID uuid.UUID, quantity int) (float64, error)
	Release(ctx context.Context, productID uuid.UUID, quantity int) error
}

// OrderStore persists and retrieves order aggregates.
type OrderStore interface {
	Create(ctx context.Context, o *order.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	Update(ctx context.Context, o *order.Order) error
	ListByUserID(ctx context.Context, userID uuid.UUID) ([]*order.Order, error)
}

type CreateOrderInput struct {
	UserID            uuid.UUID
	ShippingAddressID uuid.UUID
	BillingAddressID  *uuid.UUID
	ProductID         uuid.UUID
	Quantity          int
}

type Service interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*order.Order, error)
	AddOrderItem(ctx context.Context, orderID, productID uuid.UUID, quantity int) (*order.Item, error)
	UpdateOrderItemQuantity(ctx context.Context, orderID, itemID uuid.UUID, newQuantity int) error
	RemoveOrderItem(ctx context.Context, orderID, itemID uuid.UUID) error
	CancelOrder(ctx context.Context, orderID uuid.UUID, reason *string) error
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus order.Status) error
	GetOrder(ctx context.Context, orderID uuid.UUID) (*order.Order, error)
	CancelUserOrders(ctx context.Context, userID uuid.UUID) error
}

// service holds only its collaborators; no state survives between calls.
type service struct {
	users     UserLookup
	addresses AddressLookup
	inventory InventoryLedger
	orders    OrderStore
}

func NewService(users UserLookup, addresses AddressLookup, inventory InventoryLedger, orders OrderStore) Service {
	return &service{
		users:     users,
		addresses: addresses,
		inventory: inventory,
		orders:    orders,
	}
}

func (s *service) validateQuantity(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if quantity > maxItemQuantity {
		return fmt.Errorf("%w: %d > %d", ErrTooManyItems, quantity, maxItemQuantity)
	}
	return nil
}

func (s *service) checkAddressOwnership(ctx context.Context, addressID, userID uuid.UUID) error {
	addr, err := s.addresses.GetAddressByID(ctx, addressID)
	if err != nil {
		if errors.Is(err, address.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrAddressNotFound, addressID)
		}
		return fmt.Errorf("orchestrator: failed to fetch address %s: %w", addressID, err)
	}
	if addr.UserID != userID {
		return fmt.Errorf("%w: address %s", ErrAddressUserMismatch, addressID)
	}
	return nil
}

// compensateReservation releases a reservation after a downstream failure.
// One attempt, no retry: if the release fails too, the stock is gone until an
// operator reconciles it, and all we do is shout about it in the log.
func (s *service) compensateReservation(ctx context.Context, productID uuid.UUID, quantity int) {
	if err := s.inventory.Release(ctx, productID, quantity); err != nil {
		log.Error().
			Err(err).
			Stringer("product_id", productID).
			Int("quantity", quantity).
			Msg("orchestrator: CRITICAL: failed to release reserved stock after downstream failure, manual reconciliation required")
	}
}

// CreateOrder validates the user and addresses, reserves stock for the single
// input item and persists a new pending order. A persistence failure releases
// the reservation.
func (s *service) CreateOrder(ctx context.Context, in CreateOrderInput) (*order.Order, error) {
	if _, err := s.users.GetByID(ctx, in.UserID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUserNotFound, in.UserID)
		}
		return nil, fmt.Errorf("orchestrator: failed to fetch user %s: %w", in.UserID, err)
	}

	if err := s.checkAddressOwnership(ctx, in.ShippingAddressID, in.UserID); err != nil {
		return nil, err
	}
	if in.BillingAddressID != nil {
		if err := s.checkAddressOwnership(ctx, *in.BillingAddressID, in.UserID); err != nil {
			return nil, err
		}
	}

	if err := s.validateQuantity(in.Quantity); err != nil {
		return nil, err
	}

	lockedPrice, err := s.inventory.Reserve(ctx, in.ProductID, in.Quantity)
	if err != nil {
		return nil, err
	}

	item, err := order.NewItem(in.ProductID, in.Quantity, lockedPrice)
	if err != nil {
		s.compensateReservation(ctx, in.ProductID, in.Quantity)
		return nil, err
	}

	o, err := order.New(in.UserID, in.ShippingAddressID, in.BillingAddressID, []*order.Item{item})
	if err != nil {
		s.compensateReservation(ctx, in.ProductID, in.Quantity)
		return nil, err
	}

	if err := s.orders.Create(ctx, o); err != nil {
		log.Error().Err(err).Stringer("order_id", o.ID()).Msg("orchestrator: failed to persist order, releasing reservation")
		s.compensateReservation(ctx, in.ProductID, in.Quantity)
		return nil, fmt.Errorf("orchestrator: failed to persist order: %w", err)
	}

	log.Info().
		Stringer("order_id", o.ID()).
		Stringer("user_id", in.UserID).
		Stringer("product_id", in.ProductID).
		Int("quantity", in.Quantity).
		Msg("orchestrator: order created")
	return o, nil
}

// AddOrderItem reserves stock for a new line and appends it to the order. The
// same product cannot appear twice; callers change the quantity instead.
func (s *service) AddOrderItem(ctx context.Context, orderID, productID uuid.UUID, quantity int) (*order.Item, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("orchestrator: failed to fetch order %s: %w", orderID, err)
	}

	if _, exists := o.ItemByProduct(productID); exists {
		return nil, fmt.Errorf("%w: product %s", ErrDuplicateItem, productID)
	}

	if err := s.validateQuantity(quantity); err != nil {
		return nil, err
	}

	lockedPrice, err := s.inventory.Reserve(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}

	item, err := order.NewItem(productID, quantity, lockedPrice)
	if err != nil {
		s.compensateReservation(ctx, productID, quantity)
		return nil, err
	}

	if err := o.AddItem(item); err != nil {
		s.compensateReservation(ctx, productID, quantity)
		return nil, err
	}

	if err := s.orders.Update(ctx, o); err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Msg("orchestrator: failed to persist added item, releasing reservation")
		s.compensateReservation(ctx, productID, quantity)
		return nil, fmt.Errorf("orchestrator: failed to persist order: %w", err)
	}

	log.Info().
		Stringer("order_id", orderID).
		Stringer("item_id", item.ID()).
		Stringer("product_id", productID).
		Int("quantity", quantity).
		Msg("orchestrator: item added to order")
	return item, nil
}

// UpdateOrderItemQuantity moves the item to the new quantity, reserving or
// releasing the difference. An increase reserves first and compensates if the
// update cannot be persisted. A decrease releases first and does NOT
// re-reserve when persistence fails afterwards: that path leaks released
// stock. The asymmetry is inherited behavior, kept as is and covered by a
// test rather than fixed.
func (s *service) UpdateOrderItemQuantity(ctx context.Context, orderID, itemID uuid.UUID, newQuantity int) error {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return fmt.Errorf("orchestrator: failed to fetch order %s: %w", orderID, err)
	}

	item, ok := o.Item(itemID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrOrderItemNotFound, itemID)
	}

	if err := s.validateQuantity(newQuantity); err != nil {
		return err
	}

	diff := newQuantity - item.Quantity()

	if diff > 0 {
		if _, err := s.inventory.Reserve(ctx, item.ProductID(), diff); err != nil {
			return err
		}

		if err := o.UpdateItemQuantity(itemID, newQuantity); err != nil {
			s.compensateReservation(ctx, item.ProductID(), diff)
			return err
		}
		if err := s.orders.Update(ctx, o); err != nil {
			log.Error().Err(err).Stringer("order_id", orderID).Msg("orchestrator: failed to persist quantity increase, releasing reservation")
			s.compensateReservation(ctx, item.ProductID(), diff)
			return fmt.Errorf("orchestrator: failed to persist order: %w", err)
		}
	} else {
		if diff < 0 {
			if err := s.inventory.Release(ctx, item.ProductID(), -diff); err != nil {
				return err
			}
		}

		if err := o.UpdateItemQuantity(itemID, newQuantity); err != nil {
			return err
		}
		if err := s.orders.Update(ctx, o); err != nil {
			// Stock released above stays released; nothing re-reserves it.
			log.Error().
				Err(err).
				Stringer("order_id", orderID).
				Stringer("product_id", item.ProductID()).
				Int("released", -diff).
				Msg("orchestrator: failed to persist quantity decrease after stock release, released stock is not re-reserved")
			return fmt.Errorf("orchestrator: failed to persist order: %w", err)
		}
	}

	log.Info().
		Stringer("order_id", orderID).
		Stringer("item_id", itemID).
		Int("new_quantity", newQuantity).
		Msg("orchestrator: item quantity updated")
	return nil
}

// RemoveOrderItem drops a line item and releases its stock. The release runs
// only after the removal has been persisted; a failed removal moves no stock.
func (s *service) RemoveOrderItem(ctx context.Context, orderID, itemID uuid.UUID) error {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return fmt.Errorf("orchestrator: failed to fetch order %s: %w", orderID, err)
	}

	item, ok := o.Item(itemID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrOrderItemNotFound, itemID)
	}
	productID := item.ProductID()
	quantity := item.Quantity()

	if err := o.RemoveItem(itemID); err != nil {
		return err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return fmt.Errorf("orchestrator: failed to persist order: %w", err)
	}

	if err := s.inventory.Release(ctx, productID, quantity); err != nil {
		log.Error().
			Err(err).
			Stringer("order_id", orderID).
			Stringer("product_id", productID).
			Int("quantity", quantity).
			Msg("orchestrator: CRITICAL: failed to release stock of removed item, manual reconciliation required")
	}

	log.Info().
		Stringer("order_id", orderID).
		Stringer("item_id", itemID).
		Msg("orchestrator: item removed from order")
	return nil
}

// CancelOrder cancels the order and then releases every line's stock, one
// item at a time. The release loop is best effort: one failure is logged and
// the loop moves on.
func (s *service) CancelOrder(ctx context.Context, orderID uuid.UUID, reason *string) error {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return fmt.Errorf("orchestrator: failed to fetch order %s: %w", orderID, err)
	}

	if err := o.Cancel(reason); err != nil {
		return err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return fmt.Errorf("orchestrator: failed to persist order: %w", err)
	}

	for _, item := range o.Items() {
		if err := s.inventory.Release(ctx, item.ProductID(), item.Quantity()); err != nil {
			log.Error().
				Err(err).
				Stringer("order_id", orderID).
				Stringer("product_id", item.ProductID()).
				Int("quantity", item.Quantity()).
				Msg("orchestrator: failed to release stock of cancelled item, continuing with the rest")
		}
	}

	log.Info().Stringer("order_id", orderID).Msg("orchestrator: order cancelled")
	return nil
}

// UpdateOrderStatus applies a status transition and persists it.
func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus order.Status) error {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return fmt.Errorf("orchestrator: failed to fetch order %s: %w", orderID, err)
	}

	if err := o.UpdateStatus(newStatus); err != nil {
		return err
	}
	if err := s.orders.Update(ctx, o); err != nil {
		return fmt.Errorf("orchestrator: failed to persist order: %w", err)
	}

	log.Info().Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("orchestrator: order status updated")
	return nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("orchestrator: failed to fetch order %s: %w", orderID, err)
	}
	return o, nil
}

// CancelUserOrders cancels every cancellable order of the user. It backs the
// user-deletion cascade, so it keeps going past individual failures and only
// reports a listing error.
func (s *service) CancelUserOrders(ctx context.Context, userID uuid.UUID) error {
	orders, err := s.orders.ListByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("orchestrator: failed to list orders for user %s: %w", userID, err)
	}

	reason := "user account deleted"
	for _, o := range orders {
		if err := s.CancelOrder(ctx, o.ID(), &reason); err != nil {
			log.Warn().
				Err(err).
				Stringer("order_id", o.ID()).
				Stringer("user_id", userID).
				Msg("orchestrator: failed to cancel order during user cleanup, skipping")
		}
	}

	return nil
}
