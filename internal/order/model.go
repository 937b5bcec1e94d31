package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

func (s Status) String() string {
	return string(s)
}

// allowedTransitions is the full transition table. A status maps only to the
// statuses it may move to; the same status is deliberately absent, so X -> X
// is rejected like any other invalid transition.
var allowedTransitions = map[Status]map[Status]bool{
	StatusPending: {
		StatusConfirmed: true,
		StatusCancelled: true,
	},
	StatusConfirmed: {
		StatusProcessing: true,
		StatusCancelled:  true,
	},
	StatusProcessing: {
		StatusShipped:   true,
		StatusCancelled: true,
	},
	StatusShipped: {
		StatusDelivered: true,
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

var (
	ErrInvalidTransition = errors.New("invalid order status transition")
	ErrNotPending        = errors.New("order items can be modified only while order is pending")
	ErrCancelNotAllowed  = errors.New("order cannot be cancelled in its current status")
	ErrLastItem          = errors.New("cannot remove the last item from an order")
	ErrItemNotFound      = errors.New("order item not found")
	ErrInvalidQuantity   = errors.New("item quantity must be greater than zero")
	ErrInvalidUnitPrice  = errors.New("item unit price must be greater than zero")
	ErrEmptyProductID    = errors.New("item product id cannot be empty")
	ErrEmptyUserID       = errors.New("order user id cannot be empty")
	ErrEmptyShippingAddr = errors.New("order shipping address id cannot be empty")
	ErrNoItems           = errors.New("order must contain at least one item")
)

// Item is a single order line: product, quantity and the unit price captured
// at reservation time. The price is never re-fetched from the catalog.
type Item struct {
	id        uuid.UUID
	productID uuid.UUID
	quantity  int
	unitPrice float64
	createdAt time.Time
	updatedAt time.Time
}

// NewItem validates and builds a line item. An item never exists in a
// partially constructed state.
func NewItem(productID uuid.UUID, quantity int, unitPrice float64) (*Item, error) {
	if productID == uuid.Nil {
		return nil, ErrEmptyProductID
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if unitPrice <= 0 {
		return nil, ErrInvalidUnitPrice
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("order: failed to generate item id: %w", err)
	}

	now := time.Now().UTC()
	return &Item{
		id:        id,
		productID: productID,
		quantity:  quantity,
		unitPrice: unitPrice,
		createdAt: now,
		updatedAt: now,
	}, nil
}

func (i *Item) ID() uuid.UUID { return i.id }

func (i *Item) ProductID() uuid.UUID { return i.productID }

func (i *Item) Quantity() int { return i.quantity }

func (i *Item) UnitPrice() float64 { return i.unitPrice }

func (i *Item) CreatedAt() time.Time { return i.createdAt }

func (i *Item) UpdatedAt() time.Time { return i.updatedAt }

func (i *Item) TotalPrice() float64 {
	return float64(i.quantity) * i.unitPrice
}

func (i *Item) UpdateQuantity(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	i.quantity = quantity
	i.updatedAt = time.Now().UTC()
	return nil
}

// Order is the aggregate root. All fields are unexported; state changes go
// through the methods below, which re-check the invariants every time.
type Order struct {
	id                 uuid.UUID
	userID             uuid.UUID
	shippingAddressID  uuid.UUID
	billingAddressID   *uuid.UUID
	items              []*Item
	status             Status
	cancellationReason *string
	createdAt          time.Time
	updatedAt          time.Time
}

// New creates a pending order. The references are immutable afterwards.
func New(userID, shippingAddressID uuid.UUID, billingAddressID *uuid.UUID, items []*Item) (*Order, error) {
	if userID == uuid.Nil {
		return nil, ErrEmptyUserID
	}
	if shippingAddressID == uuid.Nil {
		return nil, ErrEmptyShippingAddr
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("order: failed to generate order id: %w", err)
	}

	now := time.Now().UTC()
	return &Order{
		id:                id,
		userID:            userID,
		shippingAddressID: shippingAddressID,
		billingAddressID:  billingAddressID,
		items:             items,
		status:            StatusPending,
		createdAt:         now,
		updatedAt:         now,
	}, nil
}

func (o *Order) ID() uuid.UUID { return o.id }

func (o *Order) UserID() uuid.UUID { return o.userID }

func (o *Order) ShippingAddressID() uuid.UUID { return o.shippingAddressID }

func (o *Order) BillingAddressID() *uuid.UUID { return o.billingAddressID }

func (o *Order) Status() Status { return o.status }

func (o *Order) CancellationReason() *string { return o.cancellationReason }

func (o *Order) CreatedAt() time.Time { return o.createdAt }

func (o *Order) UpdatedAt() time.Time { return o.updatedAt }

// Items returns the line items in insertion order. The slice is a copy; the
// items themselves are shared, mutate them only through the aggregate.
func (o *Order) Items() []*Item {
	items := make([]*Item, len(o.items))
	copy(items, o.items)
	return items
}

// Item looks up a line item by its id.
func (o *Order) Item(itemID uuid.UUID) (*Item, bool) {
	for _, item := range o.items {
		if item.id == itemID {
			return item, true
		}
	}
	return nil, false
}

// ItemByProduct looks up a line item by product id.
func (o *Order) ItemByProduct(productID uuid.UUID) (*Item, bool) {
	for _, item := range o.items {
		if item.productID == productID {
			return item, true
		}
	}
	return nil, false
}

// TotalAmount is recomputed from the items on every call, it is never cached
// or stored.
func (o *Order) TotalAmount() float64 {
	total := 0.0
	for _, item := range o.items {
		total += item.TotalPrice()
	}
	return total
}

// UpdateStatus applies the transition table. Moving to the current status is
// rejected as well.
func (o *Order) UpdateStatus(newStatus Status) error {
	transitions, ok := allowedTransitions[o.status]
	if !ok || !transitions[newStatus] {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.status, newStatus)
	}

	o.status = newStatus
	o.updatedAt = time.Now().UTC()
	return nil
}

// Cancel moves the order to CANCELLED and records the optional reason.
// Delivered and already-cancelled orders cannot be cancelled.
func (o *Order) Cancel(reason *string) error {
	if o.status == StatusCancelled || o.status == StatusDelivered {
		return fmt.Errorf("%w: current status %s", ErrCancelNotAllowed, o.status)
	}

	o.status = StatusCancelled
	o.cancellationReason = reason
	o.updatedAt = time.Now().UTC()
	return nil
}

func (o *Order) AddItem(item *Item) error {
	if o.status != StatusPending {
		return ErrNotPending
	}

	o.items = append(o.items, item)
	o.updatedAt = time.Now().UTC()
	return nil
}

// RemoveItem drops a line item. The last item cannot be removed: an order is
// never left empty, cancel it instead.
func (o *Order) RemoveItem(itemID uuid.UUID) error {
	if o.status != StatusPending {
		return ErrNotPending
	}
	if len(o.items) == 1 {
		return ErrLastItem
	}

	for idx, item := range o.items {
		if item.id == itemID {
			o.items = append(o.items[:idx], o.items[idx+1:]...)
			o.updatedAt = time.Now().UTC()
			return nil
		}
	}

	return ErrItemNotFound
}

// UpdateItemQuantity changes a line item quantity in place.
func (o *Order) UpdateItemQuantity(itemID uuid.UUID, quantity int) error {
	if o.status != StatusPending {
		return ErrNotPending
	}

	item, ok := o.Item(itemID)
	if !ok {
		return ErrItemNotFound
	}

	if err := item.UpdateQuantity(quantity); err != nil {
		return err
	}

	o.updatedAt = time.Now().UTC()
	return nil
}
