package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/orchestrator"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/order"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/product"
)

type stubOrchestrator struct {
	createOrderFunc             func(ctx context.Context, in orchestrator.CreateOrderInput) (*order.Order, error)
	addOrderItemFunc            func(ctx context.Context, orderID, productID uuid.UUID, quantity int) (*order.Item, error)
	updateOrderItemQuantityFunc func(ctx context.Context, orderID, itemID uuid.UUID, newQuantity int) error
	removeOrderItemFunc         func(ctx context.Context, orderID, itemID uuid.UUID) error
	cancelOrderFunc             func(ctx context.Context, orderID uuid.UUID, reason *string) error
	updateOrderStatusFunc       func(ctx context.Context, orderID uuid.UUID, newStatus order.Status) error
	getOrderFunc                func(ctx context.Context, orderID uuid.UUID) (*order.Order, error)
}

func (s *stubOrchestrator) CreateOrder(ctx context.Context, in orchestrator.CreateOrderInput) (*order.Order, error) {
	return s.createOrderFunc(ctx, in)
}

func (s *stubOrchestrator) AddOrderItem(ctx context.Context, orderID, productID uuid.UUID, quantity int) (*order.Item, error) {
	return s.addOrderItemFunc(ctx, orderID, productID, quantity)
}

func (s *stubOrchestrator) UpdateOrderItemQuantity(ctx context.Context, orderID, itemID uuid.UUID, newQuantity int) error {
	return s.updateOrderItemQuantityFunc(ctx, orderID, itemID, newQuantity)
}

func (s *stubOrchestrator) RemoveOrderItem(ctx context.Context, orderID, itemID uuid.UUID) error {
	return s.removeOrderItemFunc(ctx, orderID, itemID)
}

func (s *stubOrchestrator) CancelOrder(ctx context.Context, orderID uuid.UUID, reason *string) error {
	return s.cancelOrderFunc(ctx, orderID, reason)
}

func (s *stubOrchestrator) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus order.Status) error {
	return s.updateOrderStatusFunc(ctx, orderID, newStatus)
}

func (s *stubOrchestrator) GetOrder(ctx context.Context, orderID uuid.UUID) (*order.Order, error) {
	return s.getOrderFunc(ctx, orderID)
}

func (s *stubOrchestrator) CancelUserOrders(_ context.Context, _ uuid.UUID) error {
	return nil
}

func newOrderRouter(svc orchestrator.Service) *chi.Mux {
	router := chi.NewRouter()
	NewOrderHandler(svc).RegisterRoutes(router)
	return router
}

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV4()
	require.NoError(t, err)
	return id
}

func testOrder(t *testing.T) *order.Order {
	t.Helper()
	item, err := order.NewItem(uuid.Must(uuid.NewV4()), 2, 9.99)
	require.NoError(t, err)
	o, err := order.New(uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4()), nil, []*order.Item{item})
	require.NoError(t, err)
	return o
}

func TestHandleCreateOrder(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		o := testOrder(t)
		svc := &stubOrchestrator{
			createOrderFunc: func(_ context.Context, in orchestrator.CreateOrderInput) (*order.Order, error) {
				assert.Equal(t, 2, in.Quantity)
				return o, nil
			},
		}

		body := fmt.Sprintf(`{"user_id":%q,"shipping_address_id":%q,"product_id":%q,"quantity":2}`,
			mustUUID(t), mustUUID(t), mustUUID(t))
		req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		newOrderRouter(svc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp OrderResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, o.ID(), resp.ID)
		assert.Equal(t, order.StatusPending.String(), resp.Status)
		require.Len(t, resp.Items, 1)
	})

	t.Run("validation_failure_never_reaches_service", func(t *testing.T) {
		called := false
		svc := &stubOrchestrator{
			createOrderFunc: func(_ context.Context, _ orchestrator.CreateOrderInput) (*order.Order, error) {
				called = true
				return nil, nil
			},
		}

		body := `{"user_id":"not-a-uuid","shipping_address_id":"x","product_id":"y","quantity":0}`
		req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, called)
	})

	t.Run("unknown_user_maps_to_404", func(t *testing.T) {
		svc := &stubOrchestrator{
			createOrderFunc: func(_ context.Context, _ orchestrator.CreateOrderInput) (*order.Order, error) {
				return nil, orchestrator.ErrUserNotFound
			},
		}

		body := fmt.Sprintf(`{"user_id":%q,"shipping_address_id":%q,"product_id":%q,"quantity":2}`,
			mustUUID(t), mustUUID(t), mustUUID(t))
		req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("foreign_address_maps_to_403", func(t *testing.T) {
		svc := &stubOrchestrator{
			createOrderFunc: func(_ context.Context, _ orchestrator.CreateOrderInput) (*order.Order, error) {
				return nil, orchestrator.ErrAddressUserMismatch
			},
		}

		body := fmt.Sprintf(`{"user_id":%q,"shipping_address_id":%q,"product_id":%q,"quantity":2}`,
			mustUUID(t), mustUUID(t), mustUUID(t))
		req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestHandleGetOrder(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		o := testOrder(t)
		svc := &stubOrchestrator{
			getOrderFunc: func(_ context.Context, orderID uuid.UUID) (*order.Order, error) {
				assert.Equal(t, o.ID(), orderID)
				return o, nil
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/orders/"+o.ID().String(), nil)
		rec := httptest.NewRecorder()

		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("bad_id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders/not-a-uuid", nil)
		rec := httptest.NewRecorder()

		newOrderRouter(&stubOrchestrator{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not_found", func(t *testing.T) {
		svc := &stubOrchestrator{
			getOrderFunc: func(_ context.Context, _ uuid.UUID) (*order.Order, error) {
				return nil, orchestrator.ErrOrderNotFound
			},
		}

		req := httptest.NewRequest(http.MethodGet, "/orders/"+mustUUID(t).String(), nil)
		rec := httptest.NewRecorder()

		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleAddItem(t *testing.T) {
	t.Run("duplicate_product_maps_to_409", func(t *testing.T) {
		svc := &stubOrchestrator{
			addOrderItemFunc: func(_ context.Context, _, _ uuid.UUID, _ int) (*order.Item, error) {
				return nil, orchestrator.ErrDuplicateItem
			},
		}

		body := fmt.Sprintf(`{"product_id":%q,"quantity":2}`, mustUUID(t))
		req := httptest.NewRequest(http.MethodPost, "/orders/"+mustUUID(t).String()+"/items", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("created", func(t *testing.T) {
		item, err := order.NewItem(uuid.Must(uuid.NewV4()), 2, 5.0)
		require.NoError(t, err)
		svc := &stubOrchestrator{
			addOrderItemFunc: func(_ context.Context, _, _ uuid.UUID, quantity int) (*order.Item, error) {
				assert.Equal(t, 2, quantity)
				return item, nil
			},
		}

		body := fmt.Sprintf(`{"product_id":%q,"quantity":2}`, item.ProductID())
		req := httptest.NewRequest(http.MethodPost, "/orders/"+mustUUID(t).String()+"/items", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		newOrderRouter(svc).ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var resp OrderItemResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, item.ID(), resp.ID)
		assert.Equal(t, 10.0, resp.TotalPrice)
	})
}

func TestHandleUpdateItemQuantity(t *testing.T) {
	t.Run("insufficient_stock_maps_to_409", func(t *testing.T) {
		svc := &stubOrchestrator{
			updateOrderItemQuantityFunc: func(_ context.Context, _, _ uuid.UUID, _ int) error {
				return fmt.Errorf("wrapped: %w", product.ErrInsufficientStock)
			},
		}

		target := "/orders/" + mustUUID(t).String() + "/items/" + mustUUID(t).String()
		req := httptest.NewRequest(http.MethodPatch, target, bytes.NewBufferString(`{"quantity":5}`))
		rec := httptest.NewRecorder()

		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("ok", func(t *testing.T) {
		svc := &stubOrchestrator{
			updateOrderItemQuantityFunc: func(_ context.Context, _, _ uuid.UUID, newQuantity int) error {
				assert.Equal(t, 5, newQuantity)
				return nil
			},
		}

		target := "/orders/" + mustUUID(t).String() + "/items/" + mustUUID(t).String()
		req := httptest.NewRequest(http.MethodPatch, target, bytes.NewBufferString(`{"quantity":5}`))
		rec := httptest.NewRecorder()

		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestHandleRemoveItem(t *testing.T) {
	t.Run("no_content", func(t *testing.T) {
		svc := &stubOrchestrator{
			removeOrderItemFunc: func(_ context.Context, _, _ uuid.UUID) error {
				return nil
			},
		}

		target := "/orders/" + mustUUID(t).String() + "/items/" + mustUUID(t).String()
		req := httptest.NewRequest(http.MethodDelete, target, nil)
		rec := httptest.NewRecorder()

		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("last_item_maps_to_409", func(t *testing.T) {
		svc := &stubOrchestrator{
			removeOrderItemFunc: func(_ context.Context, _, _ uuid.UUID) error {
				return order.ErrLastItem
			},
		}

		target := "/orders/" + mustUUID(t).String() + "/items/" + mustUUID(t).String()
		req := httptest.NewRequest(http.MethodDelete, target, nil)
		rec := httptest.NewRecorder()

		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestHandleCancelOrder(t *testing.T) {
	t.Run("reason_forwarded", func(t *testing.T) {
		o := testOrder(t)
		var gotReason *string
		svc := &stubOrchestrator{
			cancelOrderFunc: func(_ context.Context, _ uuid.UUID, reason *string) error {
				gotReason = reason
				return nil
			},
			getOrderFunc: func(_ context.Context, _ uuid.UUID) (*order.Order, error) {
				return o, nil
			},
		}

		body := `{"reason":"changed my mind"}`
		req := httptest.NewRequest(http.MethodPost, "/orders/"+o.ID().String()+"/cancel", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, gotReason)
		assert.Equal(t, "changed my mind", *gotReason)
	})

	t.Run("empty_body_means_no_reason", func(t *testing.T) {
		o := testOrder(t)
		svc := &stubOrchestrator{
			cancelOrderFunc: func(_ context.Context, _ uuid.UUID, reason *string) error {
				assert.Nil(t, reason)
				return nil
			},
			getOrderFunc: func(_ context.Context, _ uuid.UUID) (*order.Order, error) {
				return o, nil
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/orders/"+o.ID().String()+"/cancel", nil)
		rec := httptest.NewRecorder()

		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("delivered_maps_to_409", func(t *testing.T) {
		svc := &stubOrchestrator{
			cancelOrderFunc: func(_ context.Context, _ uuid.UUID, _ *string) error {
				return order.ErrCancelNotAllowed
			},
		}

		req := httptest.NewRequest(http.MethodPost, "/orders/"+mustUUID(t).String()+"/cancel", nil)
		rec := httptest.NewRecorder()

		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestHandleUpdateStatus(t *testing.T) {
	t.Run("invalid_transition_maps_to_409", func(t *testing.T) {
		svc := &stubOrchestrator{
			updateOrderStatusFunc: func(_ context.Context, _ uuid.UUID, _ order.Status) error {
				return order.ErrInvalidTransition
			},
		}

		body := `{"status":"DELIVERED"}`
		req := httptest.NewRequest(http.MethodPost, "/orders/"+mustUUID(t).String()+"/status", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("ok", func(t *testing.T) {
		svc := &stubOrchestrator{
			updateOrderStatusFunc: func(_ context.Context, _ uuid.UUID, newStatus order.Status) error {
				assert.Equal(t, order.StatusConfirmed, newStatus)
				return nil
			},
		}

		body := `{"status":"CONFIRMED"}`
		req := httptest.NewRequest(http.MethodPost, "/orders/"+mustUUID(t).String()+"/status", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()

		newOrderRouter(svc).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
