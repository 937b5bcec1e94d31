package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/orchestrator"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/order"
)

type CreateOrderRequest struct {
	UserID            string  `json:"user_id" validate:"required,uuid4"`
	ShippingAddressID string  `json:"shipping_address_id" validate:"required,uuid4"`
	BillingAddressID  *string `json:"billing_address_id,omitempty" validate:"omitempty,uuid4"`
	ProductID         string  `json:"product_id" validate:"required,uuid4"`
	Quantity          int     `json:"quantity" validate:"required,gt=0"`
}

type AddOrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
}

type UpdateItemQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

type CancelOrderRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type OrderItemResponse struct {
	ID         uuid.UUID `json:"id"`
	ProductID  uuid.UUID `json:"product_id"`
	Quantity   int       `json:"quantity"`
	UnitPrice  float64   `json:"unit_price"`
	TotalPrice float64   `json:"total_price"`
}

type OrderResponse struct {
	ID                 uuid.UUID           `json:"id"`
	UserID             uuid.UUID           `json:"user_id"`
	ShippingAddressID  uuid.UUID           `json:"shipping_address_id"`
	BillingAddressID   *uuid.UUID          `json:"billing_address_id,omitempty"`
	Status             string              `json:"status"`
	Items              []OrderItemResponse `json:"items"`
	TotalAmount        float64             `json:"total_amount"`
	CancellationReason *string             `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

func toOrderResponse(o *order.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items()))
	for _, item := range o.Items() {
		items = append(items, OrderItemResponse{
			ID:         item.ID(),
			ProductID:  item.ProductID(),
			Quantity:   item.Quantity(),
			UnitPrice:  item.UnitPrice(),
			TotalPrice: item.TotalPrice(),
		})
	}

	return OrderResponse{
		ID:                 o.ID(),
		UserID:             o.UserID(),
		ShippingAddressID:  o.ShippingAddressID(),
		BillingAddressID:   o.BillingAddressID(),
		Status:             o.Status().String(),
		Items:              items,
		TotalAmount:        o.TotalAmount(),
		CancellationReason: o.CancellationReason(),
		CreatedAt:          o.CreatedAt(),
		UpdatedAt:          o.UpdatedAt(),
	}
}

type OrderHandler struct {
	svc      orchestrator.Service
	validate *validator.Validate
}

func NewOrderHandler(svc orchestrator.Service) *OrderHandler {
	return &OrderHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/orders", h.handleCreateOrder)
	router.Get("/orders/{id}", h.handleGetOrder)
	router.Post("/orders/{id}/items", h.handleAddItem)
	router.Patch("/orders/{id}/items/{itemId}", h.handleUpdateItemQuantity)
	router.Delete("/orders/{id}/items/{itemId}", h.handleRemoveItem)
	router.Post("/orders/{id}/cancel", h.handleCancelOrder)
	router.Post("/orders/{id}/status", h.handleUpdateStatus)
}

func (h *OrderHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, payload interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}

	if err := h.validate.Struct(payload); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if ok {
			respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:   "Validation failed",
				Details: formatValidationErrors(validationErrors),
			})
		} else {
			log.Error().Err(err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return false
	}

	return true
}

func parseIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	idParam := chi.URLParam(r, name)
	id, err := uuid.FromString(idParam)
	if err != nil {
		log.Warn().Err(err).Str(name, idParam).Msg("Failed to parse id parameter from URL")
		respondWithError(w, http.StatusBadRequest, "Invalid id parameter")
		return uuid.Nil, false
	}
	return id, true
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	userID, _ := uuid.FromString(req.UserID)
	shippingID, _ := uuid.FromString(req.ShippingAddressID)
	productID, _ := uuid.FromString(req.ProductID)

	in := orchestrator.CreateOrderInput{
		UserID:            userID,
		ShippingAddressID: shippingID,
		ProductID:         productID,
		Quantity:          req.Quantity,
	}
	if req.BillingAddressID != nil {
		billingID, _ := uuid.FromString(*req.BillingAddressID)
		in.BillingAddressID = &billingID
	}

	o, err := h.svc.CreateOrder(r.Context(), in)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create order via orchestrator")
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	o, err := h.svc.GetOrder(r.Context(), orderID)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *OrderHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req AddOrderItemRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	productID, _ := uuid.FromString(req.ProductID)

	item, err := h.svc.AddOrderItem(r.Context(), orderID, productID, req.Quantity)
	if err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to add order item via orchestrator")
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, OrderItemResponse{
		ID:         item.ID(),
		ProductID:  item.ProductID(),
		Quantity:   item.Quantity(),
		UnitPrice:  item.UnitPrice(),
		TotalPrice: item.TotalPrice(),
	})
}

func (h *OrderHandler) handleUpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(w, r, "itemId")
	if !ok {
		return
	}

	var req UpdateItemQuantityRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	err := h.svc.UpdateOrderItemQuantity(r.Context(), orderID, itemID, req.Quantity)
	if err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Stringer("item_id", itemID).Msg("Failed to update item quantity via orchestrator")
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"item_id":  itemID,
		"quantity": req.Quantity,
	})
}

func (h *OrderHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := parseIDParam(w, r, "itemId")
	if !ok {
		return
	}

	err := h.svc.RemoveOrderItem(r.Context(), orderID, itemID)
	if err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Stringer("item_id", itemID).Msg("Failed to remove order item via orchestrator")
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req CancelOrderRequest
	if r.ContentLength > 0 {
		if !h.decodeAndValidate(w, r, &req) {
			return
		}
	}

	err := h.svc.CancelOrder(r.Context(), orderID, req.Reason)
	if err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Msg("Failed to cancel order via orchestrator")
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	o, err := h.svc.GetOrder(r.Context(), orderID)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	err := h.svc.UpdateOrderStatus(r.Context(), orderID, order.Status(req.Status))
	if err != nil {
		log.Error().Err(err).Stringer("order_id", orderID).Str("new_status", req.Status).Msg("Failed to update order status via orchestrator")
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"order_id": orderID.String(),
		"status":   req.Status,
	})
}
