package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/address"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/orchestrator"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/order"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/product"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/user"
)

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fieldErr := range errs {
		details[fieldErr.Field()] = fmt.Sprintf("failed on the '%s' rule", fieldErr.Tag())
	}
	return details
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, address.ErrNotFound),
		errors.Is(err, product.ErrProductNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, order.ErrItemNotFound),
		errors.Is(err, orchestrator.ErrUserNotFound),
		errors.Is(err, orchestrator.ErrAddressNotFound),
		errors.Is(err, orchestrator.ErrOrderNotFound),
		errors.Is(err, orchestrator.ErrOrderItemNotFound):
		return http.StatusNotFound
	case errors.Is(err, user.ErrEmailExists),
		errors.Is(err, orchestrator.ErrDuplicateItem),
		errors.Is(err, product.ErrInsufficientStock),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrNotPending),
		errors.Is(err, order.ErrCancelNotAllowed),
		errors.Is(err, order.ErrLastItem):
		return http.StatusConflict
	case errors.Is(err, orchestrator.ErrAddressUserMismatch):
		return http.StatusForbidden
	case errors.Is(err, orchestrator.ErrInvalidQuantity),
		errors.Is(err, orchestrator.ErrTooManyItems),
		errors.Is(err, product.ErrProductNotActive),
		errors.Is(err, product.ErrInvalidStockQuantity),
		errors.Is(err, order.ErrInvalidQuantity):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
