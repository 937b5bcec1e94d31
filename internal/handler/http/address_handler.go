package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/address"
)

type CreateAddressRequest struct {
	UserID     string `json:"user_id" validate:"required,uuid4"`
	Street     string `json:"street" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country" validate:"required"`
}

type AddressHandler struct {
	service  address.Service
	validate *validator.Validate
}

func NewAddressHandler(service address.Service) *AddressHandler {
	return &AddressHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *AddressHandler) RegisterRoutes(router chi.Router) {
	router.Post("/addresses", h.handleCreateAddress)
	router.Get("/addresses/{id}", h.handleGetAddressByID)
	router.Get("/users/{id}/addresses", h.handleListUserAddresses)
	router.Delete("/addresses/{id}", h.handleDeleteAddress)
}

func (h *AddressHandler) handleCreateAddress(w http.ResponseWriter, r *http.Request) {
	var req CreateAddressRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		log.Error().Err(err).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		validationErrors, ok := err.(validator.ValidationErrors)
		if ok {
			respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
				Error:   "Validation failed",
				Details: formatValidationErrors(validationErrors),
			})
		} else {
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return
	}

	userID, _ := uuid.FromString(req.UserID)
	a := address.Address{
		UserID:     userID,
		Street:     req.Street,
		City:       req.City,
		PostalCode: req.PostalCode,
		Country:    req.Country,
	}

	created, err := h.service.CreateAddress(r.Context(), &a)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create address via service")
		respondWithError(w, mapErrorToStatusCode(err), "Failed to create address")
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *AddressHandler) handleGetAddressByID(w http.ResponseWriter, r *http.Request) {
	addressID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	a, err := h.service.GetAddressByID(r.Context(), addressID)
	if err != nil {
		clientMessage := "Failed to get address by id"
		if errors.Is(err, address.ErrNotFound) {
			clientMessage = "Address not found"
		}

		respondWithError(w, mapErrorToStatusCode(err), clientMessage)
		return
	}

	respondWithJSON(w, http.StatusOK, a)
}

func (h *AddressHandler) handleListUserAddresses(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	addresses, err := h.service.GetAddressesByUserID(r.Context(), userID)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), "Failed to list user addresses")
		return
	}

	respondWithJSON(w, http.StatusOK, addresses)
}

func (h *AddressHandler) handleDeleteAddress(w http.ResponseWriter, r *http.Request) {
	addressID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	err := h.service.DeleteAddress(r.Context(), addressID)
	if err != nil {
		log.Error().Err(err).Stringer("address_id", addressID).Msg("Failed to delete address via service")

		clientMessage := "Failed to delete address"
		if errors.Is(err, address.ErrNotFound) {
			clientMessage = "Address not found"
		}

		respondWithError(w, mapErrorToStatusCode(err), clientMessage)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
