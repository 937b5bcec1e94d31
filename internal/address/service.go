package address

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

type Service interface {
	CreateAddress(ctx context.Context, address *Address) (*Address, error)
	GetAddressByID(ctx context.Context, id uuid.UUID) (*Address, error)
	GetAddressesByUserID(ctx context.Context, userID uuid.UUID) ([]Address, error)
	UpdateAddress(ctx context.Context, address *Address) error
	DeleteAddress(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateAddress(ctx context.Context, a *Address) (*Address, error) {
	if a.UserID == uuid.Nil {
		return nil, errors.New("service: address user id cannot be empty")
	}
	if a.Street == "" || a.City == "" || a.Country == "" {
		return nil, errors.New("service: address street, city and country are required")
	}

	id, err := s.repo.Create(ctx, a)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", a.UserID).Msg("service: failed to create address in repository")
		return nil, fmt.Errorf("service: failed to create address: %w", err)
	}
	a.ID = id

	return a, nil
}

func (s *service) GetAddressByID(ctx context.Context, id uuid.UUID) (*Address, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("address_id", id).Msg("service: failed to fetch address by id")
		return nil, fmt.Errorf("service: failed to fetch address by id: %w", err)
	}

	return a, nil
}

func (s *service) GetAddressesByUserID(ctx context.Context, userID uuid.UUID) ([]Address, error) {
	addresses, err := s.repo.ListByUserID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch user addresses")
		return nil, fmt.Errorf("service: failed to fetch user addresses: %w", err)
	}

	return addresses, nil
}

func (s *service) UpdateAddress(ctx context.Context, a *Address) error {
	err := s.repo.Update(ctx, a)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Stringer("address_id", a.ID).Msg("service: failed to update address")
		return fmt.Errorf("service: failed to update address: %w", err)
	}

	return nil
}

func (s *service) DeleteAddress(ctx context.Context, id uuid.UUID) error {
	err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Stringer("address_id", id).Msg("service: failed to delete address")
		return fmt.Errorf("service: failed to delete address: %w", err)
	}

	return nil
}
