package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/address"
)

// AddressStore is the slice of the address service the deletion cascade
// needs.
type AddressStore interface {
	GetAddressesByUserID(ctx context.Context, userID uuid.UUID) ([]address.Address, error)
	DeleteAddress(ctx context.Context, id uuid.UUID) error
}

// OrderCanceller cancels every order of a user, best effort.
type OrderCanceller interface {
	CancelUserOrders(ctx context.Context, userID uuid.UUID) error
}

type Service interface {
	CreateUser(ctx context.Context, user *User) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo      Repository
	addresses AddressStore
	orders    OrderCanceller
}

func NewService(repo Repository, addresses AddressStore, orders OrderCanceller) Service {
	return &service{
		repo:      repo,
		addresses: addresses,
		orders:    orders,
	}
}

func (s *service) CreateUser(ctx context.Context, u *User) (*User, error) {
	if u.PasswordHash == "" {
		return nil, errors.New("service: password cannot be empty")
	}
	if u.Email == "" {
		return nil, errors.New("service: email cannot be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(u.PasswordHash), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to hash password")
		return nil, fmt.Errorf("service: failed to hash password: %w", err)
	}
	u.PasswordHash = string(hash)

	id, err := s.repo.Create(ctx, u)
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, ErrEmailExists
		}
		log.Error().Err(err).Msg("service: failed to create user in repository")
		return nil, fmt.Errorf("service: failed to create user: %w", err)
	}
	u.ID = id

	log.Info().Stringer("user_id", u.ID).Msg("service: user created")
	return u, nil
}

func (s *service) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to fetch user by id")
		return nil, fmt.Errorf("service: failed to fetch user by id: %w", err)
	}

	return u, nil
}

func (s *service) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		log.Error().Err(err).Str("email", email).Msg("service: failed to fetch user by email")
		return nil, fmt.Errorf("service: failed to fetch user by email: %w", err)
	}

	return u, nil
}

func (s *service) UpdateUser(ctx context.Context, u *User) error {
	if u.PasswordHash != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.PasswordHash), bcrypt.DefaultCost)
		if err != nil {
			log.Error().Err(err).Msg("service: failed to hash password")
			return fmt.Errorf("service: failed to hash password: %w", err)
		}
		u.PasswordHash = string(hash)
	}

	err := s.repo.Update(ctx, u)
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrEmailExists) {
			return err
		}
		log.Error().Err(err).Stringer("user_id", u.ID).Msg("service: failed to update user")
		return fmt.Errorf("service: failed to update user: %w", err)
	}

	return nil
}

// DeleteUser removes the user record and then kicks off the cleanup of the
// user's addresses and orders as unawaited background work. The cleanup is
// deliberately non-blocking and non-transactional: individual failures are
// logged and skipped, and DeleteUser reports success once the user record
// itself is gone.
func (s *service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to check user before delete")
		return fmt.Errorf("service: failed to check user before delete: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		log.Error().Err(err).Stringer("user_id", id).Msg("service: failed to delete user")
		return fmt.Errorf("service: failed to delete user: %w", err)
	}

	go s.cleanupAddresses(id)
	go s.cancelOrders(id)

	log.Info().Stringer("user_id", id).Msg("service: user deleted, cleanup dispatched")
	return nil
}

func (s *service) cleanupAddresses(userID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	addresses, err := s.addresses.GetAddressesByUserID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: cascade failed to list user addresses")
		return
	}

	for _, a := range addresses {
		if err := s.addresses.DeleteAddress(ctx, a.ID); err != nil {
			log.Error().Err(err).Stringer("user_id", userID).Stringer("address_id", a.ID).Msg("service: cascade failed to delete address, skipping")
		}
	}
}

func (s *service) cancelOrders(userID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.orders.CancelUserOrders(ctx, userID); err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: cascade failed to cancel user orders")
	}
}
