package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
)

var ErrInvalidStockQuantity = errors.New("stock quantity must be greater than zero")

// Service owns the product catalog and the stock ledger. Reserve and Release
// are the two operations the order workflows depend on: a reserve is a direct
// decrement of available stock, there is no separate reserved pool, so a
// reserve that is never followed by a release keeps the stock out of
// circulation until an operator puts it back.
type Service interface {
	CreateProduct(ctx context.Context, product *Product) (*Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
	DeactivateProduct(ctx context.Context, id uuid.UUID) error
	Reserve(ctx context.Context, productID uuid.UUID, quantity int) (float64, error)
	Release(ctx context.Context, productID uuid.UUID, quantity int) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) CreateProduct(ctx context.Context, p *Product) (*Product, error) {
	if p.Name == "" {
		return nil, errors.New("service: product name cannot be empty")
	}
	if p.Price <= 0 {
		return nil, fmt.Errorf("service: product price must be greater than zero, got %f", p.Price)
	}
	if p.AvailableStock < 0 {
		return nil, fmt.Errorf("service: product stock cannot be negative, got %d", p.AvailableStock)
	}

	id, err := s.repo.Create(ctx, p)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to create product in repository")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}
	p.ID = id

	log.Info().Stringer("product_id", p.ID).Str("name", p.Name).Msg("service: product created")
	return p, nil
}

func (s *service) GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to fetch product by id")
		return nil, fmt.Errorf("service: failed to fetch product by id: %w", err)
	}

	return p, nil
}

func (s *service) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	err := s.repo.SetActive(ctx, id, false)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to deactivate product")
		return fmt.Errorf("service: failed to deactivate product: %w", err)
	}

	log.Info().Stringer("product_id", id).Msg("service: product deactivated")
	return nil
}

func (s *service) Reserve(ctx context.Context, productID uuid.UUID, quantity int) (float64, error) {
	if quantity <= 0 {
		return 0, ErrInvalidStockQuantity
	}

	price, err := s.repo.ReserveStock(ctx, productID, quantity)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrProductNotActive) || errors.Is(err, ErrInsufficientStock) {
			log.Warn().Err(err).Stringer("product_id", productID).Int("quantity", quantity).Msg("service: stock reservation rejected")
			return 0, err
		}
		log.Error().Err(err).Stringer("product_id", productID).Int("quantity", quantity).Msg("service: failed to reserve stock")
		return 0, fmt.Errorf("service: failed to reserve stock: %w", err)
	}

	log.Info().Stringer("product_id", productID).Int("quantity", quantity).Float64("unit_price", price).Msg("service: stock reserved")
	return price, nil
}

func (s *service) Release(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidStockQuantity
	}

	err := s.repo.ReleaseStock(ctx, productID, quantity)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", productID).Int("quantity", quantity).Msg("service: failed to release stock")
		return fmt.Errorf("service: failed to release stock: %w", err)
	}

	log.Info().Stringer("product_id", productID).Int("quantity", quantity).Msg("service: stock released")
	return nil
}
