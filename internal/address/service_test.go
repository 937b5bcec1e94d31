package address_test

import (
	"context"
	"errors"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/address"
)

type mockRepository struct {
	createFunc       func(ctx context.Context, a *address.Address) (uuid.UUID, error)
	getByIDFunc      func(ctx context.Context, id uuid.UUID) (*address.Address, error)
	listByUserIDFunc func(ctx context.Context, userID uuid.UUID) ([]address.Address, error)
	updateFunc       func(ctx context.Context, a *address.Address) error
	deleteFunc       func(ctx context.Context, id uuid.UUID) error
}

func (m *mockRepository) Create(ctx context.Context, a *address.Address) (uuid.UUID, error) {
	return m.createFunc(ctx, a)
}

func (m *mockRepository) GetByID(ctx context.Context, id uuid.UUID) (*address.Address, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockRepository) ListByUserID(ctx context.Context, userID uuid.UUID) ([]address.Address, error) {
	return m.listByUserIDFunc(ctx, userID)
}

func (m *mockRepository) Update(ctx context.Context, a *address.Address) error {
	return m.updateFunc(ctx, a)
}

func (m *mockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

func mustUUID(t *testing.T) uuid.UUID {
	t.Helper()
	id, err := uuid.NewV4()
	require.NoError(t, err)
	return id
}

func TestCreateAddress(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())

	tests := []struct {
		name    string
		address *address.Address
		wantErr bool
	}{
		{name: "valid", address: &address.Address{UserID: userID, Street: "1 Main St", City: "Springfield", Country: "US"}},
		{name: "missing_user", address: &address.Address{Street: "1 Main St", City: "Springfield", Country: "US"}, wantErr: true},
		{name: "missing_street", address: &address.Address{UserID: userID, City: "Springfield", Country: "US"}, wantErr: true},
		{name: "missing_city", address: &address.Address{UserID: userID, Street: "1 Main St", Country: "US"}, wantErr: true},
		{name: "missing_country", address: &address.Address{UserID: userID, Street: "1 Main St", City: "Springfield"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			newID := mustUUID(t)
			created := false
			repo := &mockRepository{
				createFunc: func(_ context.Context, _ *address.Address) (uuid.UUID, error) {
					created = true
					return newID, nil
				},
			}
			svc := address.NewService(repo)

			got, err := svc.CreateAddress(context.Background(), tt.address)
			if tt.wantErr {
				assert.Error(t, err)
				assert.False(t, created, "invalid input must not reach the repository")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, newID, got.ID)
		})
	}
}

func TestGetAddressByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		expected := address.Address{
			ID:         uuid.Must(uuid.NewV4()),
			UserID:     uuid.Must(uuid.NewV4()),
			Street:     "1 Main St",
			City:       "Springfield",
			PostalCode: "12345",
			Country:    "US",
		}
		repo := &mockRepository{
			getByIDFunc: func(_ context.Context, id uuid.UUID) (*address.Address, error) {
				assert.Equal(t, expected.ID, id)
				a := expected
				return &a, nil
			},
		}
		svc := address.NewService(repo)

		found, err := svc.GetAddressByID(context.Background(), expected.ID)

		require.NoError(t, err)
		diff := cmp.Diff(expected, *found)
		assert.Empty(t, diff, "found address mismatch (-want +got):\n%s", diff)
	})

	t.Run("not_found", func(t *testing.T) {
		repo := &mockRepository{
			getByIDFunc: func(_ context.Context, _ uuid.UUID) (*address.Address, error) {
				return nil, address.ErrNotFound
			},
		}
		svc := address.NewService(repo)

		_, err := svc.GetAddressByID(context.Background(), mustUUID(t))
		assert.ErrorIs(t, err, address.ErrNotFound)
	})

	t.Run("unexpected_error_wrapped", func(t *testing.T) {
		repoErr := errors.New("connection reset")
		repo := &mockRepository{
			getByIDFunc: func(_ context.Context, _ uuid.UUID) (*address.Address, error) {
				return nil, repoErr
			},
		}
		svc := address.NewService(repo)

		_, err := svc.GetAddressByID(context.Background(), mustUUID(t))
		assert.ErrorIs(t, err, repoErr)
	})
}

func TestGetAddressesByUserID(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	expected := []address.Address{
		{ID: uuid.Must(uuid.NewV4()), UserID: userID, Street: "1 Main St", City: "Springfield", Country: "US"},
		{ID: uuid.Must(uuid.NewV4()), UserID: userID, Street: "2 Side St", City: "Springfield", Country: "US"},
	}
	repo := &mockRepository{
		listByUserIDFunc: func(_ context.Context, gotID uuid.UUID) ([]address.Address, error) {
			assert.Equal(t, userID, gotID)
			return expected, nil
		},
	}
	svc := address.NewService(repo)

	got, err := svc.GetAddressesByUserID(context.Background(), userID)

	require.NoError(t, err)
	diff := cmp.Diff(expected, got)
	assert.Empty(t, diff, "address list mismatch (-want +got):\n%s", diff)
}

func TestDeleteAddress(t *testing.T) {
	t.Run("not_found", func(t *testing.T) {
		repo := &mockRepository{
			deleteFunc: func(_ context.Context, _ uuid.UUID) error {
				return address.ErrNotFound
			},
		}
		svc := address.NewService(repo)

		assert.ErrorIs(t, svc.DeleteAddress(context.Background(), mustUUID(t)), address.ErrNotFound)
	})

	t.Run("success", func(t *testing.T) {
		var deleted uuid.UUID
		repo := &mockRepository{
			deleteFunc: func(_ context.Context, id uuid.UUID) error {
				deleted = id
				return nil
			},
		}
		svc := address.NewService(repo)

		id := mustUUID(t)
		require.NoError(t, svc.DeleteAddress(context.Background(), id))
		assert.Equal(t, id, deleted)
	})
}

func TestUpdateAddress(t *testing.T) {
	t.Run("not_found", func(t *testing.T) {
		repo := &mockRepository{
			updateFunc: func(_ context.Context, _ *address.Address) error {
				return address.ErrNotFound
			},
		}
		svc := address.NewService(repo)

		err := svc.UpdateAddress(context.Background(), &address.Address{ID: mustUUID(t)})
		assert.ErrorIs(t, err, address.ErrNotFound)
	})
}
