package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/vasiliy-maslov/ecommerce-platform/internal/address"
	handler "github.com/vasiliy-maslov/ecommerce-platform/internal/handler/http"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/orchestrator"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/order"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/product"
	"github.com/vasiliy-maslov/ecommerce-platform/internal/user"
)

// NewRouter wires repositories, services and handlers. The order and product
// stores run on the pgx pool, the user and address stores on the sqlx
// connection.
func NewRouter(pool *pgxpool.Pool, sqlxDB *sqlx.DB) *chi.Mux {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	orderRepo := order.NewRepository(pool)
	productRepo := product.NewRepository(pool)
	userRepo := user.NewRepository(sqlxDB)
	addressRepo := address.NewRepository(sqlxDB)

	productSvc := product.NewService(productRepo)
	addressSvc := address.NewService(addressRepo)

	orchestratorSvc := orchestrator.NewService(userRepo, addressSvc, productSvc, orderRepo)
	userSvc := user.NewService(userRepo, addressSvc, orchestratorSvc)

	handler.NewUserHandler(userSvc).RegisterRoutes(r)
	handler.NewAddressHandler(addressSvc).RegisterRoutes(r)
	handler.NewProductHandler(productSvc).RegisterRoutes(r)
	handler.NewOrderHandler(orchestratorSvc).RegisterRoutes(r)

	return r
}
