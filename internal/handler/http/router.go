package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/catalog"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/order"
)

type Services struct {
	Carts    cart.Service
	Orders   order.Service
	Products catalog.Service
}

// NewRouter serves /health openly and everything else under /api behind
// auth.Middleware.
func NewRouter(services Services) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	router.Route("/api", func(api chi.Router) {
		api.Use(auth.Middleware)

		NewCartHandler(services.Carts).RegisterRoutes(api)
		NewOrderHandler(services.Orders).RegisterRoutes(api)
		NewProductHandler(services.Products).RegisterRoutes(api)
	})

	return router
}
