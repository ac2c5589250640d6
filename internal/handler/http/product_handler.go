package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/catalog"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/user"
)

type StartFlashSaleRequest struct {
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	// 0 keeps the sale running until it is stopped.
	DurationMinutes int `json:"duration_minutes" validate:"gte=0"`
}

type ProductHandler struct {
	service  catalog.Service
	validate *validator.Validate
}

func NewProductHandler(service catalog.Service) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *ProductHandler) RegisterRoutes(router chi.Router) {
	admin := router.With(auth.RequireRole(user.RoleAdmin))

	router.Get("/products/{id}", h.handleGetProduct)
	admin.Put("/products/{id}/update-stock", h.handleReduceStock)
	admin.Put("/products/{id}/flash-sale", h.handleStartFlashSale)
	admin.Delete("/products/{id}/flash-sale", h.handleStopFlashSale)
}

func (h *ProductHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	p, err := h.service.GetProduct(r.Context(), productID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get product")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) handleReduceStock(w http.ResponseWriter, r *http.Request) {
	productID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	quantity, ok := intQuery(w, r, "quantity", nil)
	if !ok {
		return
	}

	p, err := h.service.ReduceStock(r.Context(), productID, quantity)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update stock")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) handleStartFlashSale(w http.ResponseWriter, r *http.Request) {
	productID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var requestPayload StartFlashSaleRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	ttl := time.Duration(requestPayload.DurationMinutes) * time.Minute
	p, err := h.service.StartFlashSale(r.Context(), productID, requestPayload.DiscountPercent, ttl)
	if err != nil {
		respondWithServiceError(w, err, "Failed to start flash sale")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *ProductHandler) handleStopFlashSale(w http.ResponseWriter, r *http.Request) {
	productID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.StopFlashSale(r.Context(), productID); err != nil {
		respondWithServiceError(w, err, "Failed to stop flash sale")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
