package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/order"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/user"
)

const HeaderIdempotencyKey = "Idempotency-Key"

type ShippingAddressRequest struct {
	FullName    string `json:"full_name" validate:"required,max=255"`
	Phone       string `json:"phone" validate:"required,max=50"`
	AddressLine string `json:"address_line" validate:"required"`
	City        string `json:"city" validate:"required,max=100"`
	District    string `json:"district" validate:"max=100"`
	Ward        string `json:"ward" validate:"max=100"`
	Note        string `json:"note"`
	IsDefault   bool   `json:"is_default"`
}

func (req ShippingAddressRequest) toInput() order.AddressInput {
	return order.AddressInput{
		FullName:    strings.TrimSpace(req.FullName),
		Phone:       strings.TrimSpace(req.Phone),
		AddressLine: strings.TrimSpace(req.AddressLine),
		City:        strings.TrimSpace(req.City),
		District:    strings.TrimSpace(req.District),
		Ward:        strings.TrimSpace(req.Ward),
		Note:        req.Note,
		IsDefault:   req.IsDefault,
	}
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	admin := router.With(auth.RequireRole(user.RoleAdmin))

	router.Post("/orders/checkout", h.handleCheckout)
	router.Post("/orders/buy-now", h.handleBuyNow)
	admin.Put("/orders/{id}/status", h.handleUpdateStatus)
	admin.Delete("/orders/{id}", h.handleDeleteOrder)
	admin.Get("/orders", h.handleListOrders)
	router.Get("/orders/my", h.handleGetMyOrders)
	router.Get("/orders/user/{userId}", h.handleGetOrdersByUser)
	router.Get("/orders/{id}", h.handleGetOrder)
}

func (h *OrderHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidQuery(w, r, "userId")
	if !ok {
		return
	}
	cartID, ok := uuidQuery(w, r, "cartId")
	if !ok {
		return
	}

	var address ShippingAddressRequest
	if !decodeAndValidate(w, r, h.validate, &address) {
		return
	}

	placed, err := h.service.Checkout(r.Context(), order.CheckoutInput{
		UserID:         userID,
		CartID:         cartID,
		PaymentMethod:  r.URL.Query().Get("paymentMethod"),
		Address:        address.toInput(),
		IdempotencyKey: r.Header.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to checkout")
		return
	}

	respondWithJSON(w, http.StatusCreated, placed)
}

func (h *OrderHandler) handleBuyNow(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidQuery(w, r, "userId")
	if !ok {
		return
	}
	productID, ok := uuidQuery(w, r, "productId")
	if !ok {
		return
	}

	rawPrice := r.URL.Query().Get("price")
	price, err := decimal.NewFromString(rawPrice)
	if err != nil {
		log.Warn().Err(err).Str("price", rawPrice).Msg("Failed to parse price parameter")
		respondWithError(w, http.StatusBadRequest, "Invalid price parameter")
		return
	}

	quantity, ok := intQuery(w, r, "quantity", &defaultQuantity)
	if !ok {
		return
	}

	var address ShippingAddressRequest
	if !decodeAndValidate(w, r, h.validate, &address) {
		return
	}

	placed, err := h.service.BuyNow(r.Context(), order.BuyNowInput{
		UserID:         userID,
		ProductID:      productID,
		Price:          price,
		Quantity:       quantity,
		PaymentMethod:  r.URL.Query().Get("paymentMethod"),
		Address:        address.toInput(),
		IdempotencyKey: r.Header.Get(HeaderIdempotencyKey),
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to place order")
		return
	}

	respondWithJSON(w, http.StatusCreated, placed)
}

func (h *OrderHandler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	status, err := order.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		respondWithServiceError(w, err, "Invalid status parameter")
		return
	}

	updated, err := h.service.UpdateOrderStatus(r.Context(), orderID, status)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update order status")
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *OrderHandler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteOrder(r.Context(), orderID); err != nil {
		respondWithServiceError(w, err, "Failed to delete order")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to list orders")
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleGetMyOrders(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())

	orders, err := h.service.GetOrdersByUserEmail(r.Context(), principal.Email)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get orders")
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleGetOrdersByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userId")
	if !ok {
		return
	}

	orders, err := h.service.GetOrdersByUserID(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get orders by user")
		return
	}
	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	o, err := h.service.GetOrderByID(r.Context(), orderID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get order by id")
		return
	}
	respondWithJSON(w, http.StatusOK, o)
}
