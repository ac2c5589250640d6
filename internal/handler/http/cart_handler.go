package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/user"
)

type CreateCartRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

// UpdateCartRequest changes the owner only. The total always follows the items.
type UpdateCartRequest struct {
	UserID uuid.UUID `json:"user_id" validate:"required"`
}

type CartHandler struct {
	service  cart.Service
	validate *validator.Validate
}

func NewCartHandler(service cart.Service) *CartHandler {
	return &CartHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	admin := router.With(auth.RequireRole(user.RoleAdmin))

	admin.Get("/carts", h.handleListCarts)
	router.Get("/carts/my", h.handleGetMyCart)
	router.Get("/carts/user/{userId}", h.handleGetCartByUser)
	router.Get("/carts/{id}", h.handleGetCart)
	router.Post("/carts", h.handleCreateCart)
	admin.Put("/carts/{id}", h.handleUpdateCart)
	admin.Delete("/carts/{id}", h.handleDeleteCart)
	router.Delete("/carts/{id}/clear", h.handleClearCart)

	admin.Get("/cart-items", h.handleListItems)
	router.Get("/cart-items/{id}", h.handleGetItem)
	router.Post("/cart-items", h.handleAddItem)
	router.Post("/cart-items/add-by-user", h.handleAddItemForUser)
	router.Put("/cart-items/{id}", h.handleUpdateItem)
	router.Delete("/cart-items/{id}", h.handleRemoveItem)
}

func (h *CartHandler) handleListCarts(w http.ResponseWriter, r *http.Request) {
	carts, err := h.service.ListCarts(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to list carts")
		return
	}
	respondWithJSON(w, http.StatusOK, carts)
}

func (h *CartHandler) handleGetMyCart(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.FromContext(r.Context())

	c, err := h.service.FindOrCreateByEmail(r.Context(), principal.Email)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get cart")
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleGetCartByUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "userId")
	if !ok {
		return
	}

	c, err := h.service.FindOrCreate(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get cart by user")
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	cartID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	c, err := h.service.GetCart(r.Context(), cartID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get cart")
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleCreateCart(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateCartRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	c, err := h.service.FindOrCreate(r.Context(), requestPayload.UserID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create cart")
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleUpdateCart(w http.ResponseWriter, r *http.Request) {
	cartID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var requestPayload UpdateCartRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	c, err := h.service.ReassignCart(r.Context(), cartID, requestPayload.UserID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update cart")
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

func (h *CartHandler) handleDeleteCart(w http.ResponseWriter, r *http.Request) {
	cartID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteCart(r.Context(), cartID); err != nil {
		respondWithServiceError(w, err, "Failed to delete cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	cartID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Clear(r.Context(), cartID); err != nil {
		respondWithServiceError(w, err, "Failed to clear cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListItems(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to list cart items")
		return
	}
	respondWithJSON(w, http.StatusOK, items)
}

func (h *CartHandler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	item, err := h.service.GetItem(r.Context(), itemID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get cart item")
		return
	}
	respondWithJSON(w, http.StatusOK, item)
}

var defaultQuantity = 1

func (h *CartHandler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	cartID, ok := uuidQuery(w, r, "cartId")
	if !ok {
		return
	}
	productID, ok := uuidQuery(w, r, "productId")
	if !ok {
		return
	}
	quantity, ok := intQuery(w, r, "quantity", &defaultQuantity)
	if !ok {
		return
	}

	item, err := h.service.AddItem(r.Context(), cartID, productID, quantity)
	if err != nil {
		respondWithServiceError(w, err, "Failed to add item to cart")
		return
	}
	respondWithJSON(w, http.StatusCreated, item)
}

func (h *CartHandler) handleAddItemForUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidQuery(w, r, "userId")
	if !ok {
		return
	}
	productID, ok := uuidQuery(w, r, "productId")
	if !ok {
		return
	}
	quantity, ok := intQuery(w, r, "quantity", &defaultQuantity)
	if !ok {
		return
	}

	item, err := h.service.AddItemForUser(r.Context(), userID, productID, quantity)
	if err != nil {
		respondWithServiceError(w, err, "Failed to add item to cart")
		return
	}
	respondWithJSON(w, http.StatusCreated, item)
}

func (h *CartHandler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	quantity, ok := intQuery(w, r, "quantity", nil)
	if !ok {
		return
	}

	item, err := h.service.UpdateItemQuantity(r.Context(), itemID, quantity)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update cart item")
		return
	}
	respondWithJSON(w, http.StatusOK, item)
}

func (h *CartHandler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.RemoveItem(r.Context(), itemID); err != nil {
		respondWithServiceError(w, err, "Failed to remove cart item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
