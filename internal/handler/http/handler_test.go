package http_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/catalog"
	storefrontHttp "github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/handler/http"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/order"
)

type testServer struct {
	carts    *MockCartService
	orders   *MockOrderService
	products *MockProductService
	handler  http.Handler
}

func newTestServer() *testServer {
	s := &testServer{
		carts:    new(MockCartService),
		orders:   new(MockOrderService),
		products: new(MockProductService),
	}
	s.handler = storefrontHttp.NewRouter(storefrontHttp.Services{
		Carts:    s.carts,
		Orders:   s.orders,
		Products: s.products,
	})
	return s
}

const (
	userEmail  = "alice@example.com"
	adminEmail = "admin@example.com"
)

// do sends a request as email with role; an empty email sends no identity.
func (s *testServer) do(t *testing.T, method, target string, body io.Reader, email, role string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	if email != "" {
		req.Header.Set(auth.HeaderUserEmail, email)
		req.Header.Set(auth.HeaderUserRole, role)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body), "Failed to decode error response body")
	msg, ok := body["error"].(string)
	require.True(t, ok, "Error response should contain an 'error' field")
	return msg
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

var validAddress = storefrontHttp.ShippingAddressRequest{
	FullName:    "Alice Liddell",
	Phone:       "+1 555 0100",
	AddressLine: "1 Rabbit Hole",
	City:        "Oxford",
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer()
	rr := s.do(t, http.MethodGet, "/health", nil, "", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())
}

func TestRouter_RequiresIdentity(t *testing.T) {
	s := newTestServer()
	rr := s.do(t, http.MethodGet, "/api/carts/my", nil, "", "")

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Authentication required", decodeError(t, rr))
	s.carts.AssertNotCalled(t, "FindOrCreateByEmail", mock.Anything, mock.Anything)
}

func TestCartHandler_GetMyCart(t *testing.T) {
	s := newTestServer()
	c := &cart.Cart{ID: uuid.Must(uuid.NewV4()), UserID: uuid.Must(uuid.NewV4()), Total: decimal.RequireFromString("25.00"), Items: []cart.CartItem{}}
	s.carts.On("FindOrCreateByEmail", mock.Anything, userEmail).Return(c, nil).Once()

	rr := s.do(t, http.MethodGet, "/api/carts/my", nil, userEmail, "USER")
	require.Equal(t, http.StatusOK, rr.Code)

	var got cart.Cart
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.Equal(t, c.ID, got.ID)
	assert.True(t, c.Total.Equal(got.Total))
	s.carts.AssertExpectations(t)
}

func TestCartHandler_AdminRoutes(t *testing.T) {
	s := newTestServer()

	rr := s.do(t, http.MethodGet, "/api/carts", nil, userEmail, "USER")
	require.Equal(t, http.StatusForbidden, rr.Code)
	s.carts.AssertNotCalled(t, "ListCarts", mock.Anything)

	s.carts.On("ListCarts", mock.Anything).Return([]cart.Cart{}, nil).Once()
	rr = s.do(t, http.MethodGet, "/api/carts", nil, adminEmail, "ADMIN")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	cartID := uuid.Must(uuid.NewV4())
	s.carts.On("DeleteCart", mock.Anything, cartID).Return(nil).Once()
	rr = s.do(t, http.MethodDelete, "/api/carts/"+cartID.String(), nil, adminEmail, "ADMIN")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	s.carts.AssertExpectations(t)
}

func TestCartHandler_UpdateCart(t *testing.T) {
	cartID := uuid.Must(uuid.NewV4())
	newOwner := uuid.Must(uuid.NewV4())
	target := "/api/carts/" + cartID.String()

	t.Run("ReassignsOwner", func(t *testing.T) {
		s := newTestServer()
		s.carts.On("ReassignCart", mock.Anything, cartID, newOwner).
			Return(&cart.Cart{ID: cartID, UserID: newOwner, Total: decimal.RequireFromString("15.00")}, nil).Once()

		rr := s.do(t, http.MethodPut, target, jsonBody(t, map[string]string{"user_id": newOwner.String()}), adminEmail, "ADMIN")
		require.Equal(t, http.StatusOK, rr.Code)

		var got cart.Cart
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, newOwner, got.UserID)
		s.carts.AssertExpectations(t)
	})

	t.Run("TotalIsNotWritable", func(t *testing.T) {
		s := newTestServer()
		rr := s.do(t, http.MethodPut, target,
			bytes.NewBufferString(`{"user_id": "`+newOwner.String()+`", "total": "1.00"}`), adminEmail, "ADMIN")

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decodeError(t, rr), "Invalid request payload")
		s.carts.AssertNotCalled(t, "ReassignCart", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("OwnerAlreadyHasCart", func(t *testing.T) {
		s := newTestServer()
		s.carts.On("ReassignCart", mock.Anything, cartID, newOwner).Return(nil, cart.ErrUserHasCart).Once()

		rr := s.do(t, http.MethodPut, target, jsonBody(t, map[string]string{"user_id": newOwner.String()}), adminEmail, "ADMIN")
		require.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "user already has a cart", decodeError(t, rr))
	})

	t.Run("AdminOnly", func(t *testing.T) {
		s := newTestServer()
		rr := s.do(t, http.MethodPut, target, jsonBody(t, map[string]string{"user_id": newOwner.String()}), userEmail, "USER")
		require.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestCartHandler_AddItem(t *testing.T) {
	cartID := uuid.Must(uuid.NewV4())
	productID := uuid.Must(uuid.NewV4())

	t.Run("DefaultQuantity", func(t *testing.T) {
		s := newTestServer()
		item := &cart.CartItem{ID: uuid.Must(uuid.NewV4()), CartID: cartID, ProductID: productID, Quantity: 1, Subtotal: decimal.RequireFromString("10.00")}
		s.carts.On("AddItem", mock.Anything, cartID, productID, 1).Return(item, nil).Once()

		rr := s.do(t, http.MethodPost, "/api/cart-items?cartId="+cartID.String()+"&productId="+productID.String(), nil, userEmail, "USER")
		require.Equal(t, http.StatusCreated, rr.Code)
		s.carts.AssertExpectations(t)
	})

	t.Run("InvalidCartID", func(t *testing.T) {
		s := newTestServer()
		rr := s.do(t, http.MethodPost, "/api/cart-items?cartId=nope&productId="+productID.String(), nil, userEmail, "USER")

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid cartId parameter", decodeError(t, rr))
		s.carts.AssertNotCalled(t, "AddItem", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("NonNumericQuantity", func(t *testing.T) {
		s := newTestServer()
		rr := s.do(t, http.MethodPost, "/api/cart-items?cartId="+cartID.String()+"&productId="+productID.String()+"&quantity=two", nil, userEmail, "USER")
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{name: "InvalidQuantity", err: cart.ErrInvalidQuantity, wantCode: http.StatusBadRequest, wantMsg: "quantity must be greater than zero"},
		{name: "CartNotFound", err: cart.ErrCartNotFound, wantCode: http.StatusNotFound, wantMsg: "cart not found"},
		{name: "ProductNotFound", err: catalog.ErrProductNotFound, wantCode: http.StatusNotFound, wantMsg: "product not found"},
		{name: "StoreFailure", err: errors.New("service: failed to add item: connection refused"), wantCode: http.StatusInternalServerError, wantMsg: "Failed to add item to cart"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			s.carts.On("AddItem", mock.Anything, cartID, productID, -2).Return(nil, tt.err).Once()

			rr := s.do(t, http.MethodPost, "/api/cart-items?cartId="+cartID.String()+"&productId="+productID.String()+"&quantity=-2", nil, userEmail, "USER")
			require.Equal(t, tt.wantCode, rr.Code)
			assert.Equal(t, tt.wantMsg, decodeError(t, rr))
		})
	}
}

func TestCartHandler_UpdateAndRemoveItem(t *testing.T) {
	s := newTestServer()
	itemID := uuid.Must(uuid.NewV4())

	rr := s.do(t, http.MethodPut, "/api/cart-items/"+itemID.String(), nil, userEmail, "USER")
	require.Equal(t, http.StatusBadRequest, rr.Code, "quantity is required")

	s.carts.On("UpdateItemQuantity", mock.Anything, itemID, 3).Return(&cart.CartItem{ID: itemID, Quantity: 3}, nil).Once()
	rr = s.do(t, http.MethodPut, "/api/cart-items/"+itemID.String()+"?quantity=3", nil, userEmail, "USER")
	require.Equal(t, http.StatusOK, rr.Code)

	s.carts.On("RemoveItem", mock.Anything, itemID).Return(cart.ErrCartItemNotFound).Once()
	rr = s.do(t, http.MethodDelete, "/api/cart-items/"+itemID.String(), nil, userEmail, "USER")
	require.Equal(t, http.StatusNotFound, rr.Code)

	s.carts.AssertExpectations(t)
}

func TestCartHandler_CreateCart(t *testing.T) {
	s := newTestServer()
	userID := uuid.Must(uuid.NewV4())
	s.carts.On("FindOrCreate", mock.Anything, userID).Return(&cart.Cart{ID: uuid.Must(uuid.NewV4()), UserID: userID}, nil).Once()

	rr := s.do(t, http.MethodPost, "/api/carts", jsonBody(t, map[string]string{"user_id": userID.String()}), userEmail, "USER")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/carts", bytes.NewBufferString(`{"user_id": "`+uuid.Nil.String()+`"}`), userEmail, "USER")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr), "Field 'UserID' is required")

	s.carts.AssertExpectations(t)
}

func TestOrderHandler_Checkout(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	cartID := uuid.Must(uuid.NewV4())
	target := "/api/orders/checkout?userId=" + userID.String() + "&cartId=" + cartID.String() + "&paymentMethod=CARD"

	t.Run("Success", func(t *testing.T) {
		s := newTestServer()
		placed := &order.Order{
			ID:        uuid.Must(uuid.NewV4()),
			UserID:    userID,
			Total:     decimal.RequireFromString("25.00"),
			Status:    order.StatusPending,
			Items:     []order.OrderItem{},
			CreatedAt: time.Now().UTC().Truncate(time.Second),
		}

		want := order.CheckoutInput{
			UserID:        userID,
			CartID:        cartID,
			PaymentMethod: "CARD",
			Address: order.AddressInput{
				FullName:    validAddress.FullName,
				Phone:       validAddress.Phone,
				AddressLine: validAddress.AddressLine,
				City:        validAddress.City,
			},
			IdempotencyKey: "retry-42",
		}
		s.orders.On("Checkout", mock.Anything, mock.MatchedBy(func(in order.CheckoutInput) bool {
			return cmp.Equal(want, in)
		})).Return(placed, nil).Once()

		rr := s.do(t, http.MethodPost, target, jsonBody(t, validAddress), userEmail, "USER", storefrontHttp.HeaderIdempotencyKey, "retry-42")
		require.Equal(t, http.StatusCreated, rr.Code)

		var got order.Order
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
		assert.Equal(t, placed.ID, got.ID)
		assert.Equal(t, order.StatusPending, got.Status)
		s.orders.AssertExpectations(t)
	})

	t.Run("ValidationError", func(t *testing.T) {
		s := newTestServer()
		rr := s.do(t, http.MethodPost, target, jsonBody(t, storefrontHttp.ShippingAddressRequest{FullName: "A"}), userEmail, "USER")

		require.Equal(t, http.StatusBadRequest, rr.Code)
		msg := decodeError(t, rr)
		assert.Contains(t, msg, "Field 'Phone' is required")
		assert.Contains(t, msg, "Field 'AddressLine' is required")
		assert.Contains(t, msg, "Field 'City' is required")
		s.orders.AssertNotCalled(t, "Checkout", mock.Anything, mock.Anything)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		s := newTestServer()
		rr := s.do(t, http.MethodPost, target, bytes.NewBufferString(`{"full_name": "A" "phone"}`), userEmail, "USER")

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, decodeError(t, rr), "Invalid request payload")
	})

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "EmptyCart", err: order.ErrEmptyCart, wantCode: http.StatusConflict},
		{name: "CartNotOwned", err: order.ErrCartNotOwned, wantCode: http.StatusBadRequest},
		{name: "InProgress", err: order.ErrRequestInProgress, wantCode: http.StatusConflict},
		{name: "CartNotFound", err: cart.ErrCartNotFound, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			s.orders.On("Checkout", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			rr := s.do(t, http.MethodPost, target, jsonBody(t, validAddress), userEmail, "USER")
			require.Equal(t, tt.wantCode, rr.Code)
			assert.Equal(t, tt.err.Error(), decodeError(t, rr))
		})
	}
}

func TestOrderHandler_BuyNow(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	productID := uuid.Must(uuid.NewV4())
	base := "/api/orders/buy-now?userId=" + userID.String() + "&productId=" + productID.String()

	t.Run("DefaultsQuantityToOne", func(t *testing.T) {
		s := newTestServer()
		s.orders.On("BuyNow", mock.Anything, mock.MatchedBy(func(in order.BuyNowInput) bool {
			return in.UserID == userID &&
				in.ProductID == productID &&
				in.Quantity == 1 &&
				in.Price.Equal(decimal.RequireFromString("9.50")) &&
				in.PaymentMethod == ""
		})).Return(&order.Order{ID: uuid.Must(uuid.NewV4())}, nil).Once()

		rr := s.do(t, http.MethodPost, base+"&price=9.50", jsonBody(t, validAddress), userEmail, "USER")
		require.Equal(t, http.StatusCreated, rr.Code)
		s.orders.AssertExpectations(t)
	})

	t.Run("InvalidPrice", func(t *testing.T) {
		s := newTestServer()
		rr := s.do(t, http.MethodPost, base+"&price=cheap", jsonBody(t, validAddress), userEmail, "USER")

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "Invalid price parameter", decodeError(t, rr))
		s.orders.AssertNotCalled(t, "BuyNow", mock.Anything, mock.Anything)
	})

	t.Run("ServiceRejectsQuantity", func(t *testing.T) {
		s := newTestServer()
		s.orders.On("BuyNow", mock.Anything, mock.Anything).Return(nil, order.ErrInvalidQuantity).Once()

		rr := s.do(t, http.MethodPost, base+"&price=10&quantity=0", jsonBody(t, validAddress), userEmail, "USER")
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "quantity must be greater than zero", decodeError(t, rr))
	})
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())
	target := "/api/orders/" + orderID.String() + "/status?status="

	s := newTestServer()

	rr := s.do(t, http.MethodPut, target+"confirmed", nil, userEmail, "USER")
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(t, http.MethodPut, target+"PAID", nil, adminEmail, "ADMIN")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "unknown order status", decodeError(t, rr))

	s.orders.On("UpdateOrderStatus", mock.Anything, orderID, order.StatusConfirmed).
		Return(&order.Order{ID: orderID, Status: order.StatusConfirmed}, nil).Once()
	rr = s.do(t, http.MethodPut, target+"confirmed", nil, adminEmail, "ADMIN")
	require.Equal(t, http.StatusOK, rr.Code)

	s.orders.On("UpdateOrderStatus", mock.Anything, orderID, order.StatusPending).
		Return(nil, order.ErrInvalidStatusTransition).Once()
	rr = s.do(t, http.MethodPut, target+"PENDING", nil, adminEmail, "ADMIN")
	require.Equal(t, http.StatusConflict, rr.Code)

	s.orders.AssertExpectations(t)
}

func TestOrderHandler_Reads(t *testing.T) {
	s := newTestServer()
	userID := uuid.Must(uuid.NewV4())
	orderID := uuid.Must(uuid.NewV4())

	s.orders.On("GetOrdersByUserEmail", mock.Anything, userEmail).Return([]order.Order{{ID: orderID}}, nil).Once()
	rr := s.do(t, http.MethodGet, "/api/orders/my", nil, userEmail, "USER")
	require.Equal(t, http.StatusOK, rr.Code)

	s.orders.On("GetOrdersByUserID", mock.Anything, userID).Return([]order.Order{}, nil).Once()
	rr = s.do(t, http.MethodGet, "/api/orders/user/"+userID.String(), nil, userEmail, "USER")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	s.orders.On("GetOrderByID", mock.Anything, orderID).Return(nil, order.ErrOrderNotFound).Once()
	rr = s.do(t, http.MethodGet, "/api/orders/"+orderID.String(), nil, userEmail, "USER")
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "order not found", decodeError(t, rr))

	rr = s.do(t, http.MethodGet, "/api/orders/not-a-uuid", nil, userEmail, "USER")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/orders", nil, userEmail, "USER")
	require.Equal(t, http.StatusForbidden, rr.Code)

	s.orders.On("DeleteOrder", mock.Anything, orderID).Return(nil).Once()
	rr = s.do(t, http.MethodDelete, "/api/orders/"+orderID.String(), nil, adminEmail, "ADMIN")
	require.Equal(t, http.StatusNoContent, rr.Code)

	s.orders.AssertExpectations(t)
}

func TestProductHandler(t *testing.T) {
	productID := uuid.Must(uuid.NewV4())
	product := &catalog.Product{ID: productID, Name: "A", Price: decimal.RequireFromString("10.00"), Quantity: 4}

	t.Run("GetProduct", func(t *testing.T) {
		s := newTestServer()
		s.products.On("GetProduct", mock.Anything, productID).Return(product, nil).Once()

		rr := s.do(t, http.MethodGet, "/api/products/"+productID.String(), nil, userEmail, "USER")
		require.Equal(t, http.StatusOK, rr.Code)
		s.products.AssertExpectations(t)
	})

	t.Run("UpdateStock", func(t *testing.T) {
		s := newTestServer()
		target := "/api/products/" + productID.String() + "/update-stock?quantity=10"

		rr := s.do(t, http.MethodPut, target, nil, userEmail, "USER")
		require.Equal(t, http.StatusForbidden, rr.Code)

		s.products.On("ReduceStock", mock.Anything, productID, 10).Return(nil, catalog.ErrInsufficientStock).Once()
		rr = s.do(t, http.MethodPut, target, nil, adminEmail, "ADMIN")
		require.Equal(t, http.StatusConflict, rr.Code)
		assert.Equal(t, "insufficient stock", decodeError(t, rr))
	})

	t.Run("FlashSale", func(t *testing.T) {
		s := newTestServer()
		s.products.On("StartFlashSale", mock.Anything, productID, mock.MatchedBy(func(p decimal.Decimal) bool {
			return p.Equal(decimal.NewFromInt(20))
		}), 90*time.Minute).Return(product, nil).Once()
		s.products.On("StopFlashSale", mock.Anything, productID).Return(catalog.ErrFlashSalesDisabled).Once()

		rr := s.do(t, http.MethodPut, "/api/products/"+productID.String()+"/flash-sale",
			bytes.NewBufferString(`{"discount_percent": 20, "duration_minutes": 90}`), adminEmail, "ADMIN")
		require.Equal(t, http.StatusOK, rr.Code)

		rr = s.do(t, http.MethodDelete, "/api/products/"+productID.String()+"/flash-sale", nil, adminEmail, "ADMIN")
		require.Equal(t, http.StatusConflict, rr.Code)

		s.products.AssertExpectations(t)
	})
}
