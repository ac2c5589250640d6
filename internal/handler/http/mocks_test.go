package http_test

import (
	"context"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/cart"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/catalog"
	"github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/order"
)

type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) oneCart(args mock.Arguments) (*cart.Cart, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.Cart), args.Error(1)
}

func (m *MockCartService) oneItem(args mock.Arguments) (*cart.CartItem, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cart.CartItem), args.Error(1)
}

func (m *MockCartService) FindOrCreate(ctx context.Context, userID uuid.UUID) (*cart.Cart, error) {
	return m.oneCart(m.Called(ctx, userID))
}

func (m *MockCartService) FindOrCreateByEmail(ctx context.Context, email string) (*cart.Cart, error) {
	return m.oneCart(m.Called(ctx, email))
}

func (m *MockCartService) GetCart(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	return m.oneCart(m.Called(ctx, id))
}

func (m *MockCartService) ListCarts(ctx context.Context) ([]cart.Cart, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cart.Cart), args.Error(1)
}

func (m *MockCartService) DeleteCart(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockCartService) ReassignCart(ctx context.Context, id, userID uuid.UUID) (*cart.Cart, error) {
	return m.oneCart(m.Called(ctx, id, userID))
}

func (m *MockCartService) LockCart(ctx context.Context, id uuid.UUID) (*cart.Cart, error) {
	return m.oneCart(m.Called(ctx, id))
}

func (m *MockCartService) AddItem(ctx context.Context, cartID, productID uuid.UUID, quantity int) (*cart.CartItem, error) {
	return m.oneItem(m.Called(ctx, cartID, productID, quantity))
}

func (m *MockCartService) AddItemForUser(ctx context.Context, userID, productID uuid.UUID, quantity int) (*cart.CartItem, error) {
	return m.oneItem(m.Called(ctx, userID, productID, quantity))
}

func (m *MockCartService) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) (*cart.CartItem, error) {
	return m.oneItem(m.Called(ctx, itemID, quantity))
}

func (m *MockCartService) RemoveItem(ctx context.Context, itemID uuid.UUID) error {
	return m.Called(ctx, itemID).Error(0)
}

func (m *MockCartService) GetItem(ctx context.Context, itemID uuid.UUID) (*cart.CartItem, error) {
	return m.oneItem(m.Called(ctx, itemID))
}

func (m *MockCartService) ListItems(ctx context.Context) ([]cart.CartItem, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cart.CartItem), args.Error(1)
}

func (m *MockCartService) Clear(ctx context.Context, cartID uuid.UUID) error {
	return m.Called(ctx, cartID).Error(0)
}

func (m *MockCartService) RecomputeTotal(ctx context.Context, cartID uuid.UUID) (*cart.Cart, error) {
	return m.oneCart(m.Called(ctx, cartID))
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) oneOrder(args mock.Arguments) (*order.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) orderList(args mock.Arguments) ([]order.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) Checkout(ctx context.Context, in order.CheckoutInput) (*order.Order, error) {
	return m.oneOrder(m.Called(ctx, in))
}

func (m *MockOrderService) BuyNow(ctx context.Context, in order.BuyNowInput) (*order.Order, error) {
	return m.oneOrder(m.Called(ctx, in))
}

func (m *MockOrderService) GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return m.oneOrder(m.Called(ctx, id))
}

func (m *MockOrderService) GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]order.Order, error) {
	return m.orderList(m.Called(ctx, userID))
}

func (m *MockOrderService) GetOrdersByUserEmail(ctx context.Context, email string) ([]order.Order, error) {
	return m.orderList(m.Called(ctx, email))
}

func (m *MockOrderService) ListOrders(ctx context.Context) ([]order.Order, error) {
	return m.orderList(m.Called(ctx))
}

func (m *MockOrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus order.Status) (*order.Order, error) {
	return m.oneOrder(m.Called(ctx, orderID, newStatus))
}

func (m *MockOrderService) DeleteOrder(ctx context.Context, orderID uuid.UUID) error {
	return m.Called(ctx, orderID).Error(0)
}

type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) oneProduct(args mock.Arguments) (*catalog.Product, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Product), args.Error(1)
}

func (m *MockProductService) GetProduct(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	return m.oneProduct(m.Called(ctx, id))
}

func (m *MockProductService) GetCategory(ctx context.Context, id uuid.UUID) (*catalog.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Category), args.Error(1)
}

func (m *MockProductService) ReduceStock(ctx context.Context, id uuid.UUID, quantity int) (*catalog.Product, error) {
	return m.oneProduct(m.Called(ctx, id, quantity))
}

func (m *MockProductService) StartFlashSale(ctx context.Context, id uuid.UUID, percent decimal.Decimal, ttl time.Duration) (*catalog.Product, error) {
	return m.oneProduct(m.Called(ctx, id, percent, ttl))
}

func (m *MockProductService) StopFlashSale(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}
