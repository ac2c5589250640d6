package order

import "github.com/vasiliy-maslov/ecommerce-microservices/storefront/internal/apperr"

var (
	ErrOrderNotFound           = apperr.New(apperr.ErrNotFound, "order not found")
	ErrEmptyCart               = apperr.New(apperr.ErrInvalidState, "cart is empty, cannot checkout")
	ErrCartNotOwned            = apperr.New(apperr.ErrInvalidArgument, "cart does not belong to user")
	ErrInvalidQuantity         = apperr.New(apperr.ErrInvalidArgument, "quantity must be greater than zero")
	ErrInvalidPrice            = apperr.New(apperr.ErrInvalidArgument, "price must be greater than zero")
	ErrUnknownStatus           = apperr.New(apperr.ErrInvalidArgument, "unknown order status")
	ErrInvalidStatusTransition = apperr.New(apperr.ErrInvalidState, "invalid order status transition")
	ErrRequestInProgress       = apperr.New(apperr.ErrConflict, "a request with this idempotency key is already in progress")
)
