package service

import "errors"

// Validation and domain errors returned by the services. Store-level errors
// (not found, conflict, unavailable) pass through wrapped.
var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrEmptyOrders         = errors.New("order_ids are required")
	ErrInvalidQuantity     = errors.New("quantity must be > 0")
	ErrMissingFood         = errors.New("food is required")
	ErrMissingUser         = errors.New("user is required")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidMethod       = errors.New("invalid payment_method")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderNotOwned       = errors.New("order belongs to another user")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrPaymentNotOwned     = errors.New("payment belongs to another user")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrStaffExists         = errors.New("staff profile already exists")
	ErrEmailTaken          = errors.New("email already registered")
	ErrMissingCredentials  = errors.New("email and password are required")
	ErrMissingName         = errors.New("name is required")
	ErrRewardNotFound      = errors.New("reward not found")
	ErrAlreadyRedeemed     = errors.New("reward already redeemed")
	ErrInsufficientPoints  = errors.New("not enough points")
	ErrBookkeepingPending  = errors.New("payment recorded, bookkeeping queued for retry")
)
