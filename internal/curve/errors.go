package curve

import "errors"

// Pricing errors. These are hard failures, distinct from a rejected
// trade, which is a normal typed result.
var (
	// ErrInvalidPrice is returned when curve math would divide by a
	// non-positive price.
	ErrInvalidPrice = errors.New("invalid price: must be positive")

	// ErrInvalidAmount is returned for a non-positive trade amount.
	ErrInvalidAmount = errors.New("invalid amount: must be positive")

	// ErrInsufficientBalance is returned when a simulated sell exceeds
	// the total supply.
	ErrInsufficientBalance = errors.New("insufficient balance: sell amount exceeds total supply")

	// ErrInvalidTradeType is returned for a trade type other than buy or sell.
	ErrInvalidTradeType = errors.New("invalid trade type")

	// ErrTokenNotFound is returned when a token was never launched.
	ErrTokenNotFound = errors.New("token not found")

	// ErrTokenExists is returned when launching an already-launched token.
	ErrTokenExists = errors.New("token already launched")
)
