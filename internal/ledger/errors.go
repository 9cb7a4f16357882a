package ledger

import "errors"

var (
	// ErrInvalidAmount is returned when a mutator receives a non-positive
	// amount, quantity or price.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientBalance is returned when a buy would drive the cash
	// balance negative.
	ErrInsufficientBalance = errors.New("insufficient cash balance")

	// ErrInsufficientHoldings is returned when a sell exceeds the held
	// quantity of the asset.
	ErrInsufficientHoldings = errors.New("insufficient holdings")

	// ErrAlreadyClaimed is returned when the daily bonus was already
	// claimed on the current calendar day.
	ErrAlreadyClaimed = errors.New("daily bonus already claimed today")

	// ErrUpgradeRequired is returned when the account tier carries no
	// daily bonus.
	ErrUpgradeRequired = errors.New("tier upgrade required to claim bonus")
)
