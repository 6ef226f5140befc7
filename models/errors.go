package models

import "errors"

// Input errors: rejected synchronously, never partially applied.
var (
	ErrNoBomDefined          = errors.New("no bom defined for product")
	ErrOrderNotFound         = errors.New("order not found")
	ErrProductNotFound       = errors.New("product not found")
	ErrNoCapacityDefined     = errors.New("no active production lines for tenant")
	ErrInvalidScenarioType   = errors.New("invalid scenario type")
	ErrInvalidScenarioParams = errors.New("invalid scenario parameters")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
)

// State-conflict errors: bad timing, not bad input.
var (
	ErrAlreadyCommitted     = errors.New("schedule already committed")
	ErrOrderStateConflict   = errors.New("order is no longer pending")
	ErrScheduleNotCommitted = errors.New("schedule is not committed")
	ErrInvalidTransition    = errors.New("invalid order status transition")
)
