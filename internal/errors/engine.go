package errors

var (
	ErrInvalidAmount = &DomainError{
		Code:    "INVALID_AMOUNT",
		Message: "amount must be greater than zero",
	}
	ErrAmountBelowMinimum = &DomainError{
		Code:    "AMOUNT_BELOW_MINIMUM",
		Message: "amount is below the minimum transfer size",
	}
	ErrUnknownCurrency = &DomainError{
		Code:    "UNKNOWN_CURRENCY",
		Message: "unknown currency code",
	}
	ErrInvalidExpiry = &DomainError{
		Code:    "INVALID_EXPIRY",
		Message: "expiry must be in the future",
	}
	ErrRequestNotFound = &DomainError{
		Code:    "REQUEST_NOT_FOUND",
		Message: "transfer request not found",
	}
	ErrRequestExpired = &DomainError{
		Code:    "REQUEST_EXPIRED",
		Message: "transfer request has expired",
	}
	// ErrPoolConservation indicates the pool accounting invariant broke.
	// It is a bug in the engine, never a user-facing condition.
	ErrPoolConservation = &DomainError{
		Code:    "POOL_CONSERVATION",
		Message: "pool conservation invariant violated",
	}
)
