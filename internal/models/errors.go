package models

import "errors"

var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrCustomerNotFound     = errors.New("customer not found")
	ErrAccountAlreadyExists = errors.New("customer already has an account")
	ErrEmailAlreadyExists   = errors.New("email already registered")
	ErrAccountNumberTaken   = errors.New("account number already in use")

	ErrInvalidAmount    = errors.New("amount must be greater than zero and have at most two decimal places")
	ErrInvalidKind      = errors.New("invalid transaction type")
	ErrInvalidCategory  = errors.New("category is required")
	ErrInvalidCustomer  = errors.New("name and email are required")
	ErrInvalidDateRange = errors.New("startDate must not be after endDate")
	ErrInvalidDate      = errors.New("dates must use the YYYY-MM-DD format")

	// ErrStoreFailure wraps every storage I/O failure.
	ErrStoreFailure = errors.New("store failure")
)
