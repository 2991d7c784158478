package entity

import "errors"

var (
	ErrIDIsRequired       = errors.New("id is required")
	ErrCodeIsRequired     = errors.New("code is required")
	ErrNameIsRequired     = errors.New("name is required")
	ErrCustomerIsRequired = errors.New("customer is required")
	ErrNumberIsRequired   = errors.New("number is required")
	ErrAmountMustBePos    = errors.New("amount must be greater than zero")
	ErrSeriesIsRequired   = errors.New("series is required")
	ErrYearOutOfRange     = errors.New("year out of range")
)
