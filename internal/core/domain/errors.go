package domain

import "errors"

var (
	ErrItemNotFound     = errors.New("item not found")
	ErrCartLineNotFound = errors.New("cart line not found")
	ErrInvalidQuantity  = errors.New("invalid quantity")
	ErrInvalidPayload   = errors.New("invalid button payload")
	ErrInvalidMoney     = errors.New("invalid money amount")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrUnknownState     = errors.New("unknown session state")
)
