package domain

import "errors"

// ErrCartFull is returned by CartRepository.AddCartItem when the cart already
// holds the allowed number of items.
var ErrCartFull = errors.New("cart is full")
