package queue

import (
	"errors"
)

var (
	ErrDropQueueFull = errors.New("the message queue is full")
	ErrInvalidPolicy = errors.New("invalid queue policy")
)

// ValidatePolicy returns ErrInvalidPolicy if p is not a known policy. Empty means PolicyReject.
func ValidatePolicy(p Policy) error {
	switch p {
	case "", PolicyReject, PolicyDropOldest:
		return nil
	}
	return ErrInvalidPolicy
}
