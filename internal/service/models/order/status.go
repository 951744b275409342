package order

import (
	"errors"
)

// Status is the order lifecycle status as the backend names it.
type Status string

const (
	StatusPlaced    Status = "Placed"
	StatusConfirmed Status = "Confirmed"
	StatusPreparing Status = "Preparing"
	StatusReady     Status = "Ready"
	StatusAssigned  Status = "Assigned"
	StatusOnTheWay  Status = "OnTheWay"
	StatusDelivered Status = "Delivered"
	StatusCancelled Status = "Cancelled"
)

var ErrInvalidStatus = errors.New("invalid order status")

// forwardChain is the server-enforced lifecycle. Cancelled sits outside the
// chain as an alternate terminal state.
var forwardChain = []Status{
	StatusPlaced,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusAssigned,
	StatusOnTheWay,
	StatusDelivered,
}

// revertible lists the one-step-backward moves the owner UI may request.
// Reverts are ordinary status updates with the target computed client-side.
var revertible = map[Status]Status{
	StatusConfirmed: StatusPlaced,
	StatusPreparing: StatusConfirmed,
	StatusReady:     StatusPreparing,
}

func (s Status) String() string {
	return string(s)
}

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPlaced, StatusConfirmed, StatusPreparing, StatusReady,
		StatusAssigned, StatusOnTheWay, StatusDelivered, StatusCancelled:
		return Status(s), nil
	default:
		return "", ErrInvalidStatus
	}
}

// Next returns the next status along the forward chain. The second return is
// false for terminal statuses and for Cancelled.
func (s Status) Next() (Status, bool) {
	for i, st := range forwardChain {
		if st == s && i+1 < len(forwardChain) {
			return forwardChain[i+1], true
		}
	}

	return "", false
}

// Previous returns the one-step revert target, if the status is revertible.
func (s Status) Previous() (Status, bool) {
	prev, ok := revertible[s]

	return prev, ok
}

// Cancellable reports whether an order in this status may still be cancelled.
func (s Status) Cancellable() bool {
	switch s {
	case StatusPlaced, StatusConfirmed, StatusPreparing:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}
