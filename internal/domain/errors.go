package domain

import "errors"

var (
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrNoActiveRedemption     = errors.New("no active redemption")
	ErrUnknownEntity          = errors.New("unknown entity")
	ErrInvalidShopForTrail    = errors.New("shop is not part of trail")
)

// ErrInvalidArgument marks malformed input such as an out-of-range rating.
var ErrInvalidArgument = errors.New("invalid argument")
