package mech

import "errors"

var (
	// ErrVelocityUndefined is returned when a point's velocity was never set
	// in the requested frame.
	ErrVelocityUndefined = errors.New("mech: velocity undefined")

	// ErrNotConnected is returned for points that share no root.
	ErrNotConnected = errors.New("mech: points not connected")
)
