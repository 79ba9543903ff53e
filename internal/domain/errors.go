package domain

import "errors"

var (
	// ErrAlreadyOpen is returned by clock-in when the user already has an
	// open session. The existing session is left untouched.
	ErrAlreadyOpen = errors.New("session already open")

	// ErrNoOpenSession is returned by clock-out when there is nothing to close.
	ErrNoOpenSession = errors.New("no open session")

	// ErrInvalidRate is returned when an hourly rate is not finite and positive.
	ErrInvalidRate = errors.New("invalid hourly rate")
)
