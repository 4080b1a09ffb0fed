package service

import "errors"

var ErrSecretUnconfigured = errors.New("ad unlock secret is not configured")
var ErrTicketInvalid = errors.New("ticket invalid")
var ErrTicketUsed = errors.New("ticket already used")
var ErrAppNotFound = errors.New("app not found")

type sentinelError struct {
	msg      string
	sentinel error
}

func (e sentinelError) Error() string {
	return e.msg
}

func (e sentinelError) Unwrap() error {
	return e.sentinel
}

func wrapSentinel(msg string, sentinel error) error {
	return sentinelError{msg: msg, sentinel: sentinel}
}
