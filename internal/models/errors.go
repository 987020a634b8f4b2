package models

import "errors"

var (
	// general errors.
	ErrEmptyUsername = errors.New("username cannot be empty")
	ErrEmptyPassword = errors.New("password cannot be empty")
	ErrEmptyBroker   = errors.New("mqtt broker cannot be empty")

	// connection errors.
	ErrNoConnectionToReadFrom = errors.New("no connection to read from")
	ErrNoConnectionToWriteTo  = errors.New("no connection to write to")
	ErrConnectionClosed       = errors.New("connection closed")
	ErrNotLoggedIn            = errors.New("not logged in")

	// orbit cloud errors.
	ErrNoSessionToken    = errors.New("no session token received")
	ErrNoDevicesReceived = errors.New("no devices received")
	ErrDeviceNotFound    = errors.New("device not found")
	ErrZoneNotFound      = errors.New("zone not found")
	ErrRequestFailed     = errors.New("request failed")
)
