package network

import "errors"

var (
	// ErrNoInterface is returned when Configure is called without an interface name
	ErrNoInterface = errors.New("network interface not set")

	// ErrInvalidAddress is returned when an address or gateway cannot be parsed
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidNetmask is returned when a netmask cannot be parsed
	ErrInvalidNetmask = errors.New("invalid netmask")
)
