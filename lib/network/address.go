package network

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ParseAddress combines an address and a netmask into an IPNet.
// The netmask may be dotted decimal (255.255.255.0) or a prefix length
// (24 or /24).
func ParseAddress(address, netmask string) (*net.IPNet, error) {
	ip := net.ParseIP(strings.TrimSpace(address))
	if ip == nil {
		return nil, fmt.Errorf("%w: address %q", ErrInvalidAddress, address)
	}

	bits := 128
	if v4 := ip.To4(); v4 != nil {
		ip = v4
		bits = 32
	}

	mask, err := ParseNetmask(netmask, bits)
	if err != nil {
		return nil, err
	}

	return &net.IPNet{IP: ip, Mask: mask}, nil
}

// ParseNetmask parses a netmask for an address family of the given bit width.
func ParseNetmask(netmask string, bits int) (net.IPMask, error) {
	s := strings.TrimPrefix(strings.TrimSpace(netmask), "/")

	if ones, err := strconv.Atoi(s); err == nil {
		if ones < 0 || ones > bits {
			return nil, fmt.Errorf("%w: prefix length %d out of range", ErrInvalidNetmask, ones)
		}
		return net.CIDRMask(ones, bits), nil
	}

	ip := net.ParseIP(s)
	if ip == nil || bits != 32 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNetmask, netmask)
	}
	v4 := ip.To4()
	if v4 == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidNetmask, netmask)
	}

	// Non-contiguous masks report zero size
	ones, size := net.IPMask(v4).Size()
	if size == 0 {
		return nil, fmt.Errorf("%w: %q is not contiguous", ErrInvalidNetmask, netmask)
	}
	return net.CIDRMask(ones, 32), nil
}
