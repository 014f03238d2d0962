// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations and constants.

package api

import (
	"net/netip"
	"strconv"
)

// Handle is an OS socket descriptor owned by the caller.
// The primitives never store a Handle past the call that received it.
type Handle int

// InvalidHandle is returned alongside an error by calls producing a Handle.
const InvalidHandle Handle = -1

// Fd returns the descriptor as the int expected by syscalls.
func (h Handle) Fd() int { return int(h) }

func (h Handle) String() string {
	return strconv.Itoa(int(h))
}

// Endpoint is an IPv4 literal address and TCP port.
type Endpoint struct {
	Host string
	Port int
}

// String renders host:port.
func (e Endpoint) String() string {
	return e.Host + ":" + strconv.Itoa(e.Port)
}

// Addr4 parses Host as a dotted-decimal IPv4 literal and checks Port.
// No name resolution is performed. ok is false for anything else.
func (e Endpoint) Addr4() (addr [4]byte, ok bool) {
	if e.Port < 0 || e.Port > 0xFFFF {
		return addr, false
	}
	ip, err := netip.ParseAddr(e.Host)
	if err != nil || !ip.Is4() {
		return addr, false
	}
	return ip.As4(), true
}
