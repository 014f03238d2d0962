//go:build !unix

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package reactor

import (
	"errors"
	"time"
)

var errUnsupported = errors.New("reactor: this platform is not supported")

func pollOnce(fd int, ev FDEventType, timeout time.Duration) (bool, error) {
	return false, errUnsupported
}
