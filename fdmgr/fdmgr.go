//go:build unix

// File: fdmgr/fdmgr.go
// Author: momentics <momentics@gmail.com>
//
// Descriptor manager: releases handles produced by the socket primitives.
// The primitives never close anything themselves; callers pair every
// socket.Create and socket.Accept with a Close from here (or their own
// api.DescriptorCloser).

package fdmgr

import (
	"github.com/momentics/sockfd/api"
	"github.com/momentics/sockfd/internal/errno"
	"golang.org/x/sys/unix"
)

// Default closes descriptors with close(2).
var Default api.DescriptorCloser = api.DescriptorCloserFunc(Close)

// Close releases h. Closing an already closed handle reports EBADF.
// close(2) is not retried on EINTR: the descriptor is gone either way.
func Close(h api.Handle) error {
	return errno.Classify("close", unix.Close(h.Fd()))
}

// Shutdown half- or fully closes the connection on h without releasing
// the descriptor. how is unix.SHUT_RD, unix.SHUT_WR or unix.SHUT_RDWR.
func Shutdown(h api.Handle, how int) error {
	return errno.Classify("shutdown", unix.Shutdown(h.Fd(), how))
}
