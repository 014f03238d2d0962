//go:build unix

// File: socket/io.go
// Author: momentics <momentics@gmail.com>
//
// Accept, connect, recv and send with optional timeout-bounded readiness.

package socket

import (
	"syscall"
	"time"

	"github.com/momentics/sockfd/api"
	"github.com/momentics/sockfd/reactor"
	"golang.org/x/sys/unix"
)

// Accept takes the next pending connection from the listening socket h.
// With timeout >= 0 it first waits at most timeout for one to arrive and
// fails with api.ErrTimeout otherwise. The returned handle is independent
// of h: closing either leaves the other open.
func Accept(h api.Handle, timeout time.Duration) (api.Handle, error) {
	if err := gate("accept", h, reactor.EventRead, timeout); err != nil {
		return api.InvalidHandle, err
	}

	var nfd int
	err := ignoringEINTR(func() (err error) {
		nfd, err = sysAccept(h.Fd())
		return err
	})
	if err != nil {
		return api.InvalidHandle, fail("accept", h, err)
	}
	return api.Handle(nfd), nil
}

// Connect connects h to the IPv4 literal host and port, blocking until
// the OS reports the outcome. There is no timeout.
func Connect(h api.Handle, host string, port int) error {
	return ConnectEndpoint(h, api.Endpoint{Host: host, Port: port})
}

// ConnectEndpoint is Connect for an api.Endpoint.
func ConnectEndpoint(h api.Handle, ep api.Endpoint) error {
	sa, err := sockaddr("connect", ep)
	if err != nil {
		return err
	}

	err = unix.Connect(h.Fd(), sa)
	if err == unix.EINTR {
		// The handshake carries on in the kernel.
		err = completeConnect(h.Fd())
	}
	return fail("connect", h, err)
}

// completeConnect waits for an interrupted connect to finish and returns
// its outcome from SO_ERROR.
func completeConnect(fd int) error {
	for {
		if _, err := reactor.Wait(fd, reactor.EventWrite, reactor.Forever); err != nil {
			return err
		}
		nerr, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
		if err != nil {
			return err
		}
		switch e := syscall.Errno(nerr); e {
		case 0, unix.EISCONN:
			return nil
		case unix.EINPROGRESS, unix.EALREADY, unix.EINTR:
			continue
		default:
			return e
		}
	}
}

// Recv reads at most len(buf) bytes into buf; anything beyond stays queued
// in the kernel for the next call. 0 with a nil error means the peer closed
// its side in order (for a non-empty buf). With timeout >= 0 it fails with
// api.ErrTimeout if no data arrives in time.
func Recv(h api.Handle, buf []byte, timeout time.Duration) (int, error) {
	if err := gate("recv", h, reactor.EventRead, timeout); err != nil {
		return 0, err
	}

	var n int
	err := ignoringEINTR(func() (err error) {
		n, err = unix.Read(h.Fd(), buf)
		return err
	})
	if err != nil {
		return 0, fail("recv", h, err)
	}
	return n, nil
}

// Send offers all of buf to the kernel in a single call and returns how
// many bytes it accepted. Short writes are not retried. With timeout >= 0
// it fails with api.ErrTimeout if the socket does not become writable in
// time.
func Send(h api.Handle, buf []byte, timeout time.Duration) (int, error) {
	if err := gate("send", h, reactor.EventWrite, timeout); err != nil {
		return 0, err
	}

	var n int
	err := ignoringEINTR(func() (err error) {
		n, err = unix.SendmsgN(h.Fd(), buf, nil, nil, sendFlags)
		return err
	})
	if err != nil {
		return 0, fail("send", h, err)
	}
	return n, nil
}

// gate bounds the wait for readiness when a timeout is given.
func gate(op string, h api.Handle, ev reactor.FDEventType, timeout time.Duration) error {
	if timeout < 0 {
		return nil
	}
	ready, err := reactor.Wait(h.Fd(), ev, timeout)
	if err != nil {
		return fail(op, h, err)
	}
	if !ready {
		return &api.TimeoutError{Op: op}
	}
	return nil
}
