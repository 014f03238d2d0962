//go:build unix

// File: socket/socket.go
// Author: momentics <momentics@gmail.com>
//
// Descriptor operations: create, bind, listen and address queries.

package socket

import (
	"net/netip"
	"time"

	"github.com/momentics/sockfd/api"
	"github.com/momentics/sockfd/internal/errno"
	"github.com/momentics/sockfd/reactor"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// Forever disables the readiness wait: the call blocks until the OS completes it.
const Forever time.Duration = reactor.Forever

// Create allocates a new blocking TCP/IPv4 stream socket.
func Create() (api.Handle, error) {
	fd, err := sysSocket()
	if err != nil {
		return api.InvalidHandle, fail("socket", api.InvalidHandle, err)
	}
	return api.Handle(fd), nil
}

// Bind binds h to the IPv4 literal host and port.
func Bind(h api.Handle, host string, port int) error {
	return BindEndpoint(h, api.Endpoint{Host: host, Port: port})
}

// BindEndpoint is Bind for an api.Endpoint.
func BindEndpoint(h api.Handle, ep api.Endpoint) error {
	sa, err := sockaddr("bind", ep)
	if err != nil {
		return err
	}
	return fail("bind", h, unix.Bind(h.Fd(), sa))
}

// Listen marks h passive. The OS clamps backlog to its own maximum.
func Listen(h api.Handle, backlog int) error {
	return fail("listen", h, unix.Listen(h.Fd(), backlog))
}

// LocalEndpoint returns the address h is bound to.
func LocalEndpoint(h api.Handle) (api.Endpoint, error) {
	sa, err := unix.Getsockname(h.Fd())
	if err != nil {
		return api.Endpoint{}, fail("getsockname", h, err)
	}
	return endpointOf("getsockname", sa)
}

// PeerEndpoint returns the address of the peer h is connected to.
func PeerEndpoint(h api.Handle) (api.Endpoint, error) {
	sa, err := unix.Getpeername(h.Fd())
	if err != nil {
		return api.Endpoint{}, fail("getpeername", h, err)
	}
	return endpointOf("getpeername", sa)
}

func sockaddr(op string, ep api.Endpoint) (*unix.SockaddrInet4, error) {
	addr, ok := ep.Addr4()
	if !ok {
		return nil, errno.New(op, unix.EINVAL)
	}
	return &unix.SockaddrInet4{Port: ep.Port, Addr: addr}, nil
}

func endpointOf(op string, sa unix.Sockaddr) (api.Endpoint, error) {
	in4, ok := sa.(*unix.SockaddrInet4)
	if !ok {
		return api.Endpoint{}, errno.New(op, unix.EAFNOSUPPORT)
	}
	return api.Endpoint{Host: netip.AddrFrom4(in4.Addr).String(), Port: in4.Port}, nil
}

// fail classifies err for op and traces it. nil passes through.
func fail(op string, h api.Handle, err error) error {
	if err = errno.Classify(op, err); err != nil {
		logrus.WithFields(logrus.Fields{
			"op": op,
			"fd": int(h),
		}).WithError(err).Debug("socket call failed")
	}
	return err
}

// ignoringEINTR re-issues fn while it is interrupted by a signal. The Go
// runtime preempts goroutines with signals, so EINTR is routine.
func ignoringEINTR(fn func() error) error {
	for {
		err := fn()
		if !errno.Temporary(err) {
			return err
		}
	}
}
