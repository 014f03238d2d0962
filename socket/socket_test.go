//go:build unix

package socket_test

import (
	"bytes"
	"crypto/rand"
	"io"
	"net"
	"testing"
	"time"

	"github.com/momentics/sockfd/api"
	"github.com/momentics/sockfd/fdmgr"
	"github.com/momentics/sockfd/socket"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

const (
	loopback = "127.0.0.1"
	// overshoot is how late a bounded wait may report expiry on a loaded host.
	overshoot = 500 * time.Millisecond
	// settle bounds waits that are expected to succeed.
	settle = 5 * time.Second
)

// fd is a handle closed exactly once, by the test or by cleanup.
type fd struct {
	api.Handle
	closed bool
}

func (s *fd) close(t *testing.T) {
	t.Helper()
	if s.closed {
		return
	}
	s.closed = true
	assert.NilError(t, fdmgr.Close(s.Handle))
}

func track(t *testing.T, h api.Handle) *fd {
	t.Helper()
	s := &fd{Handle: h}
	t.Cleanup(func() {
		if !s.closed {
			fdmgr.Close(s.Handle)
		}
	})
	return s
}

func create(t *testing.T) *fd {
	t.Helper()
	h, err := socket.Create()
	assert.NilError(t, err)
	assert.Check(t, h >= 0)
	return track(t, h)
}

// listening returns a socket bound to an ephemeral loopback port.
func listening(t *testing.T, backlog int) (*fd, api.Endpoint) {
	t.Helper()
	s := create(t)
	assert.NilError(t, socket.Bind(s.Handle, loopback, 0))
	assert.NilError(t, socket.Listen(s.Handle, backlog))
	ep, err := socket.LocalEndpoint(s.Handle)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(ep.Host, loopback))
	assert.Check(t, ep.Port > 0)
	return s, ep
}

// connected returns a handle connected to a stdlib server and the server side.
func connected(t *testing.T) (*fd, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp4", loopback+":0")
	assert.NilError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			close(accepted)
			return
		}
		accepted <- c
	}()

	s := create(t)
	port := ln.Addr().(*net.TCPAddr).Port
	assert.NilError(t, socket.Connect(s.Handle, loopback, port))

	peer, ok := <-accepted
	assert.Assert(t, ok, "server side never accepted")
	t.Cleanup(func() { peer.Close() })
	return s, peer
}

// closedHandle returns a descriptor number that was valid a moment ago.
func closedHandle(t *testing.T) api.Handle {
	t.Helper()
	s := create(t)
	s.close(t)
	return s.Handle
}

// closeAfter closes s from another goroutine once d has passed.
func closeAfter(s *fd, d time.Duration) <-chan error {
	s.closed = true
	done := make(chan error, 1)
	go func() {
		time.Sleep(d)
		done <- fdmgr.Close(s.Handle)
	}()
	return done
}

func assertEBADF(t *testing.T, err error) {
	t.Helper()
	assert.Error(t, err, "EBADF, Bad file descriptor")
	assert.Check(t, is.ErrorIs(err, unix.EBADF))
}

func TestCreateDistinctHandles(t *testing.T) {
	a, b := create(t), create(t)
	assert.Check(t, a.Handle != b.Handle)
}

func TestBindAddressInUse(t *testing.T) {
	first := create(t)
	assert.NilError(t, socket.Bind(first.Handle, loopback, 0))
	ep, err := socket.LocalEndpoint(first.Handle)
	assert.NilError(t, err)

	second := create(t)
	err = socket.BindEndpoint(second.Handle, ep)
	assert.Error(t, err, "EADDRINUSE, Address already in use")

	se, ok := api.IsSocketError(err)
	assert.Assert(t, ok)
	assert.Check(t, is.Equal(se.Op, "bind"))

	// the failed socket stays usable
	assert.NilError(t, socket.Bind(second.Handle, loopback, 0))
}

func TestBindRejectsNonLiteralHost(t *testing.T) {
	s := create(t)
	for _, host := range []string{"localhost", "::1", "256.0.0.1", ""} {
		err := socket.Bind(s.Handle, host, 0)
		assert.Check(t, is.Error(err, "EINVAL, Invalid argument"), "host %q", host)
	}
	assert.Check(t, is.Error(socket.Bind(s.Handle, loopback, 70000), "EINVAL, Invalid argument"))
}

func TestBindClosedDescriptor(t *testing.T) {
	assertEBADF(t, socket.Bind(closedHandle(t), loopback, 0))
}

func TestListenReceivesConnections(t *testing.T) {
	_, ep := listening(t, 1)

	c, err := net.DialTimeout("tcp4", ep.String(), settle)
	assert.NilError(t, err)
	c.Close()
}

func TestListenClosedDescriptor(t *testing.T) {
	assertEBADF(t, socket.Listen(closedHandle(t), 1))
}

func TestAccept(t *testing.T) {
	for _, tc := range []struct {
		name    string
		timeout time.Duration
	}{
		{name: "without timeout", timeout: socket.Forever},
		{name: "with timeout", timeout: settle},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ln, ep := listening(t, 1)

			client, err := net.DialTimeout("tcp4", ep.String(), settle)
			assert.NilError(t, err)
			defer client.Close()

			h, err := socket.Accept(ln.Handle, tc.timeout)
			assert.NilError(t, err)
			conn := track(t, h)
			assert.Check(t, conn.Handle != ln.Handle)

			peer, err := socket.PeerEndpoint(conn.Handle)
			assert.NilError(t, err)
			assert.Check(t, is.Equal(peer.String(), client.LocalAddr().String()))

			// closing the accepted handle is an orderly close for the peer
			conn.close(t)
			client.SetReadDeadline(time.Now().Add(settle))
			_, err = client.Read(make([]byte, 1))
			assert.Check(t, is.ErrorIs(err, io.EOF))
		})
	}
}

func TestAcceptWithinTimeout(t *testing.T) {
	ln, ep := listening(t, 1)

	client, err := net.DialTimeout("tcp4", ep.String(), settle)
	assert.NilError(t, err)
	defer client.Close()

	// connection is already queued: a 10ms bound is plenty
	h, err := socket.Accept(ln.Handle, 10*time.Millisecond)
	assert.NilError(t, err)
	track(t, h)
}

func TestAcceptTimesOut(t *testing.T) {
	ln, _ := listening(t, 1)

	const timeout = 10 * time.Millisecond
	start := time.Now()
	h, err := socket.Accept(ln.Handle, timeout)
	elapsed := time.Since(start)

	assert.Error(t, err, "timeout")
	assert.Check(t, api.IsTimeout(err))
	assert.Check(t, is.Equal(h, api.InvalidHandle))
	assert.Check(t, elapsed >= timeout, "returned after %s", elapsed)
	assert.Check(t, elapsed < timeout+overshoot, "returned after %s", elapsed)
}

func TestAcceptZeroTimeout(t *testing.T) {
	ln, _ := listening(t, 1)

	_, err := socket.Accept(ln.Handle, 0)
	assert.Check(t, api.IsTimeout(err))
}

func TestAcceptClosedDescriptor(t *testing.T) {
	ln, _ := listening(t, 1)
	ln.close(t)

	for _, timeout := range []time.Duration{socket.Forever, time.Second} {
		start := time.Now()
		_, err := socket.Accept(ln.Handle, timeout)
		assertEBADF(t, err)
		assert.Check(t, time.Since(start) < overshoot)
	}
}

// A bounded accept whose listener is closed mid-wait fails with EBADF no
// later than its deadline instead of hanging.
func TestAcceptConcurrentClose(t *testing.T) {
	ln, _ := listening(t, 1)

	const timeout = 300 * time.Millisecond
	closed := closeAfter(ln, 20*time.Millisecond)

	start := time.Now()
	h, err := socket.Accept(ln.Handle, timeout)
	elapsed := time.Since(start)

	assert.NilError(t, <-closed)
	assertEBADF(t, err)
	assert.Check(t, is.Equal(h, api.InvalidHandle))
	assert.Check(t, elapsed < timeout+overshoot, "returned after %s", elapsed)
}

func TestAcceptedHandleOutlivesListener(t *testing.T) {
	ln, ep := listening(t, 1)

	client, err := net.DialTimeout("tcp4", ep.String(), settle)
	assert.NilError(t, err)
	defer client.Close()

	h, err := socket.Accept(ln.Handle, settle)
	assert.NilError(t, err)
	conn := track(t, h)
	ln.close(t)

	n, err := socket.Send(conn.Handle, []byte("still here"), settle)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(n, 10))

	got := make([]byte, 10)
	client.SetReadDeadline(time.Now().Add(settle))
	_, err = io.ReadFull(client, got)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(string(got), "still here"))
}

func TestConnect(t *testing.T) {
	c, peer := connected(t)

	local, err := socket.LocalEndpoint(c.Handle)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(local.String(), peer.RemoteAddr().String()))

	// the server sees our close as an orderly end of stream
	c.close(t)
	peer.SetReadDeadline(time.Now().Add(settle))
	_, err = peer.Read(make([]byte, 1))
	assert.Check(t, is.ErrorIs(err, io.EOF))
}

func TestConnectRefused(t *testing.T) {
	// reserve a port and release it so nothing listens there
	ln, ep := listening(t, 1)
	ln.close(t)

	s := create(t)
	err := socket.ConnectEndpoint(s.Handle, ep)
	assert.Error(t, err, "ECONNREFUSED, Connection refused")
	assert.Check(t, is.ErrorIs(err, unix.ECONNREFUSED))
}

func TestConnectClosedDescriptor(t *testing.T) {
	assertEBADF(t, socket.Connect(closedHandle(t), loopback, 9))
}

func TestRecv(t *testing.T) {
	for _, tc := range []struct {
		name    string
		timeout time.Duration
	}{
		{name: "without timeout", timeout: socket.Forever},
		{name: "with timeout", timeout: settle},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, peer := connected(t)
			_, err := peer.Write([]byte{1, 2, 3})
			assert.NilError(t, err)

			buf := make([]byte, 4)
			n, err := socket.Recv(c.Handle, buf, tc.timeout)
			assert.NilError(t, err)
			assert.Check(t, is.Equal(n, 3))
			assert.Check(t, is.DeepEqual(buf, []byte{1, 2, 3, 0}))
		})
	}
}

func TestRecvTimesOut(t *testing.T) {
	c, _ := connected(t)

	const timeout = 10 * time.Millisecond
	start := time.Now()
	n, err := socket.Recv(c.Handle, make([]byte, 4), timeout)
	elapsed := time.Since(start)

	assert.Error(t, err, "timeout")
	assert.Check(t, is.Equal(n, 0))
	assert.Check(t, elapsed >= timeout, "returned after %s", elapsed)
	assert.Check(t, elapsed < timeout+overshoot, "returned after %s", elapsed)
}

func TestRecvDoesNotOverflow(t *testing.T) {
	c, peer := connected(t)
	_, err := peer.Write([]byte{1, 2, 3})
	assert.NilError(t, err)

	buf := make([]byte, 2)
	n, err := socket.Recv(c.Handle, buf, socket.Forever)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(n, 2))
	assert.Check(t, is.DeepEqual(buf, []byte{1, 2}))

	n, err = socket.Recv(c.Handle, buf, settle)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(n, 1))
	assert.Check(t, is.DeepEqual(buf, []byte{3, 2}))
}

func TestRecvReassemblesStream(t *testing.T) {
	c, peer := connected(t)

	want := make([]byte, 64*1024)
	_, err := rand.Read(want)
	assert.NilError(t, err)

	go func() {
		peer.Write(want)
		peer.Close()
	}()

	var got bytes.Buffer
	buf := make([]byte, 7)
	for {
		n, err := socket.Recv(c.Handle, buf, settle)
		assert.NilError(t, err)
		assert.Assert(t, n <= len(buf))
		if n == 0 {
			break
		}
		got.Write(buf[:n])
	}
	assert.Check(t, bytes.Equal(got.Bytes(), want), "got %d bytes, want %d", got.Len(), len(want))
}

func TestRecvOrderlyClose(t *testing.T) {
	c, peer := connected(t)
	assert.NilError(t, peer.Close())

	n, err := socket.Recv(c.Handle, make([]byte, 4), settle)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(n, 0))
}

func TestRecvClosedDescriptor(t *testing.T) {
	c, _ := connected(t)
	c.close(t)

	for _, timeout := range []time.Duration{socket.Forever, time.Second} {
		_, err := socket.Recv(c.Handle, make([]byte, 4), timeout)
		assertEBADF(t, err)
	}
}

func TestRecvConcurrentClose(t *testing.T) {
	c, _ := connected(t)

	const timeout = 300 * time.Millisecond
	closed := closeAfter(c, 20*time.Millisecond)

	start := time.Now()
	n, err := socket.Recv(c.Handle, make([]byte, 4), timeout)
	elapsed := time.Since(start)

	assert.NilError(t, <-closed)
	assertEBADF(t, err)
	assert.Check(t, is.Equal(n, 0))
	assert.Check(t, elapsed < timeout+overshoot, "returned after %s", elapsed)
}

func TestSend(t *testing.T) {
	for _, tc := range []struct {
		name    string
		timeout time.Duration
	}{
		{name: "without timeout", timeout: socket.Forever},
		{name: "with timeout", timeout: settle},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c, peer := connected(t)

			n, err := socket.Send(c.Handle, []byte{1, 2, 3}, tc.timeout)
			assert.NilError(t, err)
			assert.Check(t, is.Equal(n, 3))

			got := make([]byte, 3)
			peer.SetReadDeadline(time.Now().Add(settle))
			_, err = io.ReadFull(peer, got)
			assert.NilError(t, err)
			assert.Check(t, is.DeepEqual(got, []byte{1, 2, 3}))
		})
	}
}

func TestSendEmpty(t *testing.T) {
	c, _ := connected(t)

	n, err := socket.Send(c.Handle, nil, settle)
	assert.NilError(t, err)
	assert.Check(t, is.Equal(n, 0))
}

func TestSendTimesOutWhenPeerStalls(t *testing.T) {
	c, peer := connected(t)
	assert.NilError(t, unix.SetsockoptInt(c.Fd(), unix.SOL_SOCKET, unix.SO_SNDBUF, 4096))
	assert.NilError(t, peer.(*net.TCPConn).SetReadBuffer(4096))

	chunk := make([]byte, 512)
	var total int
	for i := 0; ; i++ {
		assert.Assert(t, i < 1<<16, "send buffer never filled after %d bytes", total)

		n, err := socket.Send(c.Handle, chunk, 20*time.Millisecond)
		if api.IsTimeout(err) {
			assert.Error(t, err, "timeout")
			assert.Check(t, is.Equal(n, 0))
			break
		}
		assert.NilError(t, err)
		assert.Check(t, n > 0 && n <= len(chunk))
		total += n
	}
	assert.Check(t, total > 0)
}

func TestSendClosedDescriptor(t *testing.T) {
	c, _ := connected(t)
	c.close(t)

	for _, timeout := range []time.Duration{socket.Forever, time.Second} {
		_, err := socket.Send(c.Handle, []byte{1, 2, 3}, timeout)
		assertEBADF(t, err)
	}
}

func TestSendBrokenPipe(t *testing.T) {
	c, peer := connected(t)
	assert.NilError(t, peer.(*net.TCPConn).SetLinger(0))
	assert.NilError(t, peer.Close())

	// the reset arrives asynchronously; keep writing until it surfaces
	var err error
	for i := 0; i < 1000 && err == nil; i++ {
		_, err = socket.Send(c.Handle, []byte("x"), settle)
		if err == nil {
			time.Sleep(time.Millisecond)
		}
	}
	se, ok := api.IsSocketError(err)
	assert.Assert(t, ok, "got %v", err)
	assert.Check(t, se.Errno == unix.EPIPE || se.Errno == unix.ECONNRESET, "got %v", err)
}

func TestIndependentHandlesConcurrently(t *testing.T) {
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		i := i
		c, peer := connected(t)
		g.Go(func() error {
			msg := []byte{byte(i), 'p', 'i', 'n', 'g'}
			if _, err := socket.Send(c.Handle, msg, settle); err != nil {
				return err
			}
			if _, err := io.Copy(peer, io.LimitReader(peer, int64(len(msg)))); err != nil {
				return err
			}
			got := make([]byte, len(msg))
			for read := 0; read < len(got); {
				n, err := socket.Recv(c.Handle, got[read:], settle)
				if err != nil {
					return err
				}
				if n == 0 {
					return io.ErrUnexpectedEOF
				}
				read += n
			}
			if !bytes.Equal(got, msg) {
				return io.ErrShortBuffer
			}
			return nil
		})
	}
	assert.NilError(t, g.Wait())
}
