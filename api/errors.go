// Package api
// Author: momentics <momentics@gmail.com>
//
// Error kinds reported by the socket primitives. Every failure is either a
// *SocketError (the OS rejected a syscall) or a *TimeoutError (a caller
// supplied wait expired before the descriptor became ready).

package api

import (
	"errors"
	"os"
	"syscall"
)

// ErrTimeout matches, via errors.Is, every *TimeoutError.
var ErrTimeout error = &TimeoutError{}

// SocketError is an OS-reported failure of a socket syscall.
//
// Error() renders "<ERRNO_NAME>, <Description>", for example
// "EADDRINUSE, Address already in use". Callers match on that text, so
// Name and Description are filled by the errno classifier and never
// rewritten afterwards.
type SocketError struct {
	Op          string        // syscall that failed: socket, bind, listen, accept, connect, recv, send
	Errno       syscall.Errno // raw OS error code
	Name        string        // symbolic errno name, e.g. EBADF
	Description string        // human readable text, e.g. Bad file descriptor
}

// Error implements the error interface.
func (e *SocketError) Error() string {
	return e.Name + ", " + e.Description
}

// Unwrap exposes the errno so errors.Is(err, unix.EBADF) works.
func (e *SocketError) Unwrap() error {
	return e.Errno
}

// Is reports whether target is a *SocketError carrying the same errno.
func (e *SocketError) Is(target error) bool {
	t, ok := target.(*SocketError)
	if !ok {
		return false
	}
	return t.Errno == e.Errno
}

// TimeoutError reports that a bounded wait elapsed with no readiness.
type TimeoutError struct {
	Op string
}

// Error implements the error interface. The text is always "timeout".
func (e *TimeoutError) Error() string {
	return "timeout"
}

// Timeout reports true, in the manner of net.Error.
func (e *TimeoutError) Timeout() bool { return true }

// Temporary reports true: retrying the call may succeed.
func (e *TimeoutError) Temporary() bool { return true }

// Is matches any *TimeoutError and os.ErrDeadlineExceeded.
func (e *TimeoutError) Is(target error) bool {
	if target == os.ErrDeadlineExceeded {
		return true
	}
	_, ok := target.(*TimeoutError)
	return ok
}

// IsTimeout reports whether err is a timeout expiry.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsSocketError reports whether err carries an OS error code and returns it.
func IsSocketError(err error) (*SocketError, bool) {
	var se *SocketError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
