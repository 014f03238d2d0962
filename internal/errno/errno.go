//go:build unix

// File: internal/errno/errno.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error classifier: maps OS error codes onto the stable SocketError identity
// ("<ERRNO_NAME>, <Description>") exposed by the socket primitives.

package errno

import (
	"strconv"
	"syscall"
	"unicode"
	"unicode/utf8"

	"github.com/momentics/sockfd/api"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Name returns the symbolic name of e, e.g. "EADDRINUSE".
// Codes unknown to the platform tables render as "E<number>".
func Name(e syscall.Errno) string {
	if name := unix.ErrnoName(e); name != "" {
		return name
	}
	return "E" + strconv.Itoa(int(e))
}

// Describe returns the system description of e with its first letter
// upper-cased, matching the C library strerror text.
func Describe(e syscall.Errno) string {
	msg := e.Error()
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}

// New builds the SocketError for op failing with e.
func New(op string, e syscall.Errno) *api.SocketError {
	return &api.SocketError{
		Op:          op,
		Errno:       e,
		Name:        Name(e),
		Description: Describe(e),
	}
}

// Classify converts a syscall failure into the contract error.
// nil stays nil; timeout and socket errors pass through untouched.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	if _, ok := api.IsSocketError(err); ok {
		return err
	}
	if api.IsTimeout(err) {
		return err
	}

	var e syscall.Errno
	if errors.As(err, &e) {
		return New(op, e)
	}

	// Non-errno failures do not come out of x/sys/unix; keep the cause
	// attached for debugging but present the uniform shape to callers.
	se := New(op, unix.EIO)
	se.Description = se.Description + ": " + errors.Cause(err).Error()
	return se
}

// Temporary reports whether err is a signal interruption that should be
// retried transparently.
func Temporary(err error) bool {
	return errors.Is(err, unix.EINTR)
}
