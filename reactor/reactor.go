// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral readiness wait with a deadline fixed at entry.

package reactor

import (
	"errors"
	"syscall"
	"time"
)

// FDEventType selects the I/O direction to wait for.
type FDEventType uint8

const (
	// EventRead waits until a read or accept will not block.
	EventRead FDEventType = 1 << iota
	// EventWrite waits until a write will not block.
	EventWrite
)

func (t FDEventType) String() string {
	switch t {
	case EventRead:
		return "read"
	case EventWrite:
		return "write"
	case EventRead | EventWrite:
		return "read|write"
	default:
		return "none"
	}
}

// Forever passed as timeout blocks until the descriptor is ready.
const Forever time.Duration = -1

// Wait blocks until fd is ready for ev or timeout elapses.
// It reports true on readiness and false on expiry; it never performs I/O.
//
// A negative timeout waits without a deadline. Otherwise the deadline is
// computed once here: a wait interrupted by a signal resumes with only the
// remaining budget, and a budget already spent still gets one non-blocking
// readiness check before expiry is reported.
//
// Error conditions on fd (POLLERR, POLLHUP) count as ready so that the
// following syscall reports them. A descriptor that is not open yields
// EBADF.
func Wait(fd int, ev FDEventType, timeout time.Duration) (bool, error) {
	// poll(2) silently skips negative descriptors.
	if fd < 0 {
		return false, syscall.EBADF
	}

	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		remaining := Forever
		if !deadline.IsZero() {
			if remaining = time.Until(deadline); remaining < 0 {
				remaining = 0
			}
		}

		ready, err := pollOnce(fd, ev, remaining)
		if errors.Is(err, syscall.EINTR) {
			continue
		}
		// The kernel may give up before the deadline (clamped or coarse
		// timeouts); only the deadline decides expiry.
		if err == nil && !ready && (deadline.IsZero() || time.Until(deadline) > 0) {
			continue
		}
		return ready, err
	}
}
