//go:build unix

// File: reactor/reactor_unix.go
// Author: momentics <momentics@gmail.com>
//
// Event mask translation shared by the poll-family backends.

package reactor

import (
	"math"
	"time"

	"golang.org/x/sys/unix"
)

// pollMillis converts timeout to the millisecond argument of poll(2).
// It rounds up so the wait is never shorter than asked, and clamps to the
// C int range; Wait re-polls until its own deadline for longer budgets.
func pollMillis(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	ms := (timeout + time.Millisecond - 1) / time.Millisecond
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ms)
}

func pollEvents(ev FDEventType) int16 {
	var events int16
	if ev&EventRead != 0 {
		events |= unix.POLLIN
	}
	if ev&EventWrite != 0 {
		events |= unix.POLLOUT
	}
	return events
}

// readiness interprets the result of a single-descriptor poll.
func readiness(n int, revents int16) (bool, error) {
	if n == 0 {
		return false, nil
	}
	if revents&unix.POLLNVAL != 0 {
		return false, unix.EBADF
	}
	return true, nil
}
