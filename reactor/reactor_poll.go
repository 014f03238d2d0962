//go:build unix && !linux

// File: reactor/reactor_poll.go
// Author: momentics <momentics@gmail.com>
//
// poll(2) backend for BSD and Darwin.

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// pollOnce performs a single poll call. timeout < 0 blocks indefinitely.
func pollOnce(fd int, ev FDEventType, timeout time.Duration) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: pollEvents(ev)}}

	n, err := unix.Poll(fds, pollMillis(timeout))
	if err != nil {
		return false, err
	}
	return readiness(n, fds[0].Revents)
}
