//go:build linux

// File: reactor/reactor_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux ppoll(2) backend with nanosecond timeouts.

package reactor

import (
	"time"

	"golang.org/x/sys/unix"
)

// pollOnce performs a single ppoll call. timeout < 0 blocks indefinitely.
func pollOnce(fd int, ev FDEventType, timeout time.Duration) (bool, error) {
	fds := []unix.PollFd{{Fd: int32(fd), Events: pollEvents(ev)}}

	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(int64(timeout))
		ts = &t
	}

	n, err := unix.Ppoll(fds, ts, nil)
	if err != nil {
		return false, err
	}
	return readiness(n, fds[0].Revents)
}
