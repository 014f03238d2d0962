//go:build unix && !linux

// File: socket/sys_cloexec.go
// Author: momentics <momentics@gmail.com>
//
// Platforms without SOCK_CLOEXEC set close-on-exec under the fork lock.

package socket

import (
	"syscall"

	"golang.org/x/sys/unix"
)

const sendFlags = 0

func sysSocket() (int, error) {
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(fd)
	return fd, nil
}

// sysAccept may block for a long time, so it cannot hold the fork lock;
// a descriptor can leak into a child forked in between.
func sysAccept(fd int) (int, error) {
	nfd, _, err := unix.Accept(fd)
	if err != nil {
		return -1, err
	}
	unix.CloseOnExec(nfd)
	return nfd, nil
}
