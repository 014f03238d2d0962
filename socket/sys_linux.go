//go:build linux

// File: socket/sys_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux creates and accepts descriptors with close-on-exec set atomically.

package socket

import "golang.org/x/sys/unix"

// sendFlags reports a broken pipe as EPIPE instead of raising SIGPIPE.
const sendFlags = unix.MSG_NOSIGNAL

func sysSocket() (int, error) {
	return unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
}

func sysAccept(fd int) (int, error) {
	nfd, _, err := unix.Accept4(fd, unix.SOCK_CLOEXEC)
	return nfd, err
}
