// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package socket exposes blocking TCP/IPv4 socket primitives over raw
// descriptors: Create, Bind, Listen, Accept, Connect, Recv and Send.
//
// Accept, Recv and Send take a timeout. A negative timeout (Forever)
// blocks with native OS semantics; any other value bounds the wait for
// readiness and fails with api.ErrTimeout on expiry. Connect has no
// timeout. OS failures are reported as *api.SocketError whose text is
// "<ERRNO_NAME>, <Description>".
//
// Handles belong to the caller. Nothing here closes a descriptor, keeps
// one past a call, or holds state between calls; independent handles may
// be used from different goroutines freely, while concurrent calls on the
// same handle get whatever the OS provides.
package socket
