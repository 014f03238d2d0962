// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the timeout-bounded readiness wait used by the
// socket primitives: block until a single descriptor is readable or
// writable, or until a deadline passes. Linux waits with ppoll(2), other
// Unix systems with poll(2).
package reactor
