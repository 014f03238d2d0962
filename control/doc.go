// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration and runtime counters for the sockfd tool.
//
// Provides concurrent-safe state handling primitives including:
//   - Typed tool configuration with defaults and validation
//   - A snapshot config store with reload listeners
//   - A metrics registry for connection and byte counters
//   - Endpoint flag parsing restricted to IPv4 literals
//
// The socket primitives themselves hold no state and never import this package.
package control
