// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Tool configuration plus a thread-safe store publishing the active snapshot.

package control

import (
	"sync"
	"time"

	"github.com/momentics/sockfd/api"
	"github.com/pkg/errors"
)

// Config drives the serve and send commands.
type Config struct {
	Endpoint      api.Endpoint  // address to listen on or connect to
	Backlog       int           // listen(2) backlog
	AcceptTimeout time.Duration // bound on each accept wait; negative blocks
	IOTimeout     time.Duration // bound on each recv/send wait; negative blocks
	BufferSize    int           // recv buffer capacity
	MaxConns      int           // connections to serve before exiting; 0 = unlimited
}

// DefaultConfig returns the configuration used when no flags are given.
func DefaultConfig() *Config {
	return &Config{
		Endpoint:      api.Endpoint{Host: "127.0.0.1", Port: 5555},
		Backlog:       128,
		AcceptTimeout: time.Second,
		IOTimeout:     5 * time.Second,
		BufferSize:    4096,
	}
}

// Validate rejects configurations the primitives cannot run with.
func (c *Config) Validate() error {
	if _, ok := c.Endpoint.Addr4(); !ok {
		return errors.Errorf("endpoint %s is not an IPv4 literal with a valid port", c.Endpoint)
	}
	if c.Backlog < 1 {
		return errors.Errorf("backlog must be positive, got %d", c.Backlog)
	}
	if c.BufferSize < 1 {
		return errors.Errorf("buffer size must be positive, got %d", c.BufferSize)
	}
	if c.MaxConns < 0 {
		return errors.Errorf("max connections cannot be negative, got %d", c.MaxConns)
	}
	return nil
}

// Snapshot flattens c for a ConfigStore.
func (c *Config) Snapshot() map[string]any {
	return map[string]any{
		"endpoint":       c.Endpoint.String(),
		"backlog":        c.Backlog,
		"accept_timeout": c.AcceptTimeout.String(),
		"io_timeout":     c.IOTimeout.String(),
		"buffer_size":    c.BufferSize,
		"max_conns":      c.MaxConns,
	}
}

// ConfigStore is a dynamic key/value map with atomic snapshot and listener support.
type ConfigStore struct {
	mu        sync.RWMutex
	config    map[string]any
	listeners []func(map[string]any)
}

// NewConfigStore initializes a new config store with empty data.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		config: make(map[string]any),
	}
}

// GetSnapshot returns a copy of all config values.
func (cs *ConfigStore) GetSnapshot() map[string]any {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.copyLocked()
}

// SetConfig merges new values and notifies listeners synchronously with
// the merged snapshot.
func (cs *ConfigStore) SetConfig(newCfg map[string]any) {
	cs.mu.Lock()
	for k, v := range newCfg {
		cs.config[k] = v
	}
	snap := cs.copyLocked()
	listeners := append(([]func(map[string]any))(nil), cs.listeners...)
	cs.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// OnReload registers a listener called after every SetConfig.
func (cs *ConfigStore) OnReload(fn func(map[string]any)) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

func (cs *ConfigStore) copyLocked() map[string]any {
	out := make(map[string]any, len(cs.config))
	for k, v := range cs.config {
		out[k] = v
	}
	return out
}
