// File: api/interfaces.go
// Author: momentics <momentics@gmail.com>
//
// Collaborator contracts. The socket primitives never close descriptors;
// releasing them is the job of a DescriptorCloser owned by the caller.

package api

// DescriptorCloser releases the OS resource behind a Handle.
type DescriptorCloser interface {
	Close(h Handle) error
}

// DescriptorCloserFunc adapts a function to DescriptorCloser.
type DescriptorCloserFunc func(h Handle) error

// Close calls f(h).
func (f DescriptorCloserFunc) Close(h Handle) error { return f(h) }
