package types

import (
	"errors"
	"fmt"
)

// Store and binding errors.
var (
	ErrNotFound    = errors.New("keys not found")
	ErrNoReadKeys  = errors.New("no keys to read from")
	ErrNoWriteKeys = errors.New("no keys to write to")
	ErrUnsupported = errors.New("storage not supported")
)

// Host lifecycle errors.
var (
	ErrHostDetached    = errors.New("host is detached")
	ErrAlreadyAttached = errors.New("host is already attached")
)

// BackendError records the failure of one backend during a fan-out
// operation. Joined BackendErrors are returned by a store set when one or
// more backends fail while the others complete.
type BackendError struct {
	Backend string
	Op      string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// FailedBackends returns the names of all backends with a BackendError in
// err, in the order they were joined.
func FailedBackends(err error) []string {
	var names []string
	var walk func(error)
	walk = func(err error) {
		if err == nil {
			return
		}
		if be, ok := err.(*BackendError); ok {
			names = append(names, be.Backend)
			return
		}
		switch x := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range x.Unwrap() {
				walk(e)
			}
		case interface{ Unwrap() error }:
			walk(x.Unwrap())
		}
	}
	walk(err)
	return names
}
