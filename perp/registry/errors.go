package registry

import "errors"

var (
	// ErrAlreadyInitialized names a second initialization of a Registry.
	// Initialize in this package always builds a fresh Registry and does not
	// return it; perp/router reports re-initialization with its own error.
	ErrAlreadyInitialized = errors.New("registry: already initialized")
	// ErrFull is returned by RegisterSlab once SlabCount has reached NSlabs.
	ErrFull = errors.New("registry: at capacity")
	// ErrDuplicate is returned by RegisterSlab when slabID is already bound.
	ErrDuplicate = errors.New("registry: slab already registered")
	// ErrNotFound is returned by Lookup for an unregistered slabID.
	ErrNotFound = errors.New("registry: slab not registered")
	// ErrNotGovernance gates governance-only operations (spec.md §4.1).
	ErrNotGovernance = errors.New("registry: caller is not governance")
)
