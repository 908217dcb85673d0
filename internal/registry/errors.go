package registry

import "errors"

var (
	// ErrNodeNotFound is returned when the referenced node is not registered
	ErrNodeNotFound = errors.New("node not found")

	// ErrNodeExists is returned when registering an id that is already taken
	ErrNodeExists = errors.New("node already registered")
)
