package driver

import (
	"fmt"
	"sort"
	"sync"

	convergeerrors "github.com/esinfra/converge/pkg/errors"
)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Driver)
)

// Register adds a driver implementation for the provided resource kind.
func Register(kind string, d Driver) error {
	if d == nil {
		return convergeerrors.NewDriverError(kind, fmt.Errorf("driver is nil"))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[kind]; exists {
		return convergeerrors.NewDriverError(kind, fmt.Errorf("driver already registered"))
	}

	registry[kind] = d
	return nil
}

// MustRegister registers a driver and panics on conflict. Used from driver
// package init functions, where a duplicate registration is a programming
// error.
func MustRegister(kind string, d Driver) {
	if err := Register(kind, d); err != nil {
		panic(err)
	}
}

// Get retrieves a driver by resource kind.
func Get(kind string) (Driver, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	d, ok := registry[kind]
	if !ok {
		return nil, convergeerrors.NewDriverError(kind, fmt.Errorf("no driver registered"))
	}

	return d, nil
}

// Kinds returns the registered resource kinds in sorted order.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	kinds := make([]string, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}

// ResetRegistry clears driver registrations (for tests).
func ResetRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Driver)
}
