/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package familystore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/suparena/familystore/datastore"
)

// DriverOptions are the backend independent knobs passed to an Opener.
// Drivers ignore the ones that do not apply to them.
type DriverOptions struct {
	Region         string        `koanf:"region"`
	PageSize       int32         `koanf:"page_size"`
	ConsistentRead bool          `koanf:"consistent_read"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// Opener creates a store client from a driver specific connection string.
type Opener func(ctx context.Context, connectionString string, opts DriverOptions) (datastore.Client, error)

// DriverRegistry maps driver names to openers. It is safe for concurrent use.
type DriverRegistry struct {
	mu      sync.RWMutex
	openers map[string]Opener
}

// NewDriverRegistry creates an empty registry.
func NewDriverRegistry() *DriverRegistry {
	return &DriverRegistry{
		openers: make(map[string]Opener),
	}
}

// Register adds an opener under name.
func (r *DriverRegistry) Register(name string, opener Opener) error {
	if opener == nil {
		return fmt.Errorf("driver %q: opener is nil", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.openers[name]; exists {
		return fmt.Errorf("driver %q already registered", name)
	}
	r.openers[name] = opener
	return nil
}

// Get retrieves the opener registered under name.
func (r *DriverRegistry) Get(name string) (Opener, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	opener, exists := r.openers[name]
	if !exists {
		return nil, fmt.Errorf("driver %q not found (available: %v)", name, r.listLocked())
	}
	return opener, nil
}

// Remove deletes the opener registered under name.
func (r *DriverRegistry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.openers[name]; !exists {
		return fmt.Errorf("driver %q not found", name)
	}
	delete(r.openers, name)
	return nil
}

// List returns the registered driver names in sorted order.
func (r *DriverRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked()
}

func (r *DriverRegistry) listLocked() []string {
	names := make([]string, 0, len(r.openers))
	for name := range r.openers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open creates a client with the named driver.
func (r *DriverRegistry) Open(ctx context.Context, name, connectionString string, opts DriverOptions) (datastore.Client, error) {
	opener, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	client, err := opener(ctx, connectionString, opts)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", name, err)
	}
	return client, nil
}

var drivers = NewDriverRegistry()

// Register makes a driver available by name. Drivers call it from init;
// it panics if the name is taken.
func Register(name string, opener Opener) {
	if err := drivers.Register(name, opener); err != nil {
		panic(err)
	}
}

// Open creates a client with a registered driver.
func Open(ctx context.Context, name, connectionString string, opts DriverOptions) (datastore.Client, error) {
	return drivers.Open(ctx, name, connectionString, opts)
}

// Drivers returns the names of the registered drivers.
func Drivers() []string {
	return drivers.List()
}
