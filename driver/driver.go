// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package driver defines the capability contract between the
// render-graph core and a GPU-API backend.
//
// The core never talks to a native GPU API directly. Instead, it is
// handed a Backend implementation and drives it through a small set
// of calls: enumerate memory types, size resources, decide whether a
// state transition is needed between two accesses, create/destroy
// heaps and resources, and fold a scheduled run of transitions into a
// submission-ready barrier batch. Everything past that point — Vulkan,
// Metal, D3D12, or any other native API — is the backend's concern and
// out of scope here.
package driver

import (
	"errors"
	"log"
	"sync"
)

// Provider is the interface that provides methods for loading and
// unloading a Backend implementation.
// It mirrors the plugin-registration idiom used throughout this
// engine's driver layer: a backend package registers a Provider from
// an init function and the core selects one by name.
type Provider interface {
	// Open initializes the backend.
	// If it succeeds, further calls with the same receiver have no
	// effect and must return the same Backend instance.
	Open() (Backend, error)

	// Name returns the name of the backend (e.g. "vulkan-enhanced",
	// "vulkan-conventional", "d3d12").
	Name() string

	// Close deinitializes the backend.
	// Closing a backend that is not open has no effect.
	Close()
}

// Errors returned by Provider/Backend implementations.
var (
	ErrNotInstalled  = errors.New("driver: missing required library")
	ErrNoDevice      = errors.New("driver: no suitable device found")
	ErrNoHostMemory  = errors.New("driver: out of host memory")
	ErrNoDeviceMem   = errors.New("driver: out of device memory")
	ErrFatal         = errors.New("driver: fatal error")
	ErrNotSupported  = errors.New("driver: feature not supported by this backend")
)

// Providers returns the registered Providers.
// Client code imports specific backend packages, which call Register
// from an init function; backends that do not register themselves are
// not considered for selection.
func Providers() []Provider {
	mu.Lock()
	defer mu.Unlock()
	p := make([]Provider, len(providers))
	copy(p, providers)
	return p
}

// Register registers a Provider.
// Backend implementations are expected to call Register exactly once,
// from an init function. If a provider with the same name has already
// been registered, it is replaced by p.
func Register(p Provider) {
	mu.Lock()
	defer mu.Unlock()
	for i := range providers {
		if providers[i].Name() == p.Name() {
			providers[i] = p
			log.Printf("[!] driver backend %q replaced", p.Name())
			return
		}
	}
	providers = append(providers, p)
	log.Printf("driver backend %q registered", p.Name())
}

var (
	mu        sync.Mutex
	providers []Provider = make([]Provider, 0, 1)
)
