// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package binding exposes storages to an embedded host runtime.
//
// Example usage:
//
//	import (
//	    "github.com/born-ml/storagebridge/binding"
//	    "github.com/born-ml/storagebridge/storage"
//	)
//
//	rt, err := binding.NewRuntime(binding.DefaultRuntimeConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close()
//
//	mod, _ := rt.NewModule("born")
//	b, err := binding.Init(rt, mod)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := rt.RunPostInit(); err != nil {
//	    log.Fatal(err)
//	}
//
//	s, _ := storage.New(1024)
//	obj, _ := b.New(s)          // obj owns the share
//	view := binding.Unpack(obj) // borrowed, refcount unchanged
//	_ = rt.Decref(obj)          // share released
package binding

import (
	"github.com/born-ml/storagebridge/internal/binding"
	"github.com/born-ml/storagebridge/internal/host"
	"github.com/born-ml/storagebridge/internal/storage"
)

// Runtime is the host object runtime.
type Runtime = host.Runtime

// RuntimeConfig configures a Runtime.
type RuntimeConfig = host.Config

// Module is a named host namespace.
type Module = host.Module

// Object is any value tracked by a Runtime.
type Object = host.Object

// Binding is the storage type registration for one runtime.
type Binding = binding.Binding

// StorageObject is the host wrapper of a storage.
type StorageObject = binding.StorageObject

// State is the lifecycle state of a StorageObject.
type State = binding.State

// Wrapper lifecycle states.
const (
	StateUninitialized = binding.StateUninitialized
	StateWrapping      = binding.StateWrapping
	StateReleased      = binding.StateReleased
)

// Host collectors.
const (
	CollectorRefcount = host.CollectorRefcount
	CollectorGC       = host.CollectorGC
)

// Errors returned by the binding.
var (
	ErrAlreadyInitialized = binding.ErrAlreadyInitialized
	ErrNotInitialized     = binding.ErrNotInitialized
	ErrNotStorageObject   = binding.ErrNotStorageObject
)

// DefaultRuntimeConfig returns the default runtime configuration.
func DefaultRuntimeConfig() RuntimeConfig {
	return host.DefaultConfig()
}

// NewRuntime creates a host runtime.
func NewRuntime(cfg RuntimeConfig) (*Runtime, error) {
	return host.NewRuntime(cfg)
}

// Init registers the storage type with rt and exposes it in module.
// The class becomes usable after rt.RunPostInit.
func Init(rt *Runtime, module *Module) (*Binding, error) {
	return binding.Init(rt, module)
}

// Unpack lends the storage held by obj without touching its refcount.
func Unpack(obj *StorageObject) *storage.Storage {
	return binding.Unpack(obj)
}

// UnpackObject is Unpack for an arbitrary host object.
// It returns nil when obj is not a storage wrapper.
func UnpackObject(obj Object) *storage.Storage {
	return binding.UnpackObject(obj)
}
