package kv

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ValentinKolb/nvKV/lib/kv/config"
)

// --------------------------------------------------------------------------
// Callback Types
// --------------------------------------------------------------------------

// EachFunc is invoked once per record during iteration, in ascending key
// order. The key and value slices are only valid for the duration of the
// call. A non-zero return value stops the iteration.
type EachFunc func(key, value []byte) int

// GetFunc receives the value of a single record. The slice is only valid
// for the duration of the call.
type GetFunc func(value []byte)

// --------------------------------------------------------------------------
// Engine Interface
// --------------------------------------------------------------------------

// Engine is the low-level operations surface of a nvKV storage engine.
// Methods return a Status instead of an error; the numeric status values
// are wire-stable (see status.go). The store package wraps an Engine with
// an error-typed convenience API.
//
// Engines are single-writer, single-reader: callers that need concurrency
// must serialize externally. Callbacks run synchronously on the calling
// goroutine and may re-enter read-only operations, but must not mutate the
// engine.
type Engine interface {
	// Name returns the engine name used at Open time.
	Name() string

	// Count operations. Between is exclusive on both ends (k1 < key < k2).
	CountAll() (uint64, Status)
	CountAbove(key []byte) (uint64, Status)
	CountEqualAbove(key []byte) (uint64, Status)
	CountBelow(key []byte) (uint64, Status)
	CountEqualBelow(key []byte) (uint64, Status)
	CountBetween(k1, k2 []byte) (uint64, Status)

	// Iteration in ascending key order. A callback returning non-zero
	// stops the scan and yields StatusStoppedByCallback.
	GetAll(cb EachFunc) Status
	GetAbove(key []byte, cb EachFunc) Status
	GetEqualAbove(key []byte, cb EachFunc) Status
	GetBelow(key []byte, cb EachFunc) Status
	GetEqualBelow(key []byte, cb EachFunc) Status
	GetBetween(k1, k2 []byte, cb EachFunc) Status

	// Cursor-style boundary queries. The returned slices are copies owned
	// by the caller; ok is false when no matching record exists.
	UpperBound(key []byte) (k, v []byte, ok bool)
	LowerBound(key []byte) (k, v []byte, ok bool)
	GetBegin() (k, v []byte, ok bool)
	GetNext(key []byte) (k, v []byte, ok bool)
	GetPrev(key []byte) (k, v []byte, ok bool)

	// Point operations.
	Exists(key []byte) Status
	Get(key []byte, cb GetFunc) Status
	Put(key, value []byte) Status
	Remove(key []byte) Status

	// Defrag compacts the given percentage range of the data. Engines
	// that do not support defragmentation return StatusNotSupported.
	Defrag(startPercent, amountPercent uint) Status

	// Close releases all volatile state and closes the backing pool.
	Close() error
}

// --------------------------------------------------------------------------
// Engine Registry
// --------------------------------------------------------------------------

// Factory creates an engine instance from a configuration bag. The factory
// takes ownership of the bag and must release it, even on failure.
type Factory func(cfg *config.Config) (Engine, error)

var registry = map[string]Factory{}

// Register makes an engine available to Open under the given name. It is
// intended to be called from engine package init functions and panics on
// duplicate registration.
func Register(name string, factory Factory) {
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("kv: engine %q registered twice", name))
	}
	registry[name] = factory
}

// Engines returns the sorted names of all registered engines.
func Engines() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open creates an engine instance by name. Open consumes the configuration
// bag: it is released by the engine regardless of the outcome. An unknown
// engine name yields StatusWrongEngineName.
func Open(engine string, cfg *config.Config) (Engine, error) {
	factory, ok := registry[engine]
	if !ok {
		if cfg != nil {
			cfg.Release()
		}
		return nil, NewError(StatusWrongEngineName,
			fmt.Sprintf("unknown engine name %q (available engines: %s)",
				engine, strings.Join(Engines(), ", ")))
	}
	return factory(cfg)
}
