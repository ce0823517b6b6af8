// Package config implements the typed configuration bag consumed by engine
// Open. A bag maps string keys to values of one of five kinds: unsigned
// integer, signed integer, string, raw data block, or opaque object with a
// caller-supplied destroyer. Engines validate the bag at open time: unknown
// keys are a parsing error, kind mismatches are a type error.
package config

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Value Kinds
// --------------------------------------------------------------------------

// Kind identifies the stored type of a config value.
type Kind int

const (
	KindUint64 Kind = iota
	KindInt64
	KindString
	KindData
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindUint64:
		return "uint64"
	case KindInt64:
		return "int64"
	case KindString:
		return "string"
	case KindData:
		return "data"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

type entry struct {
	kind    Kind
	u64     uint64
	i64     int64
	str     string
	data    []byte
	obj     any
	destroy func(any)
}

// --------------------------------------------------------------------------
// Config Bag
// --------------------------------------------------------------------------

// Config is an unordered bag of typed options. The zero value is not
// usable; create bags with New. A bag is handed to kv.Open, which takes
// ownership: after Open returns the caller must not touch it again.
type Config struct {
	values map[string]entry
}

// New creates an empty configuration bag.
func New() *Config {
	return &Config{values: make(map[string]entry)}
}

// PutUint64 stores an unsigned integer option.
func (c *Config) PutUint64(key string, value uint64) *Config {
	c.drop(key)
	c.values[key] = entry{kind: KindUint64, u64: value}
	return c
}

// PutInt64 stores a signed integer option.
func (c *Config) PutInt64(key string, value int64) *Config {
	c.drop(key)
	c.values[key] = entry{kind: KindInt64, i64: value}
	return c
}

// PutString stores a string option.
func (c *Config) PutString(key string, value string) *Config {
	c.drop(key)
	c.values[key] = entry{kind: KindString, str: value}
	return c
}

// PutData stores an opaque byte block option. The bag keeps its own copy.
func (c *Config) PutData(key string, value []byte) *Config {
	c.drop(key)
	data := make([]byte, len(value))
	copy(data, value)
	c.values[key] = entry{kind: KindData, data: data}
	return c
}

// PutObject stores an arbitrary object. If destroy is non-nil it is called
// with the object when the bag is released.
func (c *Config) PutObject(key string, value any, destroy func(any)) *Config {
	c.drop(key)
	c.values[key] = entry{kind: KindObject, obj: value, destroy: destroy}
	return c
}

// drop removes an existing entry, running its destroyer if present.
func (c *Config) drop(key string) {
	if e, ok := c.values[key]; ok && e.destroy != nil {
		e.destroy(e.obj)
	}
	delete(c.values, key)
}

// --------------------------------------------------------------------------
// Typed Getters
// --------------------------------------------------------------------------

// typeError describes a kind mismatch for a present key.
type typeError struct {
	key  string
	want Kind
	got  Kind
}

func (e *typeError) Error() string {
	return fmt.Sprintf("config value %q is %s, not %s", e.key, e.got, e.want)
}

// IsTypeError reports whether err is a config kind mismatch.
func IsTypeError(err error) bool {
	_, ok := err.(*typeError)
	return ok
}

// GetUint64 reads an unsigned integer option. ok is false when the key is
// absent; a present key of another kind yields a type error.
func (c *Config) GetUint64(key string) (value uint64, ok bool, err error) {
	e, present := c.values[key]
	if !present {
		return 0, false, nil
	}
	if e.kind != KindUint64 {
		return 0, false, &typeError{key: key, want: KindUint64, got: e.kind}
	}
	return e.u64, true, nil
}

// GetInt64 reads a signed integer option.
func (c *Config) GetInt64(key string) (value int64, ok bool, err error) {
	e, present := c.values[key]
	if !present {
		return 0, false, nil
	}
	if e.kind != KindInt64 {
		return 0, false, &typeError{key: key, want: KindInt64, got: e.kind}
	}
	return e.i64, true, nil
}

// GetString reads a string option.
func (c *Config) GetString(key string) (value string, ok bool, err error) {
	e, present := c.values[key]
	if !present {
		return "", false, nil
	}
	if e.kind != KindString {
		return "", false, &typeError{key: key, want: KindString, got: e.kind}
	}
	return e.str, true, nil
}

// GetData reads a data block option. The returned slice is owned by the
// bag.
func (c *Config) GetData(key string) (value []byte, ok bool, err error) {
	e, present := c.values[key]
	if !present {
		return nil, false, nil
	}
	if e.kind != KindData {
		return nil, false, &typeError{key: key, want: KindData, got: e.kind}
	}
	return e.data, true, nil
}

// GetObject reads an object option. Ownership stays with the bag.
func (c *Config) GetObject(key string) (value any, ok bool, err error) {
	e, present := c.values[key]
	if !present {
		return nil, false, nil
	}
	if e.kind != KindObject {
		return nil, false, &typeError{key: key, want: KindObject, got: e.kind}
	}
	return e.obj, true, nil
}

// Keys returns all present option names.
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for key := range c.values {
		keys = append(keys, key)
	}
	return keys
}

// Release destroys the bag, invoking object destroyers. It is called by
// the engine that consumed the bag; calling it twice is harmless.
func (c *Config) Release() {
	for _, e := range c.values {
		if e.destroy != nil {
			e.destroy(e.obj)
		}
	}
	c.values = map[string]entry{}
}
