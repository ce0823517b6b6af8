// Package kv defines the public operations surface of nvKV: the Status
// taxonomy, the Engine interface, the engine registry, and the callback
// types used for iteration.
//
// Engines are selected by name at Open time and configured through a
// config.Config bag. The registry is populated by engine packages in their
// init functions; importing an engine package makes it available:
//
//	import (
//		"github.com/ValentinKolb/nvKV/lib/kv"
//		"github.com/ValentinKolb/nvKV/lib/kv/config"
//		_ "github.com/ValentinKolb/nvKV/lib/kv/engines/stree"
//	)
//
//	cfg := config.New()
//	cfg.PutString("path", "/mnt/pmem/db.pool")
//	cfg.PutUint64("size", 1<<30)
//	engine, err := kv.Open("stree", cfg)
//
// Status values are wire-stable integers shared with the rpc bindings.
// Operations that fail also record a process-local message retrievable via
// ErrorMsg.
package kv
