package kv

import "sync"

// --------------------------------------------------------------------------
// Process-Local Last Error
// --------------------------------------------------------------------------

var (
	lastErrMu sync.Mutex
	lastErr   string
)

func setLastError(msg string) {
	lastErrMu.Lock()
	lastErr = msg
	lastErrMu.Unlock()
}

// ErrorMsg returns a human-readable description of the last error produced
// by any engine in this process. Language bindings surface this next to the
// numeric status of a failed call.
func ErrorMsg() string {
	lastErrMu.Lock()
	defer lastErrMu.Unlock()
	return lastErr
}
