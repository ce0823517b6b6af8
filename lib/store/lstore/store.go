package lstore

import (
	"fmt"
	"sync"

	"github.com/ValentinKolb/nvKV/lib/kv"
	"github.com/ValentinKolb/nvKV/lib/store"
	"github.com/VictoriaMetrics/metrics"
)

// storeImpl wraps a kv.Engine with an error-typed API, a reader-writer
// guard, and per-operation counters. The engine core is single-writer;
// the guard is what makes this wrapper safe for concurrent callers.
type storeImpl struct {
	mu     sync.RWMutex
	engine kv.Engine
}

// EngineFactory creates the engine wrapped by the store. This abstracts
// engine construction away from the store implementation.
type EngineFactory func() (kv.Engine, error)

// NewLocalStore creates a store over a locally opened engine.
// This store implementation is not distributed and only works on a single
// node.
func NewLocalStore(factory EngineFactory) (store.Store, error) {
	engine, err := factory()
	if err != nil {
		return nil, err
	}
	return &storeImpl{engine: engine}, nil
}

// count bumps the per-operation counter for this store's engine.
func (s *storeImpl) count(op string) {
	metrics.GetOrCreateCounter(
		fmt.Sprintf(`nvkv_store_ops_total{engine=%q,op=%q}`, s.engine.Name(), op)).Inc()
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Put(key, value []byte) error {
	s.count("put")
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.engine.Put(key, value); st != kv.StatusOK {
		return kv.NewError(st, fmt.Sprintf("put key %q", key))
	}
	return nil
}

func (s *storeImpl) Get(key []byte) ([]byte, bool, error) {
	s.count("get")
	s.mu.RLock()
	defer s.mu.RUnlock()
	var value []byte
	st := s.engine.Get(key, func(v []byte) {
		value = append([]byte(nil), v...)
	})
	if st == kv.StatusNotFound {
		return nil, false, nil
	}
	if st != kv.StatusOK {
		return nil, false, kv.NewError(st, fmt.Sprintf("get key %q", key))
	}
	return value, true, nil
}

func (s *storeImpl) Exists(key []byte) (bool, error) {
	s.count("exists")
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch st := s.engine.Exists(key); st {
	case kv.StatusOK:
		return true, nil
	case kv.StatusNotFound:
		return false, nil
	default:
		return false, kv.NewError(st, fmt.Sprintf("exists key %q", key))
	}
}

func (s *storeImpl) Remove(key []byte) error {
	s.count("remove")
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.engine.Remove(key); st != kv.StatusOK {
		return kv.NewError(st, fmt.Sprintf("remove key %q", key))
	}
	return nil
}

// --------------------------------------------------------------------------
// Counts
// --------------------------------------------------------------------------

func (s *storeImpl) CountAll() (uint64, error) {
	s.count("count_all")
	s.mu.RLock()
	defer s.mu.RUnlock()
	cnt, st := s.engine.CountAll()
	return cnt, countErr(st)
}

func (s *storeImpl) CountAbove(key []byte) (uint64, error) {
	s.count("count_above")
	s.mu.RLock()
	defer s.mu.RUnlock()
	cnt, st := s.engine.CountAbove(key)
	return cnt, countErr(st)
}

func (s *storeImpl) CountEqualAbove(key []byte) (uint64, error) {
	s.count("count_equal_above")
	s.mu.RLock()
	defer s.mu.RUnlock()
	cnt, st := s.engine.CountEqualAbove(key)
	return cnt, countErr(st)
}

func (s *storeImpl) CountBelow(key []byte) (uint64, error) {
	s.count("count_below")
	s.mu.RLock()
	defer s.mu.RUnlock()
	cnt, st := s.engine.CountBelow(key)
	return cnt, countErr(st)
}

func (s *storeImpl) CountEqualBelow(key []byte) (uint64, error) {
	s.count("count_equal_below")
	s.mu.RLock()
	defer s.mu.RUnlock()
	cnt, st := s.engine.CountEqualBelow(key)
	return cnt, countErr(st)
}

func (s *storeImpl) CountBetween(k1, k2 []byte) (uint64, error) {
	s.count("count_between")
	s.mu.RLock()
	defer s.mu.RUnlock()
	cnt, st := s.engine.CountBetween(k1, k2)
	return cnt, countErr(st)
}

func countErr(st kv.Status) error {
	if st != kv.StatusOK {
		return kv.NewError(st, "count failed")
	}
	return nil
}

// --------------------------------------------------------------------------
// Iteration
// --------------------------------------------------------------------------

// each adapts a store EachFunc (bool continue) to the engine callback
// contract (non-zero stops). iterErr swallows the resulting
// stopped-by-callback status: an early stop requested by the caller is not
// an error here.
func each(fn store.EachFunc) kv.EachFunc {
	return func(key, value []byte) int {
		if fn(key, value) {
			return 0
		}
		return 1
	}
}

func iterErr(st kv.Status) error {
	if st != kv.StatusOK && st != kv.StatusStoppedByCallback {
		return kv.NewError(st, "iteration failed")
	}
	return nil
}

func (s *storeImpl) Each(fn store.EachFunc) error {
	s.count("get_all")
	s.mu.RLock()
	defer s.mu.RUnlock()
	return iterErr(s.engine.GetAll(each(fn)))
}

func (s *storeImpl) EachAbove(key []byte, fn store.EachFunc) error {
	s.count("get_above")
	s.mu.RLock()
	defer s.mu.RUnlock()
	return iterErr(s.engine.GetAbove(key, each(fn)))
}

func (s *storeImpl) EachEqualAbove(key []byte, fn store.EachFunc) error {
	s.count("get_equal_above")
	s.mu.RLock()
	defer s.mu.RUnlock()
	return iterErr(s.engine.GetEqualAbove(key, each(fn)))
}

func (s *storeImpl) EachBelow(key []byte, fn store.EachFunc) error {
	s.count("get_below")
	s.mu.RLock()
	defer s.mu.RUnlock()
	return iterErr(s.engine.GetBelow(key, each(fn)))
}

func (s *storeImpl) EachEqualBelow(key []byte, fn store.EachFunc) error {
	s.count("get_equal_below")
	s.mu.RLock()
	defer s.mu.RUnlock()
	return iterErr(s.engine.GetEqualBelow(key, each(fn)))
}

func (s *storeImpl) EachBetween(k1, k2 []byte, fn store.EachFunc) error {
	s.count("get_between")
	s.mu.RLock()
	defer s.mu.RUnlock()
	return iterErr(s.engine.GetBetween(k1, k2, each(fn)))
}

// --------------------------------------------------------------------------
// Boundary Queries
// --------------------------------------------------------------------------

func (s *storeImpl) UpperBound(key []byte) (store.Pair, error) {
	s.count("upper_bound")
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, v, ok := s.engine.UpperBound(key)
	return store.Pair{Key: k, Value: v, Found: ok}, nil
}

func (s *storeImpl) LowerBound(key []byte) (store.Pair, error) {
	s.count("lower_bound")
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, v, ok := s.engine.LowerBound(key)
	return store.Pair{Key: k, Value: v, Found: ok}, nil
}

func (s *storeImpl) First() (store.Pair, error) {
	s.count("get_begin")
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, v, ok := s.engine.GetBegin()
	return store.Pair{Key: k, Value: v, Found: ok}, nil
}

func (s *storeImpl) Next(key []byte) (store.Pair, error) {
	s.count("get_next")
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, v, ok := s.engine.GetNext(key)
	return store.Pair{Key: k, Value: v, Found: ok}, nil
}

func (s *storeImpl) Prev(key []byte) (store.Pair, error) {
	s.count("get_prev")
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, v, ok := s.engine.GetPrev(key)
	return store.Pair{Key: k, Value: v, Found: ok}, nil
}

// --------------------------------------------------------------------------
// Info and Shutdown
// --------------------------------------------------------------------------

func (s *storeImpl) Info() (store.Info, error) {
	s.count("info")
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, st := s.engine.CountAll()
	if st != kv.StatusOK {
		return store.Info{}, kv.NewError(st, "info failed")
	}
	info := store.Info{
		Engine:  s.engine.Name(),
		Records: records,
	}
	if provider, ok := s.engine.(store.StatsProvider); ok {
		info.Stats = provider.EngineStats()
	}
	return info, nil
}

func (s *storeImpl) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine.Close()
}
