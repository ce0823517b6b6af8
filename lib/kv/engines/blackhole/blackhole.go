// Package blackhole implements the engine of the same name: it accepts
// every operation and stores nothing. Writes succeed, reads find nothing,
// counts are zero. The engine needs no pool and ignores its configuration,
// which makes it useful for wiring tests and for benchmarking everything
// around an engine.
package blackhole

import (
	"github.com/ValentinKolb/nvKV/lib/kv"
	"github.com/ValentinKolb/nvKV/lib/kv/config"
)

// EngineName is the registry name of the engine.
const EngineName = "blackhole"

func init() {
	kv.Register(EngineName, func(cfg *config.Config) (kv.Engine, error) {
		if cfg != nil {
			cfg.Release()
		}
		return engine{}, nil
	})
}

type engine struct{}

func (engine) Name() string { return EngineName }
func (engine) Close() error { return nil }

func (engine) CountAll() (uint64, kv.Status) { return 0, kv.StatusOK }
func (engine) CountAbove(_ []byte) (uint64, kv.Status) { return 0, kv.StatusOK }
func (engine) CountEqualAbove(_ []byte) (uint64, kv.Status) { return 0, kv.StatusOK }
func (engine) CountBelow(_ []byte) (uint64, kv.Status) { return 0, kv.StatusOK }
func (engine) CountEqualBelow(_ []byte) (uint64, kv.Status) { return 0, kv.StatusOK }
func (engine) CountBetween(_, _ []byte) (uint64, kv.Status) { return 0, kv.StatusOK }

func (engine) GetAll(_ kv.EachFunc) kv.Status { return kv.StatusOK }
func (engine) GetAbove(_ []byte, _ kv.EachFunc) kv.Status { return kv.StatusOK }
func (engine) GetEqualAbove(_ []byte, _ kv.EachFunc) kv.Status { return kv.StatusOK }
func (engine) GetBelow(_ []byte, _ kv.EachFunc) kv.Status { return kv.StatusOK }
func (engine) GetEqualBelow(_ []byte, _ kv.EachFunc) kv.Status { return kv.StatusOK }
func (engine) GetBetween(_, _ []byte, _ kv.EachFunc) kv.Status { return kv.StatusOK }

func (engine) UpperBound(_ []byte) (k, v []byte, ok bool) { return nil, nil, false }
func (engine) LowerBound(_ []byte) (k, v []byte, ok bool) { return nil, nil, false }
func (engine) GetBegin() (k, v []byte, ok bool) { return nil, nil, false }
func (engine) GetNext(_ []byte) (k, v []byte, ok bool) { return nil, nil, false }
func (engine) GetPrev(_ []byte) (k, v []byte, ok bool) { return nil, nil, false }

func (engine) Exists(_ []byte) kv.Status { return kv.StatusNotFound }
func (engine) Get(_ []byte, _ kv.GetFunc) kv.Status { return kv.StatusNotFound }
func (engine) Put(_, _ []byte) kv.Status { return kv.StatusOK }
func (engine) Remove(_ []byte) kv.Status { return kv.StatusOK }

func (engine) Defrag(startPercent, amountPercent uint) kv.Status {
	if startPercent > 100 || amountPercent > 100 {
		return kv.StatusInvalidArgument
	}
	return kv.StatusNotSupported
}
