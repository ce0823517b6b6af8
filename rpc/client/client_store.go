package client

import (
	"encoding/json"

	"github.com/ValentinKolb/nvKV/lib/store"
	"github.com/ValentinKolb/nvKV/rpc/common"
	"github.com/ValentinKolb/nvKV/rpc/serializer"
	"github.com/ValentinKolb/nvKV/rpc/transport"
)

// defaultBatchLimit is the iteration batch size requested from the server
// when the client config does not set one.
const defaultBatchLimit = 1024

// NewRPCStore creates a new RPC-backed store.
// The function takes a store ID, a config, a transport and a serializer as
// parameters. It returns a store.Store and an error.
func NewRPCStore(
	storeId uint64,
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (store.Store, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC store
	s := rpcStore{
		rpcClientAdapter{
			storeId:    storeId,
			config:     config,
			transport:  transport,
			serializer: serializer,
		},
	}

	// Return the RPC store
	return &s, nil
}

type rpcStore struct {
	rpcClientAdapter
}

// batchLimit returns the configured iteration batch size.
func (i *rpcStore) batchLimit() uint64 {
	if i.config.BatchLimit > 0 {
		return i.config.BatchLimit
	}
	return defaultBatchLimit
}

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (i *rpcStore) Put(key, value []byte) (err error) {
	req := common.NewPutRequest(key, value)
	_, err = invokeRPCRequest(i.storeId, req, i.transport, i.serializer)
	return err
}

func (i *rpcStore) Get(key []byte) (value []byte, found bool, err error) {
	req := common.NewRequest(common.MsgTGet, key)
	resp, err := invokeRPCRequest(i.storeId, req, i.transport, i.serializer)
	if err != nil {
		return nil, false, err
	}
	return resp.Value, resp.Ok, nil
}

func (i *rpcStore) Exists(key []byte) (bool, error) {
	req := common.NewRequest(common.MsgTExists, key)
	resp, err := invokeRPCRequest(i.storeId, req, i.transport, i.serializer)
	if err != nil {
		return false, err
	}
	return resp.Ok, nil
}

func (i *rpcStore) Remove(key []byte) (err error) {
	req := common.NewRequest(common.MsgTRemove, key)
	_, err = invokeRPCRequest(i.storeId, req, i.transport, i.serializer)
	return err
}

// --------------------------------------------------------------------------
// Counts
// --------------------------------------------------------------------------

func (i *rpcStore) count(msgType common.MessageType, key, key2 []byte) (uint64, error) {
	req := common.NewCountRequest(msgType, key, key2)
	resp, err := invokeRPCRequest(i.storeId, req, i.transport, i.serializer)
	if err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (i *rpcStore) CountAll() (uint64, error) {
	return i.count(common.MsgTCountAll, nil, nil)
}

func (i *rpcStore) CountAbove(key []byte) (uint64, error) {
	return i.count(common.MsgTCountAbove, key, nil)
}

func (i *rpcStore) CountEqualAbove(key []byte) (uint64, error) {
	return i.count(common.MsgTCountEqualAbove, key, nil)
}

func (i *rpcStore) CountBelow(key []byte) (uint64, error) {
	return i.count(common.MsgTCountBelow, key, nil)
}

func (i *rpcStore) CountEqualBelow(key []byte) (uint64, error) {
	return i.count(common.MsgTCountEqualBelow, key, nil)
}

func (i *rpcStore) CountBetween(k1, k2 []byte) (uint64, error) {
	return i.count(common.MsgTCountBetween, k1, k2)
}

// --------------------------------------------------------------------------
// Iteration
// --------------------------------------------------------------------------

// iterate streams batches from the server to fn. The first request is
// given; follow-up batches resume after the last delivered key, using
// Above (to == nil) or Between (to set, exclusive) requests. The server
// batch protocol keeps iteration stateless on its side.
func (i *rpcStore) iterate(first *common.Message, to []byte, fn store.EachFunc) error {
	limit := i.batchLimit()
	req := first
	req.Limit = limit

	for {
		resp, err := invokeRPCRequest(i.storeId, req, i.transport, i.serializer)
		if err != nil {
			return err
		}

		for _, pair := range resp.Pairs {
			if !fn(pair.Key, pair.Value) {
				return nil
			}
		}

		// a short batch is the end of the range
		if uint64(len(resp.Pairs)) < limit {
			return nil
		}

		last := resp.Pairs[len(resp.Pairs)-1].Key
		if to == nil {
			req = common.NewRangeRequest(common.MsgTGetAbove, last, nil, limit)
		} else {
			req = common.NewRangeRequest(common.MsgTGetBetween, last, to, limit)
		}
	}
}

func (i *rpcStore) Each(fn store.EachFunc) error {
	return i.iterate(common.NewRangeRequest(common.MsgTGetAll, nil, nil, 0), nil, fn)
}

func (i *rpcStore) EachAbove(key []byte, fn store.EachFunc) error {
	return i.iterate(common.NewRangeRequest(common.MsgTGetAbove, key, nil, 0), nil, fn)
}

func (i *rpcStore) EachEqualAbove(key []byte, fn store.EachFunc) error {
	return i.iterate(common.NewRangeRequest(common.MsgTGetEqualAbove, key, nil, 0), nil, fn)
}

func (i *rpcStore) EachBelow(key []byte, fn store.EachFunc) error {
	return i.iterate(common.NewRangeRequest(common.MsgTGetBelow, key, nil, 0), key, fn)
}

func (i *rpcStore) EachEqualBelow(key []byte, fn store.EachFunc) error {
	// below the key first, then the key itself so order stays ascending
	stopped := false
	err := i.iterate(common.NewRangeRequest(common.MsgTGetBelow, key, nil, 0), key, func(k, v []byte) bool {
		if !fn(k, v) {
			stopped = true
			return false
		}
		return true
	})
	if err != nil || stopped {
		return err
	}
	value, found, err := i.Get(key)
	if err != nil || !found {
		return err
	}
	fn(key, value)
	return nil
}

func (i *rpcStore) EachBetween(k1, k2 []byte, fn store.EachFunc) error {
	return i.iterate(common.NewRangeRequest(common.MsgTGetBetween, k1, k2, 0), k2, fn)
}

// --------------------------------------------------------------------------
// Boundary Queries
// --------------------------------------------------------------------------

func (i *rpcStore) bound(msgType common.MessageType, key []byte) (store.Pair, error) {
	req := common.NewRequest(msgType, key)
	resp, err := invokeRPCRequest(i.storeId, req, i.transport, i.serializer)
	if err != nil {
		return store.Pair{}, err
	}
	return store.Pair{Key: resp.Key, Value: resp.Value, Found: resp.Ok}, nil
}

func (i *rpcStore) UpperBound(key []byte) (store.Pair, error) {
	return i.bound(common.MsgTUpperBound, key)
}

func (i *rpcStore) LowerBound(key []byte) (store.Pair, error) {
	return i.bound(common.MsgTLowerBound, key)
}

func (i *rpcStore) First() (store.Pair, error) {
	return i.bound(common.MsgTGetBegin, nil)
}

func (i *rpcStore) Next(key []byte) (store.Pair, error) {
	return i.bound(common.MsgTGetNext, key)
}

func (i *rpcStore) Prev(key []byte) (store.Pair, error) {
	return i.bound(common.MsgTGetPrev, key)
}

// --------------------------------------------------------------------------
// Info and Shutdown
// --------------------------------------------------------------------------

func (i *rpcStore) Info() (store.Info, error) {
	req := common.NewRequest(common.MsgTInfo, nil)
	resp, err := invokeRPCRequest(i.storeId, req, i.transport, i.serializer)
	if err != nil {
		return store.Info{}, err
	}
	var info store.Info
	if err := json.Unmarshal(resp.Meta, &info); err != nil {
		return store.Info{}, err
	}
	return info, nil
}

// Close shuts down the transport. The server-side store stays open.
func (i *rpcStore) Close() error {
	return i.transport.Close()
}
