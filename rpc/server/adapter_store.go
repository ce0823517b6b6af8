package server

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/nvKV/lib/store"
	"github.com/ValentinKolb/nvKV/rpc/common"
)

// defaultBatchLimit caps iteration responses when the client does not
// request a limit, bounding the memory of a single response.
const defaultBatchLimit = 4096

// NewStoreServerAdapter creates the adapter translating RPC requests to
// store.Store calls.
func NewStoreServerAdapter() IRPCServerAdapter {
	return &storeServerAdapterImpl{}
}

type storeServerAdapterImpl struct{}

func (adapter *storeServerAdapterImpl) Handle(req *common.Message, s store.Store) *common.Message {
	// Check for nil store
	if s == nil {
		return common.NewErrorResponse("handler: store is nil")
	}

	switch req.MsgType {

	// Point operations

	case common.MsgTPut:
		err := s.Put(req.Key, req.Value)
		return common.NewStatusResponse(common.MsgTPut, err)
	case common.MsgTGet:
		value, found, err := s.Get(req.Key)
		return common.NewValueResponse(common.MsgTGet, value, found, err)
	case common.MsgTExists:
		found, err := s.Exists(req.Key)
		return common.NewValueResponse(common.MsgTExists, nil, found, err)
	case common.MsgTRemove:
		err := s.Remove(req.Key)
		return common.NewStatusResponse(common.MsgTRemove, err)

	// Count operations

	case common.MsgTCountAll:
		cnt, err := s.CountAll()
		return common.NewCountResponse(req.MsgType, cnt, err)
	case common.MsgTCountAbove:
		cnt, err := s.CountAbove(req.Key)
		return common.NewCountResponse(req.MsgType, cnt, err)
	case common.MsgTCountEqualAbove:
		cnt, err := s.CountEqualAbove(req.Key)
		return common.NewCountResponse(req.MsgType, cnt, err)
	case common.MsgTCountBelow:
		cnt, err := s.CountBelow(req.Key)
		return common.NewCountResponse(req.MsgType, cnt, err)
	case common.MsgTCountEqualBelow:
		cnt, err := s.CountEqualBelow(req.Key)
		return common.NewCountResponse(req.MsgType, cnt, err)
	case common.MsgTCountBetween:
		cnt, err := s.CountBetween(req.Key, req.Key2)
		return common.NewCountResponse(req.MsgType, cnt, err)

	// Iteration operations, answered as bounded batches

	case common.MsgTGetAll:
		return adapter.batch(req, func(fn store.EachFunc) error { return s.Each(fn) })
	case common.MsgTGetAbove:
		return adapter.batch(req, func(fn store.EachFunc) error { return s.EachAbove(req.Key, fn) })
	case common.MsgTGetEqualAbove:
		return adapter.batch(req, func(fn store.EachFunc) error { return s.EachEqualAbove(req.Key, fn) })
	case common.MsgTGetBelow:
		return adapter.batch(req, func(fn store.EachFunc) error { return s.EachBelow(req.Key, fn) })
	case common.MsgTGetEqualBelow:
		return adapter.batch(req, func(fn store.EachFunc) error { return s.EachEqualBelow(req.Key, fn) })
	case common.MsgTGetBetween:
		return adapter.batch(req, func(fn store.EachFunc) error { return s.EachBetween(req.Key, req.Key2, fn) })

	// Boundary queries

	case common.MsgTUpperBound:
		pair, err := s.UpperBound(req.Key)
		return common.NewPairResponse(req.MsgType, pair.Key, pair.Value, pair.Found, err)
	case common.MsgTLowerBound:
		pair, err := s.LowerBound(req.Key)
		return common.NewPairResponse(req.MsgType, pair.Key, pair.Value, pair.Found, err)
	case common.MsgTGetBegin:
		pair, err := s.First()
		return common.NewPairResponse(req.MsgType, pair.Key, pair.Value, pair.Found, err)
	case common.MsgTGetNext:
		pair, err := s.Next(req.Key)
		return common.NewPairResponse(req.MsgType, pair.Key, pair.Value, pair.Found, err)
	case common.MsgTGetPrev:
		pair, err := s.Prev(req.Key)
		return common.NewPairResponse(req.MsgType, pair.Key, pair.Value, pair.Found, err)

	// Metadata

	case common.MsgTInfo:
		info, err := s.Info()
		if err != nil {
			return common.NewInfoResponse(nil, err)
		}
		meta, err := json.Marshal(info)
		return common.NewInfoResponse(meta, err)

	default:
		return common.NewErrorResponse(
			fmt.Sprintf("RPC StoreAdapter - Unsupported message type: %s", req.MsgType),
		)
	}
}

// batch runs an iteration and collects up to the requested limit of
// records into the response. Clients detect a full batch and continue
// with a follow-up request starting after the last key.
func (adapter *storeServerAdapterImpl) batch(req *common.Message, iterate func(store.EachFunc) error) *common.Message {
	limit := req.Limit
	if limit == 0 {
		limit = defaultBatchLimit
	}

	pairs := make([]common.Pair, 0, min(limit, 128))
	err := iterate(func(key, value []byte) bool {
		pairs = append(pairs, common.Pair{
			Key:   append([]byte(nil), key...),
			Value: append([]byte(nil), value...),
		})
		return uint64(len(pairs)) < limit
	})
	if err != nil {
		return common.NewPairsResponse(req.MsgType, nil, err)
	}
	return common.NewPairsResponse(req.MsgType, pairs, nil)
}
