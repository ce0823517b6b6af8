package client

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/nvKV/lib/kv"
	"github.com/ValentinKolb/nvKV/lib/kv/config"
	_ "github.com/ValentinKolb/nvKV/lib/kv/engines/stree"
	"github.com/ValentinKolb/nvKV/lib/store"
	"github.com/ValentinKolb/nvKV/lib/store/lstore"
	"github.com/ValentinKolb/nvKV/rpc/common"
	"github.com/ValentinKolb/nvKV/rpc/serializer"
	"github.com/ValentinKolb/nvKV/rpc/server"
)

// loopbackTransport short-circuits the network: requests are handed
// straight to a server adapter over a local store. This exercises the
// full message path (client -> serializer -> adapter -> store and back)
// without sockets.
type loopbackTransport struct {
	store      store.Store
	adapter    server.IRPCServerAdapter
	serializer serializer.IRPCSerializer
	requests   int
}

func (t *loopbackTransport) Connect(common.ClientConfig) error { return nil }
func (t *loopbackTransport) Close() error                      { return t.store.Close() }

func (t *loopbackTransport) Send(storeId uint64, req []byte) ([]byte, error) {
	t.requests++
	var msg common.Message
	if err := t.serializer.Deserialize(req, &msg); err != nil {
		return nil, err
	}
	resp := t.adapter.Handle(&msg, t.store)
	return t.serializer.Serialize(*resp)
}

func newLoopbackStore(t *testing.T) (store.Store, *loopbackTransport) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rpc.pool")
	local, err := lstore.NewLocalStore(func() (kv.Engine, error) {
		cfg := config.New().
			PutString("path", path).
			PutUint64("size", 1<<30)
		return kv.Open("stree", cfg)
	})
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}

	transport := &loopbackTransport{
		store:      local,
		adapter:    server.NewStoreServerAdapter(),
		serializer: serializer.NewBinarySerializer(),
	}

	remote, err := NewRPCStore(1, common.ClientConfig{BatchLimit: 16}, transport, serializer.NewBinarySerializer())
	if err != nil {
		t.Fatalf("NewRPCStore: %v", err)
	}
	t.Cleanup(func() { _ = remote.Close() })
	return remote, transport
}

func TestRemotePutGetRemove(t *testing.T) {
	remote, _ := newLoopbackStore(t)

	if err := remote.Put([]byte("key"), []byte("value")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	value, found, err := remote.Get([]byte("key"))
	if err != nil || !found || !bytes.Equal(value, []byte("value")) {
		t.Fatalf("Get = (%q,%v,%v), want (value,true,nil)", value, found, err)
	}

	exists, err := remote.Exists([]byte("key"))
	if err != nil || !exists {
		t.Errorf("Exists = (%v,%v)", exists, err)
	}

	if err := remote.Remove([]byte("key")); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	_, found, err = remote.Get([]byte("key"))
	if err != nil || found {
		t.Errorf("key still present after Remove (err=%v)", err)
	}
}

func TestRemoteEmbeddedNulKeys(t *testing.T) {
	remote, _ := newLoopbackStore(t)

	key := []byte("nul\x00key")
	value := []byte("nul\x00value\x00")
	if err := remote.Put(key, value); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, found, err := remote.Get(key)
	if err != nil || !found || !bytes.Equal(got, value) {
		t.Errorf("NUL roundtrip failed: (%q,%v,%v)", got, found, err)
	}
}

func TestRemoteCountsAndBounds(t *testing.T) {
	remote, _ := newLoopbackStore(t)

	for i := 1; i <= 20; i++ {
		if err := remote.Put([]byte(fmt.Sprintf("k%02d", i)), []byte(fmt.Sprintf("v%02d", i))); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	total, err := remote.CountAll()
	if err != nil || total != 20 {
		t.Fatalf("CountAll = %d (%v), want 20", total, err)
	}
	above, _ := remote.CountAbove([]byte("k15"))
	if above != 5 {
		t.Errorf("CountAbove(k15) = %d, want 5", above)
	}
	between, _ := remote.CountBetween([]byte("k05"), []byte("k10"))
	if between != 4 {
		t.Errorf("CountBetween = %d, want 4", between)
	}

	pair, err := remote.UpperBound([]byte("k06"))
	if err != nil || !pair.Found || string(pair.Key) != "k07" {
		t.Errorf("UpperBound(k06) = %+v (%v), want k07", pair, err)
	}
	pair, _ = remote.First()
	if !pair.Found || string(pair.Key) != "k01" {
		t.Errorf("First = %+v, want k01", pair)
	}
	pair, _ = remote.Prev([]byte("k01"))
	if pair.Found {
		t.Errorf("Prev(k01) = %+v, want empty", pair)
	}
}

// TestRemoteIterationPaging inserts more records than one batch holds and
// verifies the client stitches batches back together in order.
func TestRemoteIterationPaging(t *testing.T) {
	remote, transport := newLoopbackStore(t)

	const numKeys = 100 // BatchLimit is 16, so this needs several pages
	for i := 0; i < numKeys; i++ {
		if err := remote.Put([]byte(fmt.Sprintf("key-%04d", i)), []byte(fmt.Sprintf("val-%04d", i))); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	requestsBefore := transport.requests
	var keys []string
	err := remote.Each(func(k, v []byte) bool {
		keys = append(keys, string(k))
		return true
	})
	if err != nil {
		t.Fatalf("Each: %v", err)
	}
	if len(keys) != numKeys {
		t.Fatalf("Each visited %d keys, want %d", len(keys), numKeys)
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] >= keys[i] {
			t.Errorf("order violation: %q before %q", keys[i-1], keys[i])
		}
	}
	if pages := transport.requests - requestsBefore; pages < numKeys/16 {
		t.Errorf("expected paged iteration, saw only %d requests", pages)
	}

	// bounded variants run through the same paging
	keys = nil
	err = remote.EachBetween([]byte("key-0009"), []byte("key-0060"), func(k, v []byte) bool {
		keys = append(keys, string(k))
		return true
	})
	if err != nil {
		t.Fatalf("EachBetween: %v", err)
	}
	if len(keys) != 50 {
		t.Errorf("EachBetween visited %d keys, want 50", len(keys))
	}

	keys = nil
	err = remote.EachEqualBelow([]byte("key-0020"), func(k, v []byte) bool {
		keys = append(keys, string(k))
		return true
	})
	if err != nil {
		t.Fatalf("EachEqualBelow: %v", err)
	}
	if len(keys) != 21 || keys[len(keys)-1] != "key-0020" {
		t.Errorf("EachEqualBelow visited %d keys (last %q), want 21 ending in key-0020",
			len(keys), keys[len(keys)-1])
	}

	// early stop propagates without error
	visited := 0
	err = remote.Each(func(k, v []byte) bool {
		visited++
		return visited < 5
	})
	if err != nil || visited != 5 {
		t.Errorf("early stop: visited=%d err=%v", visited, err)
	}
}

func TestRemoteInfo(t *testing.T) {
	remote, _ := newLoopbackStore(t)

	if err := remote.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	info, err := remote.Info()
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Engine != "stree" || info.Records != 1 {
		t.Errorf("Info = %+v, want engine=stree records=1", info)
	}
}
