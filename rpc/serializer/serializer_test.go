package serializer

import (
	"reflect"
	"testing"

	"github.com/ValentinKolb/nvKV/lib/kv"
	"github.com/ValentinKolb/nvKV/rpc/common"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTGetBegin},

		// Put request
		{
			MsgType: common.MsgTPut,
			Key:     []byte("test-key"),
			Value:   []byte("test-value"),
		},

		// Put request with embedded NUL bytes
		{
			MsgType: common.MsgTPut,
			Key:     []byte("nul\x00key"),
			Value:   []byte("nul\x00value\x00"),
		},

		// Get response with empty (but present) value
		{
			MsgType: common.MsgTGet,
			Value:   []byte{},
			Ok:      true,
		},

		// Count response
		{
			MsgType: common.MsgTCountBetween,
			Count:   12345,
		},

		// Between request with limit
		{
			MsgType: common.MsgTGetBetween,
			Key:     []byte("k01"),
			Key2:    []byte("k99"),
			Limit:   512,
		},

		// Iteration response with batched pairs
		{
			MsgType: common.MsgTGetAll,
			Pairs: []common.Pair{
				{Key: []byte("a"), Value: []byte("1")},
				{Key: []byte("b"), Value: []byte{}},
				{Key: []byte("c\x00d"), Value: []byte("3")},
			},
		},

		// Error response
		{
			MsgType: common.MsgTError,
			Status:  int(kv.StatusUnknownError),
			Err:     "test error message",
		},

		// Not-found response
		{
			MsgType: common.MsgTExists,
			Status:  int(kv.StatusNotFound),
		},

		// Info response with meta blob
		{
			MsgType: common.MsgTInfo,
			Meta:    []byte(`{"engine":"stree"}`),
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare semantics, normalizing nil and empty blobs:
				// the wire keeps presence of values (Ok flag), not of
				// every empty slice
				if !messagesEquivalent(msg, result) {
					t.Errorf("%s: message %d mismatch:\n  sent: %+v\n  got:  %+v",
						name, i, msg, result)
				}
			}
		})
	}
}

// TestBinaryRejectsTruncated checks the binary deserializer fails cleanly
// on short input.
func TestBinaryRejectsTruncated(t *testing.T) {
	serializer := NewBinarySerializer()

	msg := common.Message{
		MsgType: common.MsgTPut,
		Key:     []byte("test-key"),
		Value:   []byte("test-value"),
	}
	data, err := serializer.Serialize(msg)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	for cut := 0; cut < len(data); cut++ {
		var result common.Message
		if err := serializer.Deserialize(data[:cut], &result); err == nil {
			t.Errorf("Deserialize accepted a frame truncated to %d bytes", cut)
		}
	}
}

// messagesEquivalent compares two messages treating nil and empty blobs as
// equal.
func messagesEquivalent(a, b common.Message) bool {
	blobEq := func(x, y []byte) bool {
		if len(x) == 0 && len(y) == 0 {
			return true
		}
		return reflect.DeepEqual(x, y)
	}
	if a.MsgType != b.MsgType || a.Status != b.Status || a.Ok != b.Ok ||
		a.Count != b.Count || a.Limit != b.Limit || a.Err != b.Err {
		return false
	}
	if !blobEq(a.Key, b.Key) || !blobEq(a.Key2, b.Key2) ||
		!blobEq(a.Value, b.Value) || !blobEq(a.Meta, b.Meta) {
		return false
	}
	if len(a.Pairs) != len(b.Pairs) {
		return false
	}
	for i := range a.Pairs {
		if !blobEq(a.Pairs[i].Key, b.Pairs[i].Key) ||
			!blobEq(a.Pairs[i].Value, b.Pairs[i].Value) {
			return false
		}
	}
	return true
}
