package common

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/nvKV/lib/kv"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Pair is one key-value record inside a batched iteration response.
type Pair struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message. Keys and values are
// raw byte blobs so embedded NUL bytes survive every serializer.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Request fields
	Key   []byte `json:"key,omitempty"`   // Used for: point ops, range starts, bounds
	Key2  []byte `json:"key2,omitempty"`  // Used for: Between operations
	Value []byte `json:"value,omitempty"` // Used for: Put (request), Get/bounds (response)
	Limit uint64 `json:"limit,omitempty"` // Used for: iteration requests, 0 = server default batch size

	// Response fields
	Status int    `json:"status"`          // Wire status of the operation (kv.Status)
	Ok     bool   `json:"ok,omitempty"`    // Used for: Get, Exists, bounds responses
	Count  uint64 `json:"count,omitempty"` // Used for: Count responses
	Pairs  []Pair `json:"pairs,omitempty"` // Used for: iteration responses
	Err    string `json:"err,omitempty"`   // Empty if no error, otherwise the error message

	// Meta information
	Meta []byte `json:"meta,omitempty"` // Used for: Info responses (JSON blob)
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewRequest creates a request of the given type with a single key.
func NewRequest(msgType MessageType, key []byte) *Message {
	return &Message{MsgType: msgType, Key: key}
}

// NewPutRequest creates a new Put request.
func NewPutRequest(key, value []byte) *Message {
	return &Message{MsgType: MsgTPut, Key: key, Value: value}
}

// NewRangeRequest creates an iteration request with an optional batch
// limit.
func NewRangeRequest(msgType MessageType, key, key2 []byte, limit uint64) *Message {
	return &Message{MsgType: msgType, Key: key, Key2: key2, Limit: limit}
}

// NewCountRequest creates a count request.
func NewCountRequest(msgType MessageType, key, key2 []byte) *Message {
	return &Message{MsgType: msgType, Key: key, Key2: key2}
}

// NewStatusResponse creates a response carrying only a status.
func NewStatusResponse(msgType MessageType, err error) *Message {
	msg := &Message{MsgType: msgType, Status: int(kv.StatusOf(err))}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewValueResponse creates a response with a value and a found flag.
func NewValueResponse(msgType MessageType, value []byte, ok bool, err error) *Message {
	msg := NewStatusResponse(msgType, err)
	msg.Value = value
	msg.Ok = ok
	return msg
}

// NewPairResponse creates a bounds response carrying one record.
func NewPairResponse(msgType MessageType, key, value []byte, ok bool, err error) *Message {
	msg := NewStatusResponse(msgType, err)
	msg.Key = key
	msg.Value = value
	msg.Ok = ok
	return msg
}

// NewCountResponse creates a count response.
func NewCountResponse(msgType MessageType, count uint64, err error) *Message {
	msg := NewStatusResponse(msgType, err)
	msg.Count = count
	return msg
}

// NewPairsResponse creates a batched iteration response.
func NewPairsResponse(msgType MessageType, pairs []Pair, err error) *Message {
	msg := NewStatusResponse(msgType, err)
	msg.Pairs = pairs
	return msg
}

// NewInfoResponse creates an Info response with a JSON-encoded meta blob.
func NewInfoResponse(meta []byte, err error) *Message {
	msg := NewStatusResponse(MsgTInfo, err)
	msg.Meta = meta
	return msg
}

// NewErrorResponse creates a generic error response.
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Status:  int(kv.StatusUnknownError),
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

var msgTypeNames = map[MessageType]string{
	MsgTError:           "error",
	MsgTPut:             "put",
	MsgTGet:             "get",
	MsgTExists:          "exists",
	MsgTRemove:          "remove",
	MsgTCountAll:        "count_all",
	MsgTCountAbove:      "count_above",
	MsgTCountEqualAbove: "count_equal_above",
	MsgTCountBelow:      "count_below",
	MsgTCountEqualBelow: "count_equal_below",
	MsgTCountBetween:    "count_between",
	MsgTGetAll:          "get_all",
	MsgTGetAbove:        "get_above",
	MsgTGetEqualAbove:   "get_equal_above",
	MsgTGetBelow:        "get_below",
	MsgTGetEqualBelow:   "get_equal_below",
	MsgTGetBetween:      "get_between",
	MsgTUpperBound:      "upper_bound",
	MsgTLowerBound:      "lower_bound",
	MsgTGetBegin:        "get_begin",
	MsgTGetNext:         "get_next",
	MsgTGetPrev:         "get_prev",
	MsgTInfo:            "info",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := msgTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for msgType, name := range msgTypeNames {
		if name == s {
			*t = msgType
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTError               // Indicates an error occurred

	// Point operations

	MsgTPut    // Put a key-value pair
	MsgTGet    // Get a value by key
	MsgTExists // Check if a key exists
	MsgTRemove // Remove a key-value pair

	// Count operations

	MsgTCountAll
	MsgTCountAbove
	MsgTCountEqualAbove
	MsgTCountBelow
	MsgTCountEqualBelow
	MsgTCountBetween

	// Iteration operations (batched responses)

	MsgTGetAll
	MsgTGetAbove
	MsgTGetEqualAbove
	MsgTGetBelow
	MsgTGetEqualBelow
	MsgTGetBetween

	// Boundary queries

	MsgTUpperBound
	MsgTLowerBound
	MsgTGetBegin
	MsgTGetNext
	MsgTGetPrev

	// Metadata

	MsgTInfo
)
