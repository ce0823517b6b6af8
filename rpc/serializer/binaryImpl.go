package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/nvKV/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasKey    byte = 1 << 0
	hasKey2   byte = 1 << 1
	hasValue  byte = 1 << 2
	hasLimit  byte = 1 << 3
	hasOk     byte = 1 << 4
	hasCount  byte = 1 << 5
	hasPairs  byte = 1 << 6
	hasErr    byte = 1 << 7
	hasMeta2  byte = 1 << 0 // second flag byte
)

// wire layout:
//
//	byte 0:    message type
//	byte 1:    status (int8, all kv statuses fit)
//	byte 2:    flags
//	byte 3:    flags2
//	then, in flag order: key, key2, value, limit, ok, count, pairs, err,
//	meta - blobs are length-prefixed with uint32 big endian, pairs with a
//	uint32 pair count followed by length-prefixed key/value blobs.

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	result := make([]byte, b.sizeBytes(msg))

	result[0] = byte(msg.MsgType)
	result[1] = byte(int8(msg.Status))

	var flags, flags2 byte
	pos := 4

	putBlob := func(blob []byte) {
		binary.BigEndian.PutUint32(result[pos:], uint32(len(blob)))
		pos += 4
		copy(result[pos:], blob)
		pos += len(blob)
	}

	if msg.Key != nil {
		flags |= hasKey
		putBlob(msg.Key)
	}
	if msg.Key2 != nil {
		flags |= hasKey2
		putBlob(msg.Key2)
	}
	if msg.Value != nil {
		flags |= hasValue
		putBlob(msg.Value)
	}
	if msg.Limit > 0 {
		flags |= hasLimit
		binary.BigEndian.PutUint64(result[pos:], msg.Limit)
		pos += 8
	}
	if msg.Ok {
		flags |= hasOk
		result[pos] = 1
		pos++
	}
	if msg.Count > 0 {
		flags |= hasCount
		binary.BigEndian.PutUint64(result[pos:], msg.Count)
		pos += 8
	}
	if msg.Pairs != nil {
		flags |= hasPairs
		binary.BigEndian.PutUint32(result[pos:], uint32(len(msg.Pairs)))
		pos += 4
		for _, pair := range msg.Pairs {
			putBlob(pair.Key)
			putBlob(pair.Value)
		}
	}
	if msg.Err != "" {
		flags |= hasErr
		putBlob([]byte(msg.Err))
	}
	if msg.Meta != nil {
		flags2 |= hasMeta2
		putBlob(msg.Meta)
	}

	result[2] = flags
	result[3] = flags2
	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	if len(data) < 4 {
		return fmt.Errorf("data too short for message header")
	}

	msg.MsgType = common.MessageType(data[0])
	msg.Status = int(int8(data[1]))
	flags := data[2]
	flags2 := data[3]
	pos := 4

	readBlob := func(field string) ([]byte, error) {
		if pos+4 > len(data) {
			return nil, fmt.Errorf("data too short for %s length", field)
		}
		n := int(binary.BigEndian.Uint32(data[pos:]))
		pos += 4
		if pos+n > len(data) {
			return nil, fmt.Errorf("data too short for %s data", field)
		}
		blob := make([]byte, n)
		copy(blob, data[pos:pos+n])
		pos += n
		return blob, nil
	}

	msg.Key, msg.Key2, msg.Value, msg.Meta = nil, nil, nil, nil
	msg.Limit, msg.Count = 0, 0
	msg.Ok = false
	msg.Pairs = nil
	msg.Err = ""

	var err error
	if flags&hasKey != 0 {
		if msg.Key, err = readBlob("key"); err != nil {
			return err
		}
	}
	if flags&hasKey2 != 0 {
		if msg.Key2, err = readBlob("key2"); err != nil {
			return err
		}
	}
	if flags&hasValue != 0 {
		if msg.Value, err = readBlob("value"); err != nil {
			return err
		}
	}
	if flags&hasLimit != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for limit")
		}
		msg.Limit = binary.BigEndian.Uint64(data[pos:])
		pos += 8
	}
	if flags&hasOk != 0 {
		if pos+1 > len(data) {
			return fmt.Errorf("data too short for ok flag")
		}
		msg.Ok = data[pos] != 0
		pos++
	}
	if flags&hasCount != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for count")
		}
		msg.Count = binary.BigEndian.Uint64(data[pos:])
		pos += 8
	}
	if flags&hasPairs != 0 {
		if pos+4 > len(data) {
			return fmt.Errorf("data too short for pair count")
		}
		numPairs := int(binary.BigEndian.Uint32(data[pos:]))
		pos += 4
		msg.Pairs = make([]common.Pair, numPairs)
		for i := 0; i < numPairs; i++ {
			if msg.Pairs[i].Key, err = readBlob("pair key"); err != nil {
				return err
			}
			if msg.Pairs[i].Value, err = readBlob("pair value"); err != nil {
				return err
			}
		}
	}
	if flags&hasErr != 0 {
		blob, err := readBlob("error")
		if err != nil {
			return err
		}
		msg.Err = string(blob)
	}
	if flags2&hasMeta2 != 0 {
		if msg.Meta, err = readBlob("meta"); err != nil {
			return err
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	// type + status + two flag bytes
	size := 4

	if msg.Key != nil {
		size += 4 + len(msg.Key)
	}
	if msg.Key2 != nil {
		size += 4 + len(msg.Key2)
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Limit > 0 {
		size += 8
	}
	if msg.Ok {
		size += 1
	}
	if msg.Count > 0 {
		size += 8
	}
	if msg.Pairs != nil {
		size += 4
		for _, pair := range msg.Pairs {
			size += 8 + len(pair.Key) + len(pair.Value)
		}
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}
	if msg.Meta != nil {
		size += 4 + len(msg.Meta)
	}

	return size
}
