package serializer

import (
	"fmt"
	"testing"

	"github.com/ValentinKolb/nvKV/rpc/common"
)

// benchmarkMessages returns a set of messages for targeted benchmarking
func benchmarkMessages() map[string]common.Message {
	largePairs := make([]common.Pair, 256)
	for i := range largePairs {
		largePairs[i] = common.Pair{
			Key:   []byte(fmt.Sprintf("batch-key-%04d", i)),
			Value: []byte(fmt.Sprintf("batch-value-%04d", i)),
		}
	}

	return map[string]common.Message{
		"Empty": {
			MsgType: common.MsgTGetBegin,
		},
		"SmallKeyOnly": {
			MsgType: common.MsgTGet,
			Key:     []byte("k"),
		},
		"MediumKeyOnly": {
			MsgType: common.MsgTGet,
			Key:     []byte("medium-length-key-for-testing"),
		},
		"SmallValue": {
			MsgType: common.MsgTPut,
			Key:     []byte("key"),
			Value:   []byte("v"),
		},
		"MediumValue": {
			MsgType: common.MsgTPut,
			Key:     []byte("key"),
			Value:   []byte("medium length value for testing serialization"),
		},
		"LargeValue": {
			MsgType: common.MsgTPut,
			Key:     []byte("key"),
			Value:   make([]byte, 1024), // 1KB of data
		},
		"VeryLargeValue": {
			MsgType: common.MsgTPut,
			Key:     []byte("key"),
			Value:   make([]byte, 1024*16), // 16KB of data
		},
		"BetweenRequest": {
			MsgType: common.MsgTGetBetween,
			Key:     []byte("range-start-key"),
			Key2:    []byte("range-end-key"),
			Limit:   1024,
		},
		"BatchResponse": {
			MsgType: common.MsgTGetAll,
			Pairs:   largePairs,
		},
		"ErrorMessage": {
			MsgType: common.MsgTError,
			Status:  1,
			Err:     "Lorem ipsum dolor sit amet, consectetur adipiscing elit. Sed do eiusmod tempor incididunt ut labore et dolore magna aliqua.",
		},
	}
}

// BenchmarkSerialize benchmarks serialization for all implementations with various message types
func BenchmarkSerialize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					_, err := serializer.Serialize(msg)
					if err != nil {
						b.Fatalf("Failed to serialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkDeserialize benchmarks deserialization for all implementations with various message types
func BenchmarkDeserialize(b *testing.B) {
	messages := benchmarkMessages()
	serializedData := make(map[string]map[string][]byte)

	// Pre-serialize all messages with all serializers
	for name, factory := range testSerializers {
		serializer := factory()
		serializedData[name] = make(map[string][]byte)

		for msgName, msg := range messages {
			data, err := serializer.Serialize(msg)
			if err != nil {
				b.Fatalf("Failed to serialize %s with %s: %v", msgName, name, err)
			}
			serializedData[name][msgName] = data
		}
	}

	// Benchmark deserialization
	for name, factory := range testSerializers {
		for msgName := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				serializer := factory()
				data := serializedData[name][msgName]
				b.ResetTimer()

				for i := 0; i < b.N; i++ {
					var msg common.Message
					err := serializer.Deserialize(data, &msg)
					if err != nil {
						b.Fatalf("Failed to deserialize: %v", err)
					}
				}
			})
		}
	}
}

// BenchmarkSize measures and reports the serialized size for each message type
func BenchmarkSize(b *testing.B) {
	messages := benchmarkMessages()

	for name, factory := range testSerializers {
		serializer := factory()

		for msgName, msg := range messages {
			b.Run(name+"_"+msgName, func(b *testing.B) {
				data, err := serializer.Serialize(msg)
				if err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}

				// Report the size as a custom metric
				b.ReportMetric(float64(len(data)), "bytes")

				for i := 0; i < b.N; i++ {
					_ = data
				}
			})
		}
	}
}
