package client

import (
	"fmt"

	"github.com/ValentinKolb/nvKV/lib/kv"
	"github.com/ValentinKolb/nvKV/lib/logging"
	"github.com/ValentinKolb/nvKV/rpc/common"
	"github.com/ValentinKolb/nvKV/rpc/serializer"
	"github.com/ValentinKolb/nvKV/rpc/transport"
)

var (
	Logger = logging.GetLogger("rpc")
)

// rpcClientAdapter stores all data needed for an implementation of an RPC
// client, used by the RPCStore with a composition pattern
type rpcClientAdapter struct {
	storeId    uint64
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
}

// invokeRPCRequest is a helper function used for all RPC Clients to send requests
// It takes a store ID, a request message, a transport layer and a serializer as parameters
// It returns a response message and an error if any occurs
// This method also checks if the response is an error response and if the type of the response is the expected type
func invokeRPCRequest(storeId uint64, req *common.Message, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer) (*common.Message, error) {
	// Serialize the request
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, err
	}

	// Send the request
	respBytes, err := transport.Send(storeId, reqBytes)
	if err != nil {
		return nil, err
	}

	// Deserialize the response
	resp := &common.Message{}
	err = serializer.Deserialize(respBytes, resp)
	if err != nil {
		return nil, fmt.Errorf("RPC StoreAdapter - Error: %s", err)
	}

	// Check if the response is a generic error response
	if resp.MsgType == common.MsgTError {
		return nil, kv.NewError(kv.Status(resp.Status), resp.Err)
	}

	// Check if the type of the response is the expected type
	if resp.MsgType != req.MsgType {
		return nil, fmt.Errorf("RPC StoreAdapter - Unexpected message type: %s, expected %s", resp.MsgType, req.MsgType)
	}

	// Surface the wire status as a typed error; not-found is reported
	// through return values by the callers
	if status := kv.Status(resp.Status); status != kv.StatusOK && status != kv.StatusNotFound {
		return nil, kv.NewError(status, resp.Err)
	}

	// Return the response
	return resp, nil
}
