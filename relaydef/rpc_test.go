package relaydef

import (
	"encoding/json"
	"testing"

	"github.com/relaygo/relay-test-harness/framework/helpers"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRPCRequestEncoding(t *testing.T) {
	id := int64(1)
	m.In(t).Assert(helpers.AsJSON(RPCRequest{
		JSONRPC: JSONRPCVersion, Method: MethodToolsList, ID: &id, Params: json.RawMessage(`{}`),
	}), m.JSONStrEqual(`{"jsonrpc":"2.0","method":"tools/list","id":1,"params":{}}`))

	notification := RPCRequest{JSONRPC: JSONRPCVersion, Method: MethodInitialized}
	assert.True(t, notification.IsNotification())
	m.In(t).Assert(helpers.AsJSON(notification),
		m.JSONStrEqual(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
}

func TestDecodeRPCResult(t *testing.T) {
	reply, err := DecodeRPCReply([]byte(`{"jsonrpc":"2.0","id":2,"result":{"tools":[]}}`))
	require.NoError(t, err)
	result, ok := reply.(RPCResult)
	require.True(t, ok)
	assert.Equal(t, "2", string(result.ReplyID()))
	m.In(t).Assert([]byte(result.Result), m.JSONStrEqual(`{"tools":[]}`))
}

func TestDecodeRPCError(t *testing.T) {
	reply, err := DecodeRPCReply([]byte(
		`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found: x","data":{"b":1,"a":2}}}`))
	require.NoError(t, err)
	rpcErr, ok := reply.(RPCError)
	require.True(t, ok)
	assert.Equal(t, -32601, rpcErr.Code)
	assert.Equal(t, "method not found: x", rpcErr.Message)

	appErr := rpcErr.AsApplicationError()
	assert.Equal(t, `{"a":2,"b":1}`, helpers.CanonicalizedRawJSON(appErr.Data))
	assert.Equal(t, "code -32601: method not found: x", appErr.Error())
}

func TestDecodeRPCErrorWithNullData(t *testing.T) {
	reply, err := DecodeRPCReply([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":1,"message":"x","data":null}}`))
	require.NoError(t, err)
	assert.Nil(t, reply.(RPCError).AsApplicationError().Data)
}

func TestDecodeRPCReplyNullCountsAsAbsent(t *testing.T) {
	reply, err := DecodeRPCReply([]byte(`{"jsonrpc":"2.0","id":1,"result":{},"error":null}`))
	require.NoError(t, err)
	assert.IsType(t, RPCResult{}, reply)
}

func TestDecodeRPCReplyErrors(t *testing.T) {
	for _, p := range []struct {
		name  string
		input string
		kind  ErrorKind
	}{
		{"not JSON", `nope`, KindDecode},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"result":{}}`, KindProtocol},
		{"missing version", `{"id":1,"result":{}}`, KindProtocol},
		{"both", `{"jsonrpc":"2.0","id":1,"result":{},"error":{"code":1,"message":"x"}}`, KindProtocol},
		{"neither", `{"jsonrpc":"2.0","id":1}`, KindProtocol},
		{"null result", `{"jsonrpc":"2.0","id":1,"result":null}`, KindProtocol},
		{"malformed error", `{"jsonrpc":"2.0","id":1,"error":"bad"}`, KindDecode},
	} {
		t.Run(p.name, func(t *testing.T) {
			reply, err := DecodeRPCReply([]byte(p.input))
			assert.Nil(t, reply)
			assert.True(t, IsKind(err, p.kind), "error was: %v", err)
		})
	}
}
