// Package relaydef contains the wire types spoken by the relay on both of its transports,
// along with the error taxonomy that the drivers use to tell transport failures apart from
// errors the relay reported on purpose.
//
// Replies are sealed sum types: BridgeReply for the Unix socket protocol and RPCReply for
// JSON-RPC. Code that consumes them should use a type switch and treat the default branch as
// a failure.
package relaydef
