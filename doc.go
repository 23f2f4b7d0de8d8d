// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package duorpc is a typed RPC layer that runs over two transports: a
// primary session transport (WebSocket, gRPC stream or in-process) and an
// optional raw TCP high-speed side channel for bulk traffic.
//
// # Procedures
//
// A procedure is defined once at startup with a selector and a typed
// argument list:
//
//	d := duorpc.NewDispatcher(duorpc.WithRole(duorpc.RoleServer))
//	ping := duorpc.Define[duorpc.Args1[string]](d, "Ping", wire.Compact(7))
//
//	duorpc.Handle(d, ping, duorpc.FromClient, func(ctx *duorpc.Context, a duorpc.Args1[string]) duorpc.Result {
//	    return duorpc.Success
//	})
//
// The peer defines the same procedure and calls it:
//
//	f, err := ping.RequestAck(conn, duorpc.Pack1("hello"), duorpc.WithTimeout(time.Second))
//	ack, err := f.Wait(ctx)
//
// # Delivery patterns
//
// Send is fire-and-forget. Request waits for a typed reply sent with
// Respond. RequestAck waits for a status code. RespondWithAck answers a
// request and waits for the requester to acknowledge the answer. The *All
// variants serialize once and send to many connections, each with its own
// request key.
//
// Unanswered requests resolve as not responded after their timeout; an
// absent reply is a normal outcome, not an error.
//
// # Transports
//
// Transports feed complete frames to Dispatcher.Deliver. Adapters live under
// transport/ and register themselves by name:
//
//	import _ "github.com/luxfi/duorpc/transport/wsconn"
//
//	ln, err := duorpc.Listen(duorpc.TransportWebSocket, ":7300", d, duorpc.Hooks{})
//
// # High-speed channel
//
// HighSpeedServer invites a primary peer to dial a raw TCP socket and
// verifies it with a token round trip before any procedure traffic flows.
// Invokers defined with HighSpeed() then use the socket automatically.
package duorpc
