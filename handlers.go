// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package duorpc

// Direction says which peer a handler accepts messages from.
type Direction uint8

const (
	FromClient Direction = iota + 1
	FromServer
	FromEither
)

func (d Direction) String() string {
	switch d {
	case FromClient:
		return "from-client"
	case FromServer:
		return "from-server"
	case FromEither:
		return "from-either"
	default:
		return "unknown"
	}
}

// HandlerFunc handles one received message. The returned Result decides the
// acknowledgement when the sender asked for one: nil means Success.
type HandlerFunc[A Args] func(ctx *Context, args A) Result

// Handle binds fn to the invoker's selector for messages arriving from dir.
// Registration problems are logged and reported as false; they never stop
// startup.
func Handle[A Args](d *Dispatcher, inv *Invoker[A], dir Direction, fn HandlerFunc[A]) bool {
	if inv.d != d {
		d.log.Warn("handler bound to an invoker of another dispatcher, disqualified",
			zapProcedure(inv.proc)...)
		return false
	}
	return d.addHandler(&handlerEntry{
		proc: inv.proc,
		dir:  dir,
		call: func(ctx *Context, args Args) Result {
			return fn(ctx, args.(A))
		},
	})
}
