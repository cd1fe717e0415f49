// Package remotecall marshals remote calls over the property wire format.
//
// A call is declared once as a Desc: a name, an ordered list of argument
// shapes and a direction. Outbound calls are encoded by a Caller and handed
// to a Transport; inbound calls are decoded by a Dispatcher and delivered to
// a Go handler bound at registration.
//
// # Wire Format
//
// The call buffer is the concatenation of its arguments with no header and
// no separators. Each argument uses the container element rules of the
// codec package; arrays and dicts carry a u32 count so the next argument
// can follow:
//
//	foo(int32 a, string b) with (5, "hi")
//	05 00 00 00 | 02 00 00 00 'h' 'i'
//
// Addressing and routing belong to the Transport.
//
// # Handlers
//
// Inbound calls are bound through a HandlerBinder when they are registered.
// A missing or mismatched handler is a registration error; startup should
// abort on it. HandlerSet is the reflection based binder:
//
//	set := remotecall.NewHandlerSet()
//	set.RegisterFunc("server", "Player_Move", func(ctx context.Context, x, y int32) error {
//		...
//	})
//	reg := remotecall.NewRegistry(set)
//	err := reg.RegisterInbound(desc)
//
// Handler parameters follow the codec runtime types. Hashed strings may also
// be received as string, and enums as any named integer type of the same
// width. With PassTarget the target entity is passed before the arguments.
//
// # Dispatch
//
// Dispatch decodes every argument, requires the buffer to be fully consumed
// and invokes the handler once. Containers decoded for the call are held in
// a temporaries list and released together after the handler returns or
// panics; a handler that keeps one must AddRef it. Handler errors and panics
// become ErrHandlerException, are logged and are returned to the caller of
// Dispatch, never re-raised.
//
// # States
//
// Each call moves through Encoding → Sent on the outbound side, and
// Received → Decoding → Dispatching → Released on the inbound side, ending
// in Failed on any error. Options.OnState observes transitions.
package remotecall
