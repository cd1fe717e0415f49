package remotecall

import "strconv"

// State is the progress of a single call.
type State uint8

const (
	StateEncoding State = iota
	StateSent
	StateReceived
	StateDecoding
	StateDispatching
	StateReleased
	StateFailed
)

var stateNames = [...]string{
	StateEncoding:    "encoding",
	StateSent:        "sent",
	StateReceived:    "received",
	StateDecoding:    "decoding",
	StateDispatching: "dispatching",
	StateReleased:    "released",
	StateFailed:      "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// IsTerminal reports whether no further transition follows s.
func (s State) IsTerminal() bool {
	return s == StateSent || s == StateReleased || s == StateFailed
}

// StateHook observes call state transitions. It runs synchronously on the
// calling goroutine.
type StateHook func(call string, state State)

// Options configures a Caller or Dispatcher.
type Options struct {
	OnState StateHook
}

func (o Options) enter(call string, s State) {
	if o.OnState != nil {
		o.OnState(call, s)
	}
}
