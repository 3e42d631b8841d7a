package assert

import "sync/atomic"

var constructing int32

// NotCircular guards singleton constructors against re-entrant wiring.
func NotCircular() {
	if atomic.LoadInt32(&constructing) > 8 {
		panic("circular singleton construction detected")
	}
	atomic.AddInt32(&constructing, 1)
	defer atomic.AddInt32(&constructing, -1)
}

// NotNil panics when assembly produced a nil dependency.
func NotNil(v interface{}) {
	if v == nil {
		panic("nil dependency after assembly")
	}
}
