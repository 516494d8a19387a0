package actionz

import "fmt"

// panicError wraps a recovered host panic into an ordinary error so it can
// travel through the same IOError path as any other failure. Call sites
// never see a raw panic value - only its sanitized message.
type panicError struct {
	action    Name
	sanitized string
}

func (p *panicError) Error() string {
	return fmt.Sprintf("%s panicked: %s", p.action, p.sanitized)
}

// sanitizePanicMessage converts a recovered panic value into a short,
// loggable string. Errors and strings pass through their own message;
// anything else is rendered with %v to avoid leaking unprintable values
// into logs and traces.
func sanitizePanicMessage(r interface{}) string {
	switch v := r.(type) {
	case error:
		return v.Error()
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// recoverFromPanic must be deferred directly (never called from inside
// another deferred function) so that recover() observes the panic. When the
// protected Call body panics, it converts the panic into an IOError and
// invokes fail instead of letting the panic escape to the caller - the
// package-level Call defers this around every action it invokes, mirroring the
// `defer recoverFromPanic(&result, &err, name, data)` pattern used
// throughout the synchronous connectors this kernel's CPS style replaces.
func recoverFromPanic[T any](o *Orchestrator, name Name, input T, fail Cont[*IOError[T]]) {
	r := recover()
	if r == nil {
		return
	}
	err := &panicError{action: name, sanitized: sanitizePanicMessage(r)}
	fail(o, newIOError(name, input, err, o.getClock()))
}
