package ignitex

// PendingOp represents an operation that has been written to the network
// and is waiting for its response.
type PendingOp interface {
	// Cancel deregisters the pending entry without closing the shared
	// connection. It reports whether the cancellation took effect before a
	// response arrived; when it did, the callback receives err.
	Cancel(err error) bool
}

// DispatchCallback is invoked with the response matching a request's
// correlation id, or with an error when the request can no longer be
// answered. Exactly one of resp and err is non-nil.
type DispatchCallback func(resp *Response, err error)

type Dispatcher interface {
	Dispatch(req *Request, cb DispatchCallback) (PendingOp, error)
}
