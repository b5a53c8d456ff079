package ignitex

type pendingOpNoop struct {
}

func (p pendingOpNoop) Cancel(err error) bool {
	// nothing was pending, so the cancellation necessarily failed and the
	// callback has already been (or will be) invoked by someone else.
	return false
}
