package ignitex

type clientPendingOp struct {
	client        *Client
	correlationID int64
}

func (po clientPendingOp) Cancel(err error) bool {
	return po.client.cancelHandler(po.correlationID, err)
}
