package cache

// lifoPolicy evicts the most recently inserted key first.
type lifoPolicy struct {
	fifoPolicy
}

func newLIFO() *lifoPolicy {
	return &lifoPolicy{fifoPolicy: *newFIFO()}
}

func (p *lifoPolicy) victim() (string, bool) {
	back := p.order.Back()
	if back == nil {
		return "", false
	}
	return back.Value.(string), true
}
