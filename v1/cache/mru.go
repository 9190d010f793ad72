package cache

// mruPolicy evicts the most recently accessed key first. It shares the
// recency bookkeeping of lruPolicy but takes its victim from the hot end.
type mruPolicy struct {
	lruPolicy
}

func newMRU() *mruPolicy {
	return &mruPolicy{lruPolicy: *newLRU()}
}

func (p *mruPolicy) victim() (string, bool) {
	back := p.order.Back()
	if back == nil {
		return "", false
	}
	return back.Value.(string), true
}
