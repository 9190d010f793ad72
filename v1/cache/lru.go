package cache

// lruPolicy evicts the least recently accessed key first. Insertion counts
// as an access, so the front of the list is always the coldest key.
type lruPolicy struct {
	fifoPolicy
}

func newLRU() *lruPolicy {
	return &lruPolicy{fifoPolicy: *newFIFO()}
}

func (p *lruPolicy) onAccess(key string) {
	if el, ok := p.elems[key]; ok {
		p.order.MoveToBack(el)
	}
}
