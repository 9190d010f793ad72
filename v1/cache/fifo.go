package cache

import "container/list"

// fifoPolicy keeps keys in insertion order and evicts the oldest first.
// It is the base bookkeeping for the LIFO, LRU and MRU policies, which
// reuse the same list with a different victim end or access behavior.
type fifoPolicy struct {
	order *list.List
	elems map[string]*list.Element
}

func newFIFO() *fifoPolicy {
	return &fifoPolicy{
		order: list.New(),
		elems: make(map[string]*list.Element),
	}
}

func (p *fifoPolicy) onInsert(key string) {
	p.elems[key] = p.order.PushBack(key)
}

func (p *fifoPolicy) onAccess(string) {}

func (p *fifoPolicy) onRemove(key string) {
	if el, ok := p.elems[key]; ok {
		p.order.Remove(el)
		delete(p.elems, key)
	}
}

func (p *fifoPolicy) victim() (string, bool) {
	front := p.order.Front()
	if front == nil {
		return "", false
	}
	return front.Value.(string), true
}

func (p *fifoPolicy) reset() {
	p.order.Init()
	p.elems = make(map[string]*list.Element)
}
