package cache

import "math/rand"

// rrPolicy evicts a uniformly random live key. Keys are kept in a slice
// with swap-removal so selection and removal are O(1).
type rrPolicy struct {
	keys  []string
	index map[string]int
}

func newRR() *rrPolicy {
	return &rrPolicy{index: make(map[string]int)}
}

func (p *rrPolicy) onInsert(key string) {
	p.index[key] = len(p.keys)
	p.keys = append(p.keys, key)
}

func (p *rrPolicy) onAccess(string) {}

func (p *rrPolicy) onRemove(key string) {
	i, ok := p.index[key]
	if !ok {
		return
	}
	last := len(p.keys) - 1
	p.keys[i] = p.keys[last]
	p.index[p.keys[i]] = i
	p.keys = p.keys[:last]
	delete(p.index, key)
}

func (p *rrPolicy) victim() (string, bool) {
	if len(p.keys) == 0 {
		return "", false
	}
	return p.keys[rand.Intn(len(p.keys))], true
}

func (p *rrPolicy) reset() {
	p.keys = nil
	p.index = make(map[string]int)
}
