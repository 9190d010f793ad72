package cache

// counterLimit bounds LFU access counters. When any counter reaches the
// limit all counters are halved; halving preserves their relative order,
// so victim selection is unaffected and counters can never grow without
// bound under sustained load.
const counterLimit = 1 << 30

type lfuEntry struct {
	count uint64
	seq   uint64
}

// lfuPolicy evicts the key with the lowest access count. Ties are broken
// by the oldest insertion sequence so equally cold keys cannot starve the
// eviction of one another. The victim is always selected exactly, never
// sampled, so one entry is removed per required eviction.
type lfuPolicy struct {
	counts  map[string]*lfuEntry
	nextSeq uint64
}

func newLFU() *lfuPolicy {
	return &lfuPolicy{counts: make(map[string]*lfuEntry)}
}

func (p *lfuPolicy) onInsert(key string) {
	p.nextSeq++
	p.counts[key] = &lfuEntry{count: 1, seq: p.nextSeq}
}

func (p *lfuPolicy) onAccess(key string) {
	ent, ok := p.counts[key]
	if !ok {
		return
	}
	ent.count++
	if ent.count >= counterLimit {
		p.normalize()
	}
}

func (p *lfuPolicy) normalize() {
	for _, ent := range p.counts {
		ent.count /= 2
	}
}

func (p *lfuPolicy) onRemove(key string) {
	delete(p.counts, key)
}

func (p *lfuPolicy) victim() (string, bool) {
	var (
		victim string
		best   *lfuEntry
	)
	for key, ent := range p.counts {
		if best == nil || ent.count < best.count ||
			(ent.count == best.count && ent.seq < best.seq) {
			victim = key
			best = ent
		}
	}
	if best == nil {
		return "", false
	}
	return victim, true
}

func (p *lfuPolicy) reset() {
	p.counts = make(map[string]*lfuEntry)
	p.nextSeq = 0
}
