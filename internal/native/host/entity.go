package host

// Ids encode a 32-bit index in the lower bits and a 32-bit generation in the
// upper bits. Generation increments on destroy to invalidate stale refs.
// Index 0 is never issued, so id 0 always means "none".

func makeID(index, generation uint32) uint64 {
	return uint64(generation)<<32 | uint64(index)
}

func indexOf(id uint64) uint32 { return uint32(id) }

// entityPool manages id allocation with generational indices and a free list.
type entityPool struct {
	generations []uint32
	freeList    []uint32
	nextIndex   uint32
}

func newEntityPool(capacity int) *entityPool {
	return &entityPool{
		generations: make([]uint32, 1, capacity+1),
		freeList:    make([]uint32, 0, 256),
		nextIndex:   1,
	}
}

func (p *entityPool) create() uint64 {
	if len(p.freeList) > 0 {
		idx := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		return makeID(idx, p.generations[idx])
	}
	idx := p.nextIndex
	p.nextIndex++
	if int(idx) >= len(p.generations) {
		p.generations = append(p.generations, 0)
	}
	return makeID(idx, p.generations[idx])
}

func (p *entityPool) alive(id uint64) bool {
	idx := indexOf(id)
	if idx == 0 || idx >= p.nextIndex {
		return false
	}
	return p.generations[idx] == uint32(id>>32)
}

func (p *entityPool) destroy(id uint64) {
	if !p.alive(id) {
		return
	}
	idx := indexOf(id)
	p.generations[idx]++
	p.freeList = append(p.freeList, idx)
}

type recordKind uint8

const (
	kindFree recordKind = iota
	kindEntity
	kindTerm
	kindSystem
)

// record locates an id's storage. arch is nil for terms, systems and entities
// created while structural changes are deferred.
type record struct {
	kind   recordKind
	arch   *archetype
	row    int
	name   string
	parent uint64
}
