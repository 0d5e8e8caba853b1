package host

import (
	"unsafe"

	"github.com/broken-bytes/Playground/internal/native"
)

// maxTerms bounds the number of distinct components and tags.
const maxTerms = 256

// bitmask is a set of up to 256 term bits identifying an archetype.
type bitmask [4]uint64

func (m *bitmask) set(bit int) {
	m[bit>>6] |= uint64(1) << uint(bit&63)
}

func (m *bitmask) unset(bit int) {
	m[bit>>6] &^= uint64(1) << uint(bit&63)
}

func (m bitmask) has(bit int) bool {
	return m[bit>>6]&(uint64(1)<<uint(bit&63)) != 0
}

// term is a registered component or tag. Tags and zero-size components carry
// no column.
type term struct {
	id       uint64
	bit      int
	name     string
	size     uintptr
	align    uintptr
	tag      bool
	onAdd    native.Entry
	onRemove native.Entry
}

// column stores one component for every row of an archetype, contiguously.
// The backing slice is []uint64 so every element is at least 8-byte aligned.
type column struct {
	term *term
	data []uint64
	cap  int
}

func (c *column) ptr(row int) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(unsafe.SliceData(c.data)), uintptr(row)*c.term.size)
}

func (c *column) bytes(row int) []byte {
	return unsafe.Slice((*byte)(c.ptr(row)), c.term.size)
}

func (c *column) reserve(rows int) {
	if rows <= c.cap {
		return
	}
	n := max(c.cap*2, 8, rows)
	data := make([]uint64, (uintptr(n)*c.term.size+7)/8)
	copy(data, c.data)
	c.data = data
	c.cap = n
}

// archetype holds every entity with exactly the same term set.
type archetype struct {
	mask     bitmask
	terms    []*term
	columns  []*column
	colIndex [maxTerms]int16
	entities []uint64
}

func newArchetype(mask bitmask, terms []*term) *archetype {
	a := &archetype{mask: mask, terms: terms}
	for i := range a.colIndex {
		a.colIndex[i] = -1
	}
	for _, t := range terms {
		if t.size == 0 {
			continue
		}
		a.colIndex[t.bit] = int16(len(a.columns))
		a.columns = append(a.columns, &column{term: t})
	}
	return a
}

func (a *archetype) len() int { return len(a.entities) }

// column returns the storage for bit, or nil when the archetype lacks it or
// the term has no data.
func (a *archetype) column(bit int) *column {
	i := a.colIndex[bit]
	if i < 0 {
		return nil
	}
	return a.columns[i]
}

// push appends id with zeroed component data and returns its row.
func (a *archetype) push(id uint64) int {
	row := len(a.entities)
	a.entities = append(a.entities, id)
	for _, c := range a.columns {
		c.reserve(row + 1)
		clear(c.bytes(row))
	}
	return row
}

// remove swap-removes row. When another entity moved into row, its id is
// returned with ok=true so the caller can fix its record.
func (a *archetype) remove(row int) (moved uint64, ok bool) {
	last := len(a.entities) - 1
	if row != last {
		for _, c := range a.columns {
			copy(c.bytes(row), c.bytes(last))
		}
		a.entities[row] = a.entities[last]
		moved, ok = a.entities[row], true
	}
	a.entities = a.entities[:last]
	return moved, ok
}
