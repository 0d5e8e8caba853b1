package host

import (
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/broken-bytes/Playground/internal/native"
)

func iterEntities(e *Engine, it native.Iter) []uint64 {
	ptr, n := e.GetEntitiesFromIterator(it)
	if ptr == nil {
		return nil
	}
	return unsafe.Slice((*uint64)(ptr), n)
}

func TestSystemFiltersAndBatches(t *testing.T) {
	e := newTestEngine(t)
	pos := registerPosition(t, e)
	vel := registerVelocity(t, e)
	frozen := e.CreateTag("frozen")

	moving := e.CreateEntity("moving")
	e.AddComponent(moving, pos)
	e.AddComponent(moving, vel)
	still := e.CreateEntity("still")
	e.AddComponent(still, pos)
	iced := e.CreateEntity("iced")
	e.AddComponent(iced, pos)
	e.AddComponent(iced, vel)
	e.AddTag(iced, frozen)

	var seen []uint64
	var velMissing int
	entry := e.NewEntry(func(it native.Iter) {
		assert.NotZero(t, e.GetIteratorSystem(it))
		assert.Equal(t, 0.25, e.GetIteratorDeltaTime(it))
		n := e.GetIteratorSize(it)
		ents := iterEntities(e, it)
		assert.Len(t, ents, int(n))
		seen = append(seen, ents...)

		buf, count := e.GetComponentBuffer(it, 0, 8)
		require.NotNil(t, buf)
		assert.Equal(t, n, count)
		if b, _ := e.GetComponentBuffer(it, 1, 16); b == nil {
			velMissing++
		}
		notBuf, _ := e.GetComponentBuffer(it, 2, 0)
		assert.Nil(t, notBuf, "not terms never carry a buffer")
	})
	id := e.CreateSystem("Move", []native.Filter{
		{ID: pos, Usage: native.UsageReadWrite, Operation: native.OpAnd},
		{ID: vel, Usage: native.UsageRead, Operation: native.OpOr},
		{ID: frozen, Usage: native.UsageRead, Operation: native.OpNot},
	}, false, entry)
	require.NotZero(t, id)

	e.Progress(0.25)
	assert.ElementsMatch(t, []uint64{moving}, seen)
	assert.Zero(t, velMissing)
	assert.Equal(t, uint64(1), e.Frames())
}

func TestSystemWrongBufferSize(t *testing.T) {
	e := newTestEngine(t)
	pos := registerPosition(t, e)
	id := e.CreateEntity("")
	e.AddComponent(id, pos)

	buf := unsafe.Pointer(&id)
	e.CreateSystem("Check", []native.Filter{{ID: pos, Usage: native.UsageRead}}, false,
		e.NewEntry(func(it native.Iter) {
			buf, _ = e.GetComponentBuffer(it, 0, 16)
		}))
	e.Progress(0)
	assert.Nil(t, buf)
}

func TestSystemUnknownTermRefused(t *testing.T) {
	e := newTestEngine(t)
	id := e.CreateSystem("Bad", []native.Filter{{ID: 999}}, false, e.NewEntry(func(native.Iter) {}))
	assert.Zero(t, id)
	assert.Zero(t, e.CreateSystem("NoEntry", nil, false, native.Entry{}))
}

func TestEmptyFilterMatchesAllEntities(t *testing.T) {
	e := newTestEngine(t)
	pos := registerPosition(t, e)
	a := e.CreateEntity("")
	b := e.CreateEntity("")
	e.AddComponent(b, pos)

	var seen []uint64
	e.CreateSystem("All", nil, false, e.NewEntry(func(it native.Iter) {
		seen = append(seen, iterEntities(e, it)...)
	}))
	e.Progress(0)
	assert.ElementsMatch(t, []uint64{a, b}, seen)
}

func TestStructuralChangesDeferredUntilSystemEnds(t *testing.T) {
	e := newTestEngine(t)
	pos := registerPosition(t, e)
	tag := e.CreateTag("spawned")
	for i := 0; i < 3; i++ {
		id := e.CreateEntity("")
		setPosition(e, id, pos, position{X: float32(i)})
	}

	var created []uint64
	e.CreateSystem("Spawner", []native.Filter{{ID: pos, Usage: native.UsageRead}}, false,
		e.NewEntry(func(it native.Iter) {
			for _, src := range iterEntities(e, it) {
				id := e.CreateEntity("")
				assert.True(t, e.IsAlive(id))
				setPosition(e, id, pos, position{X: 100})
				e.AddTag(id, tag)
				assert.False(t, e.HasComponent(id, pos), "not applied while the system runs")
				created = append(created, id)
				e.DestroyEntity(src)
			}
		}))

	var after int
	e.CreateSystem("Counter", []native.Filter{{ID: tag, Usage: native.UsageRead}}, false,
		e.NewEntry(func(it native.Iter) {
			after += int(e.GetIteratorSize(it))
		}))

	e.Progress(0)
	assert.Len(t, created, 3)
	assert.Equal(t, 3, after, "later systems see the applied changes")
	for _, id := range created {
		p, ok := getPosition(e, id, pos)
		require.True(t, ok)
		assert.Equal(t, float32(100), p.X)
	}
	assert.Equal(t, 3, e.Count())

	e.DeleteAllEntitiesByTag(tag)
	assert.Zero(t, e.Count())
}

func TestMultithreadedSystemCoversEveryRowOnce(t *testing.T) {
	e := newTestEngine(t, WithWorkers(4), WithMinBatch(8))
	pos := registerPosition(t, e)
	const n = 100
	for i := 0; i < n; i++ {
		id := e.CreateEntity("")
		setPosition(e, id, pos, position{X: float32(i)})
	}

	var (
		mu      sync.Mutex
		seen    []uint64
		batches atomic.Int32
	)
	e.CreateSystem("Parallel", []native.Filter{{ID: pos, Usage: native.UsageReadWrite}}, true,
		e.NewEntry(func(it native.Iter) {
			batches.Add(1)
			buf, count := e.GetComponentBuffer(it, 0, 8)
			rows := unsafe.Slice((*position)(buf), count)
			for i := range rows {
				rows[i].Y = rows[i].X * 2
			}
			mu.Lock()
			seen = append(seen, iterEntities(e, it)...)
			mu.Unlock()
		}))
	e.Progress(0)

	assert.Greater(t, batches.Load(), int32(1))
	require.Len(t, seen, n)
	sort.Slice(seen, func(i, j int) bool { return seen[i] < seen[j] })
	for i := 1; i < n; i++ {
		assert.NotEqual(t, seen[i-1], seen[i])
	}
	for _, id := range seen {
		p, _ := getPosition(e, id, pos)
		assert.Equal(t, p.X*2, p.Y)
	}
}

func TestIteratorHandleExpires(t *testing.T) {
	e := newTestEngine(t)
	e.CreateEntity("")
	var kept native.Iter
	e.CreateSystem("Keep", nil, false, e.NewEntry(func(it native.Iter) { kept = it }))
	e.Progress(0)
	require.NotZero(t, kept)
	ptr, n := e.GetEntitiesFromIterator(kept)
	assert.Nil(t, ptr)
	assert.Zero(t, n)
}
