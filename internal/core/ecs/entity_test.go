package ecs

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndFindByName(t *testing.T) {
	w := newTestWorld(t)

	// Precomposed and decomposed spellings resolve to the same entity.
	a, err := w.CreateEntity("Caf\u00e9")
	require.NoError(t, err)
	b, err := w.CreateEntity("Cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	found, ok := w.FindByName(" Cafe\u0301 ")
	require.True(t, ok)
	assert.Equal(t, a, found)

	_, ok = w.FindByName("Nobody")
	assert.False(t, ok)
}

func TestParentLookup(t *testing.T) {
	w := newTestWorld(t)
	root, err := w.CreateEntity("root")
	require.NoError(t, err)
	child, err := w.CreateEntity("child")
	require.NoError(t, err)
	require.NoError(t, w.SetParent(child, root))

	p, ok, err := w.Parent(child)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, root, p)

	_, ok, err = w.Parent(root)
	require.NoError(t, err)
	assert.False(t, ok, "a root has no parent")

	require.NoError(t, w.SetParent(child, 0))
	_, ok, err = w.Parent(child)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, w.DestroyEntity(root))
	_, _, err = w.Parent(root)
	assert.ErrorIs(t, err, ErrEntityNotFound)
	assert.ErrorIs(t, w.SetParent(child, root), ErrEntityNotFound)
}

func TestComponentOperations(t *testing.T) {
	w := newTestWorld(t)
	e, err := w.CreateEntity("")
	require.NoError(t, err)

	require.NoError(t, Add[health](w, e))
	assert.ErrorIs(t, Add[health](w, e), ErrComponentAlreadyPresent)

	h, ok, err := Get[health](w, e)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, health{}, *h)

	h.Current = 7
	again, _, err := Get[health](w, e)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), again.Current, "Get returns a live view")

	require.NoError(t, Set(w, e, health{Current: 3, Max: 10}))
	h, _, _ = Get[health](w, e)
	assert.Equal(t, health{Current: 3, Max: 10}, *h)

	has, err := Has[velocity](w, e)
	require.NoError(t, err)
	assert.False(t, has)
	_, ok, err = Get[velocity](w, e)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, Remove[health](w, e))
	has, err = Has[health](w, e)
	require.NoError(t, err)
	assert.False(t, has)
	require.NoError(t, Remove[health](w, e), "removing an absent component is a no-op")

	_, err = With(w, e, position{X: 1, Y: 2, Z: 3})
	require.NoError(t, err)
	p, ok, err := Get[position](w, e)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, position{X: 1, Y: 2, Z: 3}, *p)
	_, err = With(w, e, position{})
	assert.ErrorIs(t, err, ErrComponentAlreadyPresent)
}

func TestOperationsOnDeadEntities(t *testing.T) {
	w := newTestWorld(t)
	e, err := w.CreateEntity("")
	require.NoError(t, err)
	require.NoError(t, w.DestroyEntity(e))

	assert.ErrorIs(t, w.DestroyEntity(e), ErrEntityNotFound)
	assert.ErrorIs(t, Add[health](w, e), ErrEntityNotFound)
	assert.ErrorIs(t, Set(w, e, health{}), ErrEntityNotFound)
	_, _, err = Get[health](w, e)
	assert.ErrorIs(t, err, ErrEntityNotFound)
	_, err = Has[health](w, e)
	assert.ErrorIs(t, err, ErrEntityNotFound)
	assert.ErrorIs(t, Remove[health](w, e), ErrEntityNotFound)
	_, _, err = w.Parent(0)
	assert.ErrorIs(t, err, ErrEntityNotFound)
	assert.False(t, w.IsAlive(e))
}

func TestComponentAndTagIdsAreNotEntities(t *testing.T) {
	w := newTestWorld(t)
	d, err := Register[health](w)
	require.NoError(t, err)
	tag, err := w.CreateTag("Selected")
	require.NoError(t, err)

	for _, id := range []Entity{Entity(d.ID), Entity(tag)} {
		assert.False(t, w.IsAlive(id))
		assert.ErrorIs(t, w.DestroyEntity(id), ErrEntityNotFound)
		assert.ErrorIs(t, Set(w, id, health{}), ErrEntityNotFound)
		_, _, err := w.Parent(id)
		assert.ErrorIs(t, err, ErrEntityNotFound)
	}
	_, ok := w.FindByName(d.Name)
	assert.False(t, ok)
	_, ok = w.FindByName("Selected")
	assert.False(t, ok)
}

func TestRawBytesRoundTrip(t *testing.T) {
	w := newTestWorld(t)
	d, err := Register[health](w)
	require.NoError(t, err)
	e, err := w.CreateEntity("")
	require.NoError(t, err)

	buf := make([]byte, d.Size)
	binary.NativeEndian.PutUint32(buf, 5)
	require.NoError(t, w.SetBytes(e, d, buf))
	h, ok, err := Get[health](w, e)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint32(5), h.Current)

	raw, ok, err := w.Bytes(e, d)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, raw, int(d.Size))
	assert.Error(t, w.SetBytes(e, d, buf[:3]))
}
