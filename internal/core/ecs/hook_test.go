package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHooksDeriveComponent(t *testing.T) {
	w := newTestWorld(t)

	var added, removed []Entity
	err := AddHook[position](w,
		func(c *Cursor) error {
			require.Equal(t, 1, c.Count())
			e := c.Entities()[0]
			added = append(added, e)
			ps, err := Field[position](c)
			if err != nil {
				return err
			}
			// Reentrant: derive velocity from the position being attached.
			return Set(w, e, velocity{X: ps[0].X * 10})
		},
		func(c *Cursor) error {
			e := c.Entities()[0]
			removed = append(removed, e)
			return Remove[velocity](w, e)
		})
	require.NoError(t, err)

	e, err := w.CreateEntity("")
	require.NoError(t, err)
	require.NoError(t, Set(w, e, position{X: 2}))
	assert.Equal(t, []Entity{e}, added)
	v, ok, err := Get[velocity](w, e)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, float32(20), v.X)

	require.NoError(t, Remove[position](w, e))
	assert.Equal(t, []Entity{e}, removed)
	has, err := Has[velocity](w, e)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestHookWithOnlyRemoveCallback(t *testing.T) {
	w := newTestWorld(t)
	count := 0
	require.NoError(t, AddHook[health](w, nil, func(*Cursor) error {
		count++
		return nil
	}))

	e, err := w.CreateEntity("")
	require.NoError(t, err)
	require.NoError(t, Add[health](w, e))
	assert.Zero(t, count)
	require.NoError(t, w.DestroyEntity(e))
	assert.Equal(t, 1, count)
}

func TestHookRegisteredOnce(t *testing.T) {
	w := newTestWorld(t)
	noop := func(*Cursor) error { return nil }
	require.NoError(t, AddHook[position](w, noop, nil))
	assert.ErrorIs(t, AddHook[position](w, noop, nil), ErrHookExists)
}
