package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagDeletionRemovesOnlyTaggedEntities(t *testing.T) {
	w := newTestWorld(t)
	id, err := w.CreateTag("ephemeral")
	require.NoError(t, err)
	again, err := w.CreateTag("ephemeral")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	var tagged []Entity
	for i := 0; i < 4; i++ {
		e, err := w.CreateEntity("")
		require.NoError(t, err)
		require.NoError(t, w.AddTag(e, "ephemeral"))
		tagged = append(tagged, e)
	}
	keep, err := w.CreateEntity("keep")
	require.NoError(t, err)
	require.NoError(t, Add[position](w, keep))

	has, err := w.HasTag(tagged[0], "ephemeral")
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, w.DeleteEntitiesWithTag("ephemeral"))
	for _, e := range tagged {
		assert.False(t, w.IsAlive(e))
	}
	assert.True(t, w.IsAlive(keep))

	require.NoError(t, w.DeleteEntitiesWithTag("ephemeral"), "deleting an empty set succeeds")
	assert.True(t, w.IsAlive(keep))
	assert.Equal(t, []string{"ephemeral"}, w.Tags())
}

func TestUnknownTag(t *testing.T) {
	w := newTestWorld(t)
	e, err := w.CreateEntity("")
	require.NoError(t, err)

	assert.ErrorIs(t, w.AddTag(e, "never_created"), ErrUnknownTag)
	assert.ErrorIs(t, w.DeleteEntitiesWithTag("never_created"), ErrUnknownTag)
	_, err = w.HasTag(e, "never_created")
	assert.ErrorIs(t, err, ErrUnknownTag)

	_, err = w.CreateTag("  ")
	assert.Error(t, err)
}

func TestTagDeletionFromSystemIsDeferred(t *testing.T) {
	w := newTestWorld(t)
	_, err := w.CreateTag("spawned")
	require.NoError(t, err)
	src, err := w.CreateEntity("spawner")
	require.NoError(t, err)
	require.NoError(t, Add[position](w, src))

	var spawned []Entity
	_, err = w.CreateSystem(SystemDesc{
		Name:  "Spawn",
		Query: []QueryItem{Reads[position]()},
		Run: func(c *Cursor, _ float64) error {
			require.NoError(t, w.DeleteEntitiesWithTag("spawned"))
			e, err := w.CreateEntity("")
			if err != nil {
				return err
			}
			spawned = append(spawned, e)
			return w.AddTag(e, "spawned")
		},
	})
	require.NoError(t, err)

	w.Progress(0)
	w.Progress(0)
	require.Len(t, spawned, 2)
	assert.False(t, w.IsAlive(spawned[0]), "previous frame's entity deleted")
	assert.True(t, w.IsAlive(spawned[1]))
}
