package ecs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two components with identical layouts carry distinct sentinels; slots must
// deliver each one exactly where it was declared.
func TestColumnSlotsNeverSwap(t *testing.T) {
	w := newTestWorld(t)
	e, err := w.CreateEntity("")
	require.NoError(t, err)
	require.NoError(t, Set(w, e, position{X: 1, Y: 1, Z: 1}))
	require.NoError(t, Set(w, e, velocity{X: 2, Y: 2, Z: 2}))

	var slotErr error
	_, err = w.CreateSystem(SystemDesc{
		Name:  "Sentinels",
		Query: []QueryItem{Reads[velocity](), Writes[position]()},
		Run: func(c *Cursor, _ float64) error {
			vs, err := Column[velocity](c, 0)
			require.NoError(t, err)
			ps, err := Column[position](c, 1)
			require.NoError(t, err)
			assert.Equal(t, velocity{X: 2, Y: 2, Z: 2}, vs[0])
			assert.Equal(t, position{X: 1, Y: 1, Z: 1}, ps[0])

			_, slotErr = Column[position](c, 0)
			return nil
		},
	})
	require.NoError(t, err)
	w.Progress(0)
	assert.ErrorIs(t, slotErr, ErrSlotMismatch, "debug checks catch a type requested at the wrong slot")
}

// Without debug checks the native buffer lookup still refuses a request whose
// size differs from the slot's component.
func TestColumnSlotsNeverSwapReleaseMode(t *testing.T) {
	w := newTestWorld(t, WithDebugChecks(false))
	require.False(t, w.DebugChecks())
	e, err := w.CreateEntity("")
	require.NoError(t, err)
	require.NoError(t, Set(w, e, health{Current: 7, Max: 7}))
	require.NoError(t, Set(w, e, position{X: 3, Y: 3, Z: 3}))

	var healthAtPos, posAtHealth error
	_, err = w.CreateSystem(SystemDesc{
		Name:  "ReleaseSentinels",
		Query: []QueryItem{Reads[health](), Writes[position]()},
		Run: func(c *Cursor, _ float64) error {
			hs, err := Column[health](c, 0)
			require.NoError(t, err)
			ps, err := Column[position](c, 1)
			require.NoError(t, err)
			assert.Equal(t, health{Current: 7, Max: 7}, hs[0])
			assert.Equal(t, position{X: 3, Y: 3, Z: 3}, ps[0])

			_, healthAtPos = Column[health](c, 1)
			_, posAtHealth = Column[position](c, 0)
			return nil
		},
	})
	require.NoError(t, err)
	w.Progress(0)
	assert.ErrorIs(t, healthAtPos, ErrSlotMismatch)
	assert.ErrorIs(t, posAtHealth, ErrSlotMismatch)
}

func TestColumnOutOfRangeSlot(t *testing.T) {
	w := newTestWorld(t)
	e, err := w.CreateEntity("")
	require.NoError(t, err)
	require.NoError(t, Add[position](w, e))

	var got error
	_, err = w.CreateSystem(SystemDesc{
		Name:  "Range",
		Query: []QueryItem{Reads[position]()},
		Run: func(c *Cursor, _ float64) error {
			_, got = Column[position](c, 3)
			return nil
		},
	})
	require.NoError(t, err)
	w.Progress(0)
	assert.ErrorIs(t, got, ErrSlotMismatch)
}

func TestFieldRestrictedToDeclaredComponents(t *testing.T) {
	w := newTestWorld(t)
	e, err := w.CreateEntity("")
	require.NoError(t, err)
	require.NoError(t, Set(w, e, position{X: 4}))
	require.NoError(t, Set(w, e, health{Current: 9}))
	type unused struct{ N int32 }

	var (
		posErr, healthErr, unusedErr error
		hasHealth                    bool
		hasErr                       error
	)
	_, err = w.CreateSystem(SystemDesc{
		Name:  "Restricted",
		Query: []QueryItem{Reads[position]()},
		Run: func(c *Cursor, _ float64) error {
			ps, err := Field[position](c)
			posErr = err
			if err == nil {
				assert.Equal(t, float32(4), ps[0].X)
			}
			_, healthErr = Field[health](c)
			_, unusedErr = Field[unused](c)
			hasHealth, hasErr = HasField[health](c)
			return nil
		},
	})
	require.NoError(t, err)
	w.Progress(0)

	assert.NoError(t, posErr)
	assert.ErrorIs(t, healthErr, ErrUndeclaredComponentAccess, "carried but undeclared")
	assert.ErrorIs(t, unusedErr, ErrUndeclaredComponentAccess, "never registered")
	assert.False(t, hasHealth)
	assert.ErrorIs(t, hasErr, ErrUndeclaredComponentAccess)
}

func TestOptionalAndExcludedTerms(t *testing.T) {
	w := newTestWorld(t)
	withVel, err := w.CreateEntity("moving")
	require.NoError(t, err)
	require.NoError(t, Set(w, withVel, position{}))
	require.NoError(t, Set(w, withVel, velocity{X: 1}))
	withHealth, err := w.CreateEntity("healthy")
	require.NoError(t, err)
	require.NoError(t, Set(w, withHealth, position{}))
	require.NoError(t, Set(w, withHealth, health{Current: 1}))
	excluded, err := w.CreateEntity("excluded")
	require.NoError(t, err)
	require.NoError(t, Set(w, excluded, position{}))
	require.NoError(t, Set(w, excluded, velocity{}))
	_, err = w.CreateTag("dead")
	require.NoError(t, err)
	require.NoError(t, w.AddTag(excluded, "dead"))

	seen := map[Entity][2]bool{}
	_, err = w.CreateSystem(SystemDesc{
		Name: "Optional",
		Query: []QueryItem{
			Reads[position](),
			Either[velocity](),
			Either[health](),
			Named("dead", Read, Not),
		},
		Run: func(c *Cursor, _ float64) error {
			vs, err := Column[velocity](c, 1)
			if err != nil {
				return err
			}
			hs, err := Column[health](c, 2)
			if err != nil {
				return err
			}
			assert.Equal(t, len(vs) > 0, c.IsSet(1))
			assert.False(t, c.IsSet(3))
			for _, e := range c.Entities() {
				seen[e] = [2]bool{vs != nil, hs != nil}
			}
			return nil
		},
	})
	require.NoError(t, err)
	w.Progress(0)

	assert.Equal(t, map[Entity][2]bool{
		withVel:    {true, false},
		withHealth: {false, true},
	}, seen)
}

func TestCursorClosedAfterCallback(t *testing.T) {
	w := newTestWorld(t)
	e, err := w.CreateEntity("")
	require.NoError(t, err)
	require.NoError(t, Add[position](w, e))

	var kept *Cursor
	_, err = w.CreateSystem(SystemDesc{
		Name:  "Leak",
		Query: []QueryItem{Reads[position]()},
		Run: func(c *Cursor, _ float64) error {
			kept = c
			return nil
		},
	})
	require.NoError(t, err)
	w.Progress(0)

	require.NotNil(t, kept)
	_, err = Column[position](kept, 0)
	assert.ErrorIs(t, err, ErrCursorClosed)
	_, err = Field[position](kept)
	assert.ErrorIs(t, err, ErrCursorClosed)
	assert.Nil(t, kept.Entities())
	assert.False(t, kept.IsSet(0))
}

func TestEach2WalksRows(t *testing.T) {
	w := newTestWorld(t)
	for i := 0; i < 5; i++ {
		e, err := w.CreateEntity("")
		require.NoError(t, err)
		require.NoError(t, Set(w, e, position{X: float32(i)}))
		require.NoError(t, Set(w, e, velocity{X: 1}))
	}

	_, err := w.CreateSystem(SystemDesc{
		Name:  "Integrate",
		Query: []QueryItem{Writes[position](), Reads[velocity]()},
		Run: func(c *Cursor, _ float64) error {
			return Each2(c, 0, 1, func(_ Entity, p *position, v *velocity) {
				p.X += v.X
			})
		},
	})
	require.NoError(t, err)
	w.Progress(0)
	w.Progress(0)

	total := float32(0)
	_, err = w.CreateSystem(SystemDesc{
		Name:  "Sum",
		Query: []QueryItem{Reads[position]()},
		Run: func(c *Cursor, _ float64) error {
			ps, err := Field[position](c)
			for _, p := range ps {
				total += p.X
			}
			return err
		},
	})
	require.NoError(t, err)
	w.Progress(0)
	// 0..4 plus three integration steps each.
	assert.Equal(t, float32(10+5*3), total)
}
