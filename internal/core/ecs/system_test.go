package ecs

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleOrdersByPhaseThenOrder(t *testing.T) {
	w := newTestWorld(t)
	e, err := w.CreateEntity("")
	require.NoError(t, err)
	require.NoError(t, Add[position](w, e))

	var ran []string
	record := func(name string) SystemDesc {
		return SystemDesc{
			Name:  name,
			Query: []QueryItem{Reads[position]()},
			Run: func(*Cursor, float64) error {
				ran = append(ran, name)
				return nil
			},
		}
	}

	var s Schedule
	late := record("late")
	late.Phase = OnStore
	second := record("second")
	second.Order = 5
	first := record("first")
	first.Order = -1
	early := record("early")
	early.Phase = PreUpdate
	s.Add(late, second, first, early)
	assert.Equal(t, 4, s.Len())

	systems, err := s.Register(w)
	require.NoError(t, err)
	require.Len(t, systems, 4)

	w.Progress(time.Second / 60)
	assert.Equal(t, []string{"early", "first", "second", "late"}, ran)

	sys, ok := w.System("late")
	require.True(t, ok)
	assert.Equal(t, OnStore, sys.Phase)
}

func TestUnsetPhaseMatchesParsedDefault(t *testing.T) {
	var d SystemDesc
	parsed, err := ParsePhase("")
	require.NoError(t, err)
	assert.Equal(t, parsed, d.Phase)
	assert.Equal(t, OnUpdate, d.Phase)
	assert.Less(t, int(PreUpdate), int(d.Phase))
	assert.Equal(t, "update", d.Phase.String())
}

func TestDispatchPassesCursorAndDeltaTime(t *testing.T) {
	w := newTestWorld(t)
	var want []Entity
	for i := 0; i < 3; i++ {
		e, err := w.CreateEntity("")
		require.NoError(t, err)
		require.NoError(t, Set(w, e, position{X: float32(i)}))
		want = append(want, e)
	}

	var got []Entity
	var gotDT float64
	_, err := w.CreateSystem(SystemDesc{
		Name:  "Collect",
		Query: []QueryItem{ReadsWrites[position]()},
		Run: func(c *Cursor, dt float64) error {
			gotDT = dt
			assert.Equal(t, "Collect", c.System())
			ps, err := Column[position](c, 0)
			if err != nil {
				return err
			}
			assert.Len(t, ps, c.Count())
			for i := range ps {
				ps[i].Y = ps[i].X + 1
			}
			got = append(got, c.Entities()...)
			return nil
		},
	})
	require.NoError(t, err)

	w.Progress(500 * time.Millisecond)
	assert.ElementsMatch(t, want, got)
	assert.Equal(t, 0.5, gotDT)
	for _, e := range want {
		p, _, err := Get[position](w, e)
		require.NoError(t, err)
		assert.Equal(t, p.X+1, p.Y)
	}
}

func TestCreateSystemValidation(t *testing.T) {
	w := newTestWorld(t)
	noop := func(*Cursor, float64) error { return nil }

	_, err := w.CreateSystem(SystemDesc{Name: "NoRun"})
	assert.ErrorIs(t, err, ErrSystemRegistration)

	_, err = w.CreateSystem(SystemDesc{Name: "A", Run: noop})
	require.NoError(t, err)
	_, err = w.CreateSystem(SystemDesc{Name: "A", Run: noop})
	assert.ErrorIs(t, err, ErrSystemRegistration)

	_, err = w.CreateSystem(SystemDesc{Name: "B", Run: noop, Query: []QueryItem{Named("Ghost", Read, And)}})
	assert.ErrorIs(t, err, ErrComponentNotRegistered)
}

func TestDispatchUnknownSystemPanics(t *testing.T) {
	w := newTestWorld(t)
	_, err := w.CreateEntity("")
	require.NoError(t, err)

	// Registered behind the World's back, so its id is not in the table.
	id := w.Engine().CreateSystem("rogue", nil, false, w.dispatch)
	require.NotZero(t, id)

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		w.Progress(0)
	}()
	perr, ok := recovered.(error)
	require.True(t, ok, "dispatch must panic with an error")
	assert.ErrorIs(t, perr, ErrUnknownSystem)
}

func TestCallbackErrorsAreLoggedNotFatal(t *testing.T) {
	w := newTestWorld(t)
	e, err := w.CreateEntity("")
	require.NoError(t, err)
	require.NoError(t, Add[position](w, e))

	calls := 0
	_, err = w.CreateSystem(SystemDesc{
		Name:  "Failing",
		Query: []QueryItem{Reads[position]()},
		Run: func(*Cursor, float64) error {
			calls++
			return eris.New("boom")
		},
	})
	require.NoError(t, err)

	assert.NotPanics(t, func() { w.Progress(0) })
	assert.NotPanics(t, func() { w.Progress(0) })
	assert.Equal(t, 2, calls)
}

func TestPhaseParsing(t *testing.T) {
	p, err := ParsePhase("post_update")
	require.NoError(t, err)
	assert.Equal(t, PostUpdate, p)
	p, err = ParsePhase("")
	require.NoError(t, err)
	assert.Equal(t, OnUpdate, p)
	_, err = ParsePhase("later")
	assert.Error(t, err)
}
