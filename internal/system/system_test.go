package system

import (
	"errors"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/broken-bytes/Playground/internal/component"
	"github.com/broken-bytes/Playground/internal/core/ecs"
	"github.com/broken-bytes/Playground/internal/core/event"
	"github.com/broken-bytes/Playground/internal/native/host"
)

type capture struct {
	frames [][]component.DrawCall
}

func (c *capture) Submit(frame []component.DrawCall) error {
	c.frames = append(c.frames, frame)
	return nil
}

func newPipeline(t *testing.T) (*ecs.World, *Pipeline, *capture) {
	t.Helper()
	log := zaptest.NewLogger(t)
	w := ecs.Open(host.New(host.WithLogger(log), host.WithWorkers(4), host.WithMinBatch(2)),
		ecs.WithLogger(log), ecs.WithDebugChecks(true))
	t.Cleanup(func() { _ = w.Close() })

	var sched ecs.Schedule
	out := &capture{}
	p, err := Setup(w, &sched, out, log)
	require.NoError(t, err)
	_, err = sched.Register(w)
	require.NoError(t, err)
	return w, p, out
}

func worldOf(t *testing.T, w *ecs.World, e ecs.Entity) component.WorldTransform {
	t.Helper()
	wt, ok, err := ecs.Get[component.WorldTransform](w, e)
	require.NoError(t, err)
	require.True(t, ok, "entity %d has no WorldTransform", e)
	return *wt
}

func TestHierarchyComposesParentLocal(t *testing.T) {
	w, p, _ := newPipeline(t)

	parent, err := w.CreateEntity("parent")
	require.NoError(t, err)
	require.NoError(t, ecs.Set(w, parent, component.NewTransform(mgl32.Vec3{1, 0, 0})))
	child, err := w.CreateEntity("child")
	require.NoError(t, err)
	require.NoError(t, ecs.Set(w, child, component.NewTransform(mgl32.Vec3{0, 1, 0})))
	require.NoError(t, w.SetParent(child, parent))

	p.Runner.Tick(time.Second / 60)

	assert.Equal(t, mgl32.Vec3{1, 1, 0}, worldOf(t, w, child).Position)
	assert.Equal(t, mgl32.Vec3{1, 0, 0}, worldOf(t, w, parent).Position, "root world equals local")
	assert.Equal(t, mgl32.Vec3{1, 1, 1}, worldOf(t, w, child).Scale)
}

func TestHierarchyComposesOnlyDirectParent(t *testing.T) {
	w, p, _ := newPipeline(t)
	var chain []ecs.Entity
	for i := 0; i < 3; i++ {
		e, err := w.CreateEntity("")
		require.NoError(t, err)
		require.NoError(t, ecs.Set(w, e, component.NewTransform(mgl32.Vec3{1, 0, 0})))
		if i > 0 {
			require.NoError(t, w.SetParent(e, chain[i-1]))
		}
		chain = append(chain, e)
	}

	p.Runner.Tick(0)
	p.Runner.Tick(0)
	assert.Equal(t, mgl32.Vec3{2, 0, 0}, worldOf(t, w, chain[2]).Position)
}

func TestComposeRotationAndScale(t *testing.T) {
	parent := component.NewTransform(mgl32.Vec3{})
	parent.Rotation = mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1})
	parent.Scale = mgl32.Vec3{2, 3, 4}
	local := component.NewTransform(mgl32.Vec3{5, 0, 0})
	local.Scale = mgl32.Vec3{0.5, 2, 1}

	got := Compose(parent, local)
	assert.Equal(t, mgl32.Vec3{5, 0, 0}, got.Position, "offset is not rotated")
	assert.Equal(t, mgl32.Vec3{1, 6, 4}, got.Scale)
	assert.True(t, got.Rotation.ApproxEqual(parent.Rotation))
}

func TestTransformHooksManageWorldTransform(t *testing.T) {
	w, _, _ := newPipeline(t)
	e, err := w.CreateEntity("")
	require.NoError(t, err)

	require.NoError(t, ecs.Set(w, e, component.NewTransform(mgl32.Vec3{3, 2, 1})))
	assert.Equal(t, mgl32.Vec3{3, 2, 1}, worldOf(t, w, e).Position, "seeded from the local value")

	require.NoError(t, ecs.Remove[component.Transform](w, e))
	has, err := ecs.Has[component.WorldTransform](w, e)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestDrawCallsStagedSubmittedAndCleaned(t *testing.T) {
	w, p, out := newPipeline(t)
	const n = 5
	for i := 0; i < n; i++ {
		e, err := w.CreateEntity("")
		require.NoError(t, err)
		require.NoError(t, ecs.Set(w, e, component.NewTransform(mgl32.Vec3{float32(i), 0, 0})))
		require.NoError(t, ecs.Set(w, e, component.Mesh{Handle: 0x10, MeshID: uint32(i)}))
		require.NoError(t, ecs.Set(w, e, component.Material{Handle: 0x20}))
	}
	// Not renderable: no material.
	bare, err := w.CreateEntity("")
	require.NoError(t, err)
	require.NoError(t, ecs.Set(w, bare, component.Mesh{Handle: 0x30}))

	p.Runner.Tick(time.Millisecond)
	p.Runner.Tick(time.Millisecond)

	require.Len(t, out.frames, 2)
	for _, frame := range out.frames {
		require.Len(t, frame, n, "previous frame's draw calls were deleted")
		ids := map[uint32]bool{}
		for _, dc := range frame {
			assert.Equal(t, uintptr(0x10), dc.Model)
			assert.Equal(t, uintptr(0x20), dc.Material)
			assert.Equal(t, float32(dc.MeshID), dc.Position.X())
			ids[dc.MeshID] = true
		}
		assert.Len(t, ids, n)
	}
	assert.Zero(t, p.Queue.Len())
	assert.False(t, p.Progress.Stopped())
}

func TestFrameEventsArriveNextFrame(t *testing.T) {
	_, p, _ := newPipeline(t)
	var got []event.FrameSubmitted
	event.Subscribe(p.Bus, func(ev event.FrameSubmitted) { got = append(got, ev) })

	p.Runner.Tick(time.Millisecond)
	assert.Empty(t, got, "events are delivered one frame late")
	assert.Equal(t, 1, p.Bus.Pending())

	p.Runner.Tick(time.Millisecond)
	require.Len(t, got, 1)
	assert.Equal(t, uint64(1), got[0].Frame)
	assert.Zero(t, got[0].DrawCalls)
}

func TestSubmitFailureIsReported(t *testing.T) {
	log := zaptest.NewLogger(t)
	q := NewRenderQueue()
	bus := event.NewBus()
	boom := errors.New("device lost")
	s := NewSubmitSystem(q, SubmitterFunc(func([]component.DrawCall) error { return boom }), bus, log)

	var failed []event.SubmitFailed
	event.Subscribe(bus, func(ev event.SubmitFailed) { failed = append(failed, ev) })
	var ok int
	event.Subscribe(bus, func(event.FrameSubmitted) { ok++ })

	q.Push(component.DrawCall{MeshID: 1})
	s.Update(0)
	bus.SwapBuffers()
	bus.DispatchAll()

	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, boom)
	assert.Zero(t, ok)
	assert.Zero(t, q.Len())
}
