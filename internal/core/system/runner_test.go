package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

type step struct {
	phase Phase
	name  string
	out   *[]string
}

func (s step) Phase() Phase { return s.phase }

func (s step) Update(time.Duration) { *s.out = append(*s.out, s.name) }

func TestRunnerOrdersByPhase(t *testing.T) {
	var ran []string
	r := NewRunner(zaptest.NewLogger(t))
	r.Register(step{PhaseCleanup, "cleanup", &ran})
	r.Register(step{PhaseNative, "native", &ran})
	r.Register(step{PhaseRender, "render-a", &ran})
	r.Register(step{PhaseRender, "render-b", &ran})
	r.Register(step{PhaseInput, "input", &ran})
	assert.Equal(t, 5, r.Len())

	r.Tick(time.Millisecond)
	assert.Equal(t, []string{"input", "native", "render-a", "render-b", "cleanup"}, ran)
	assert.Equal(t, uint64(1), r.Frames())

	ran = nil
	r.TickPhase(PhaseRender, 0)
	assert.Equal(t, []string{"render-a", "render-b"}, ran)
	assert.Equal(t, uint64(1), r.Frames())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "native", PhaseNative.String())
	assert.Equal(t, "unknown", Phase(42).String())
}
