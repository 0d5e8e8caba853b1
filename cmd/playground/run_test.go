package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/broken-bytes/Playground/internal/config"
	"github.com/broken-bytes/Playground/internal/data"
)

func TestSampleConfigLoads(t *testing.T) {
	cfg, err := config.Load("../../config/playground.toml")
	require.NoError(t, err)
	assert.Equal(t, "host", cfg.Engine.Mode)
	assert.Equal(t, 16*time.Millisecond, cfg.Engine.TickRate)
	assert.False(t, cfg.Database.Enabled)
}

func TestRunSampleContent(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.TickRate = time.Millisecond
	cfg.Engine.MaxFrames = 5
	cfg.Engine.DebugChecks = true
	cfg.Scripting.Dir = "../../scripts"
	cfg.Data.Components = "../../data/components.yaml"
	cfg.Data.Scene = "../../data/scenes/demo.yaml"

	a := &app{cfg: cfg, log: zaptest.NewLogger(t)}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, a.run(ctx, ""))
}

func TestStoredSceneNeedsDatabase(t *testing.T) {
	cfg := config.Default()
	cfg.Scripting.Enabled = false
	cfg.Data.Components = ""
	a := &app{cfg: cfg, log: zaptest.NewLogger(t)}
	assert.Error(t, a.run(context.Background(), "demo"))
}

func TestSampleSceneParses(t *testing.T) {
	s, err := data.LoadScene("../../data/scenes/demo.yaml")
	require.NoError(t, err)
	assert.Equal(t, "demo", s.Name)
	require.Len(t, s.Entities, 3)
	assert.Equal(t, "Planet", s.Entities[2].Parent)
}
