package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/broken-bytes/Playground/internal/config"
	"github.com/broken-bytes/Playground/internal/core/ecs"
	"github.com/broken-bytes/Playground/internal/core/event"
	"github.com/broken-bytes/Playground/internal/data"
	"github.com/broken-bytes/Playground/internal/persist"
	"github.com/broken-bytes/Playground/internal/scripting"
	"github.com/broken-bytes/Playground/internal/system"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		scenePath string
		sceneName string
		frames    uint64
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load components, scripts and a scene, then run the frame loop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if scenePath != "" {
				a.cfg.Data.Scene = scenePath
			}
			if frames > 0 {
				a.cfg.Engine.MaxFrames = frames
			}
			return a.run(cmd.Context(), sceneName)
		},
	}
	cmd.Flags().StringVar(&scenePath, "scene", "", "scene YAML to apply (overrides [data] scene)")
	cmd.Flags().StringVar(&sceneName, "scene-db", "", "stored scene to apply from the database")
	cmd.Flags().Uint64Var(&frames, "frames", 0, "stop after this many frames")
	return cmd
}

func (a *app) run(ctx context.Context, storedScene string) error {
	cfg, log := a.cfg, a.log
	if ctx == nil {
		ctx = context.Background()
	}
	if stop := startProfile(cfg.Profile); stop != nil {
		defer stop()
	}

	printBanner(cfg.Engine)

	// 1. Native engine and built-in pipeline
	printSection("Engine")
	w, err := a.openWorld()
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	defer w.Close()
	printOK(fmt.Sprintf("%s engine ready", cfg.Engine.Mode))

	var sched ecs.Schedule
	pipeline, err := system.Setup(w, &sched, nil, log)
	if err != nil {
		return fmt.Errorf("built-in systems: %w", err)
	}
	subscribeFrameLog(pipeline.Bus, log, cfg.Engine.TickRate)

	// 2. Data-declared components
	printSection("Components")
	if cfg.Data.Components != "" {
		m, err := data.LoadManifest(cfg.Data.Components)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Warn("component manifest not found", zap.String("path", cfg.Data.Components))
		case err != nil:
			return err
		default:
			if _, err := m.Register(w); err != nil {
				return fmt.Errorf("component manifest: %w", err)
			}
			printStat("Manifest components", m.Count())
		}
	}

	// 3. Scripts
	if cfg.Scripting.Enabled {
		lua, err := scripting.NewEngine(cfg.Scripting.Dir, w, log.Named("lua"))
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer lua.Close()
		sched.Add(lua.Systems()...)
		printStat("Script components", len(lua.Components()))
	}
	printStat("Registered components", w.Registry().Len())

	// 4. Systems in (phase, order) sequence
	printSection("Systems")
	systems, err := sched.Register(w)
	if err != nil {
		return fmt.Errorf("systems: %w", err)
	}
	for _, s := range systems {
		printStat(fmt.Sprintf("%s (%s)", s.Name, s.Phase), len(s.Filters))
	}

	// 5. Scene
	if err := a.applyScene(ctx, w, storedScene); err != nil {
		return err
	}
	fmt.Println()

	// 6. Frame loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	ticker := time.NewTicker(cfg.Engine.TickRate)
	defer ticker.Stop()

	printSection("Running")
	printReady(fmt.Sprintf("frame loop started (tick: %s)", cfg.Engine.TickRate))
	fmt.Println()

	runner := pipeline.Runner
	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Engine.TickRate)
			if pipeline.Progress.Stopped() {
				// Flush so the stop event and the last frame's reports are seen.
				pipeline.Bus.SwapBuffers()
				pipeline.Bus.DispatchAll()
				return nil
			}
			if cfg.Engine.MaxFrames > 0 && runner.Frames() >= cfg.Engine.MaxFrames {
				log.Info("frame limit reached", zap.Uint64("frames", runner.Frames()))
				return nil
			}
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// subscribeFrameLog reports draw-call throughput about once a second and
// every failed submission.
func subscribeFrameLog(bus *event.Bus, log *zap.Logger, tick time.Duration) {
	every := uint64(time.Second / tick)
	if every == 0 {
		every = 1
	}
	var drawCalls int
	event.Subscribe(bus, func(ev event.FrameSubmitted) {
		drawCalls += ev.DrawCalls
		if ev.Frame%every == 0 {
			log.Debug("frames submitted", zap.Uint64("frame", ev.Frame), zap.Int("draw_calls", drawCalls))
			drawCalls = 0
		}
	})
	event.Subscribe(bus, func(ev event.SubmitFailed) {
		log.Warn("frame dropped", zap.Uint64("frame", ev.Frame), zap.Error(ev.Err))
	})
	event.Subscribe(bus, func(ev event.EngineStopped) {
		log.Info("native engine stopped", zap.Uint64("frame", ev.Frame))
	})
}

func (a *app) applyScene(ctx context.Context, w *ecs.World, stored string) error {
	var (
		scene *data.Scene
		err   error
	)
	switch {
	case stored != "":
		db, derr := a.openDB(ctx)
		if derr != nil {
			return derr
		}
		defer db.Close()
		scene, err = persist.NewSceneRepo(db).Load(ctx, stored)
	case a.cfg.Data.Scene != "":
		scene, err = data.LoadScene(a.cfg.Data.Scene)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("scene: %w", err)
	}
	printSection("Scene")
	ents, err := data.Apply(w, scene)
	if err != nil {
		return err
	}
	printStat(scene.Name, len(ents))
	return nil
}

// openDB connects to the scene store and applies pending migrations.
func (a *app) openDB(ctx context.Context) (*persist.DB, error) {
	if !a.cfg.Database.Enabled {
		return nil, errors.New("database disabled: set [database] enabled = true")
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	db, err := persist.NewDB(ctx, a.cfg.Database, a.log)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return db, nil
}

// startProfile starts the configured profiler and returns its stop func.
func startProfile(cfg config.ProfileConfig) func() {
	var mode func(*profile.Profile)
	switch cfg.Mode {
	case "cpu":
		mode = profile.CPUProfile
	case "mem":
		mode = profile.MemProfile
	case "block":
		mode = profile.BlockProfile
	case "mutex":
		mode = profile.MutexProfile
	case "trace":
		mode = profile.TraceProfile
	default:
		return nil
	}
	p := profile.Start(mode, profile.ProfilePath(cfg.Dir), profile.NoShutdownHook)
	return p.Stop
}
