package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/broken-bytes/Playground/internal/config"
	"github.com/broken-bytes/Playground/internal/core/ecs"
	"github.com/broken-bytes/Playground/internal/native"
	"github.com/broken-bytes/Playground/internal/native/ffi"
	"github.com/broken-bytes/Playground/internal/native/host"
)

const defaultConfigPath = "config/playground.toml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every subcommand shares: the loaded config and logger.
type app struct {
	cfgPath string
	cfg     *config.Config
	log     *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "playground",
		Short:         "Drive an archetype ECS engine from Go and Lua",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.init()
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgPath, "config", "c", "",
		"config file (default $PLAYGROUND_CONFIG or "+defaultConfigPath+")")
	root.AddCommand(newRunCmd(a), newLayoutCmd(a), newSceneCmd(a))
	return root
}

// init loads the config and builds the logger. Without an explicit path a
// missing default file falls back to built-in defaults.
func (a *app) init() error {
	path, explicit := a.cfgPath, a.cfgPath != ""
	if !explicit {
		if p := os.Getenv("PLAYGROUND_CONFIG"); p != "" {
			path, explicit = p, true
		} else {
			path = defaultConfigPath
		}
	}
	cfg, err := config.Load(path)
	switch {
	case err == nil:
	case !explicit && errors.Is(err, fs.ErrNotExist):
		cfg = config.Default()
	default:
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg

	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.log = log
	return nil
}

// openWorld creates the native engine selected by [engine] and binds a World
// to it.
func (a *app) openWorld() (*ecs.World, error) {
	ec := a.cfg.Engine
	var eng native.Engine
	switch ec.Mode {
	case "library":
		lib, err := ffi.Open(ec.Library, a.log)
		if err != nil {
			return nil, err
		}
		eng = lib
	default:
		workers := ec.Workers
		if workers <= 0 {
			workers = runtime.GOMAXPROCS(0)
		}
		eng = host.New(
			host.WithLogger(a.log.Named("host")),
			host.WithWorkers(workers),
			host.WithMinBatch(ec.MinBatch),
			host.WithCapacity(ec.EntityCapacity),
		)
	}
	return ecs.Open(eng, ecs.WithLogger(a.log), ecs.WithDebugChecks(ec.DebugChecks)), nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
