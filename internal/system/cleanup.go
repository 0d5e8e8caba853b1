package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/broken-bytes/Playground/internal/core/ecs"
	coresys "github.com/broken-bytes/Playground/internal/core/system"
)

// CleanupSystem deletes the per-frame tagged entities at tick end.
// Phase 3 (Cleanup).
type CleanupSystem struct {
	world *ecs.World
	tags  []string
	log   *zap.Logger
}

func NewCleanupSystem(world *ecs.World, log *zap.Logger, tags ...string) *CleanupSystem {
	return &CleanupSystem{world: world, tags: tags, log: log}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	for _, tag := range s.tags {
		if err := s.world.DeleteEntitiesWithTag(tag); err != nil {
			s.log.Warn("cleanup", zap.String("tag", tag), zap.Error(err))
		}
	}
}
