package persist

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/broken-bytes/Playground/internal/data"
)

// ErrSceneNotFound is returned by Load for an unknown scene name.
var ErrSceneNotFound = errors.New("scene not found")

// SceneRepo stores scene documents. Component values are kept as JSONB field
// maps, one row per entity in scene order.
type SceneRepo struct {
	db *DB
}

func NewSceneRepo(db *DB) *SceneRepo {
	return &SceneRepo{db: db}
}

// Checksum is the BLAKE2b-256 digest of the scene's YAML encoding.
func Checksum(s *data.Scene) ([]byte, error) {
	raw, err := s.Marshal()
	if err != nil {
		return nil, err
	}
	sum := blake2b.Sum256(raw)
	return sum[:], nil
}

// Save replaces the stored scene with s. It reports false without writing
// when the stored copy has the same checksum.
func (r *SceneRepo) Save(ctx context.Context, s *data.Scene) (bool, error) {
	sum, err := Checksum(s)
	if err != nil {
		return false, fmt.Errorf("checksum scene %s: %w", s.Name, err)
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	var stored []byte
	err = tx.QueryRow(ctx, `SELECT checksum FROM scenes WHERE name = $1 FOR UPDATE`, s.Name).Scan(&stored)
	switch {
	case err == nil && bytes.Equal(stored, sum):
		r.db.log.Debug("scene unchanged", zap.String("scene", s.Name))
		return false, nil
	case err != nil && !errors.Is(err, pgx.ErrNoRows):
		return false, fmt.Errorf("save scene %s: %w", s.Name, err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO scenes (name, tags, checksum, updated_at) VALUES ($1, $2, $3, now())
		 ON CONFLICT (name) DO UPDATE SET tags = EXCLUDED.tags, checksum = EXCLUDED.checksum, updated_at = now()`,
		s.Name, nonNil(s.Tags), sum,
	); err != nil {
		return false, fmt.Errorf("save scene %s: %w", s.Name, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM scene_entities WHERE scene_name = $1`, s.Name); err != nil {
		return false, fmt.Errorf("clear scene %s: %w", s.Name, err)
	}

	batch := &pgx.Batch{}
	for i, e := range s.Entities {
		comps := e.Components
		if comps == nil {
			comps = map[string]map[string]any{}
		}
		batch.Queue(
			`INSERT INTO scene_entities (scene_name, position, name, parent, tags, components)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			s.Name, i, e.Name, e.Parent, nonNil(e.Tags), comps)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return false, fmt.Errorf("save scene %s entities: %w", s.Name, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	r.db.log.Info("scene saved", zap.String("scene", s.Name), zap.Int("entities", len(s.Entities)))
	return true, nil
}

// Load reads a stored scene.
func (r *SceneRepo) Load(ctx context.Context, name string) (*data.Scene, error) {
	s := &data.Scene{Name: name}
	err := r.db.Pool.QueryRow(ctx, `SELECT tags FROM scenes WHERE name = $1`, name).Scan(&s.Tags)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSceneNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Pool.Query(ctx,
		`SELECT name, parent, tags, components FROM scene_entities
		 WHERE scene_name = $1 ORDER BY position`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var e data.SceneEntity
		if err := rows.Scan(&e.Name, &e.Parent, &e.Tags, &e.Components); err != nil {
			return nil, err
		}
		if len(e.Tags) == 0 {
			e.Tags = nil
		}
		if len(e.Components) == 0 {
			e.Components = nil
		}
		s.Entities = append(s.Entities, e)
	}
	if len(s.Tags) == 0 {
		s.Tags = nil
	}
	return s, rows.Err()
}

// List returns stored scene names, sorted.
func (r *SceneRepo) List(ctx context.Context) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT name FROM scenes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Delete removes a scene and its entities.
func (r *SceneRepo) Delete(ctx context.Context, name string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM scenes WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrSceneNotFound, name)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
