package persist

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/broken-bytes/Playground/internal/config"
	"github.com/broken-bytes/Playground/internal/data"
)

// Runs only against a scratch database: the tables are dropped afterwards.
func testDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("PLAYGROUND_TEST_DSN")
	if dsn == "" {
		t.Skip("PLAYGROUND_TEST_DSN not set")
	}
	ctx := context.Background()
	db, err := NewDB(ctx, config.DatabaseConfig{
		DSN:             dsn,
		MaxOpenConns:    4,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	t.Cleanup(func() {
		assert.NoError(t, db.Reset(context.Background()))
		db.Close()
	})
	return db
}

func TestSceneRepoRoundTrip(t *testing.T) {
	db := testDB(t)
	repo := NewSceneRepo(db)
	ctx := context.Background()

	scene := &data.Scene{
		Name: "demo",
		Tags: []string{"Selected"},
		Entities: []data.SceneEntity{
			{Name: "Body", Components: map[string]map[string]any{
				"Mesh": {"Handle": float64(16), "MeshID": float64(3)},
			}},
			{Name: "Arm", Parent: "Body", Tags: []string{"Selected"}},
		},
	}
	changed, err := repo.Save(ctx, scene)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = repo.Save(ctx, scene)
	require.NoError(t, err)
	assert.False(t, changed, "identical scene is not rewritten")

	got, err := repo.Load(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, scene, got)

	scene.Entities[1].Tags = nil
	changed, err = repo.Save(ctx, scene)
	require.NoError(t, err)
	assert.True(t, changed)
	got, err = repo.Load(ctx, "demo")
	require.NoError(t, err)
	assert.Equal(t, scene, got)

	names, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"demo"}, names)

	require.NoError(t, repo.Delete(ctx, "demo"))
	_, err = repo.Load(ctx, "demo")
	assert.ErrorIs(t, err, ErrSceneNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "demo"), ErrSceneNotFound)
}

func TestChecksumTracksContent(t *testing.T) {
	a := &data.Scene{Name: "demo", Entities: []data.SceneEntity{{Name: "Body"}}}
	b := &data.Scene{Name: "demo", Entities: []data.SceneEntity{{Name: "Body"}}}
	sa, err := Checksum(a)
	require.NoError(t, err)
	sb, err := Checksum(b)
	require.NoError(t, err)
	assert.Len(t, sa, 32)
	assert.Equal(t, sa, sb)

	b.Entities[0].Parent = "Root"
	sb, err = Checksum(b)
	require.NoError(t, err)
	assert.NotEqual(t, sa, sb)
}
