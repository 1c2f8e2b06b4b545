package bootstrap

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/reelchain-api/internal/config"
	"github.com/maauso/reelchain-api/internal/job"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LumaAPIKey:       "luma",
		LumaBaseURL:      "http://127.0.0.1:1",
		OpenAIAPIKey:     "openai",
		OpenAIBaseURL:    "http://127.0.0.1:1",
		OpenAIImageModel: "gpt-image-1",
		GoogleAPIKey:     "google",
		GeminiModel:      "gemini-2.0-flash-exp",
		GeminiBaseURL:    "http://127.0.0.1:1",
		ImageHost:        config.ImageHostLocal,
		PublicBaseURL:    "http://localhost:8080",
		FramesDir:        t.TempDir(),
		JobStore:         config.JobStoreMemory,
		JobRetentionDays: 7,
		CleanupSchedule:  "@daily",
		PollMaxAttempts:  120,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewDependencies_MemoryAndLocal(t *testing.T) {
	cfg := testConfig(t)

	deps, err := NewDependencies(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	require.NotNil(t, deps.Service)
	require.NotNil(t, deps.Cleanup)
	require.NotNil(t, deps.LocalFrames)
	assert.Equal(t, cfg.FramesDir, deps.LocalFrames.Dir())

	created, err := deps.Service.CreateJob(context.Background(), job.CreateInput{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, job.StatusQueued, created.Status)
}

func TestNewDependencies_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.JobStore = config.JobStoreRedis
	cfg.RedisURL = "redis://" + mr.Addr() + "/0"

	deps, err := NewDependencies(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	created, err := deps.Service.CreateJob(context.Background(), job.CreateInput{Prompt: "p"})
	require.NoError(t, err)
	assert.True(t, mr.Exists("reelchain:job:"+created.ID))
}

func TestNewDependencies_FreeImage(t *testing.T) {
	cfg := testConfig(t)
	cfg.ImageHost = config.ImageHostFreeImage
	cfg.FreeImageAPIKey = "key"

	deps, err := NewDependencies(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close() })

	assert.Nil(t, deps.LocalFrames)
}

func TestNewDependencies_InvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.CleanupSchedule = "whenever"

	_, err := NewDependencies(context.Background(), cfg, testLogger())
	assert.Error(t, err)
}

func TestNewDependencies_InvalidRedisURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.JobStore = config.JobStoreRedis
	cfg.RedisURL = "not-a-url"

	_, err := NewDependencies(context.Background(), cfg, testLogger())
	assert.Error(t, err)
}
