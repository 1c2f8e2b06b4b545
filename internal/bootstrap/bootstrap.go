// Package bootstrap provides dependency initialization for the ReelChain API.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maauso/reelchain-api/internal/config"
	"github.com/maauso/reelchain-api/internal/frame"
	"github.com/maauso/reelchain-api/internal/gemini"
	"github.com/maauso/reelchain-api/internal/generator"
	"github.com/maauso/reelchain-api/internal/job"
	"github.com/maauso/reelchain-api/internal/luma"
	"github.com/maauso/reelchain-api/internal/motion"
	"github.com/maauso/reelchain-api/internal/openai"
	"github.com/maauso/reelchain-api/internal/storage"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	Service *job.Service
	Cleanup *job.CleanupScheduler
	// LocalFrames is set when frames are hosted by this process.
	LocalFrames *storage.LocalStorage

	closers []func() error
}

// Close releases store connections.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{}

	store, err := deps.initJobStore(ctx, cfg, logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	publisher, err := deps.initPublisher(ctx, cfg, logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	caps, err := initCapabilities(ctx, cfg, publisher, logger)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	orch := job.NewOrchestrator(store, caps, logger)
	deps.Service = job.NewService(store, orch, logger)

	var cleanupOpts []job.CleanupOption
	if deps.LocalFrames != nil {
		cleanupOpts = append(cleanupOpts, job.WithPruner(deps.LocalFrames))
	}
	deps.Cleanup, err = job.NewCleanupScheduler(deps.Service, cfg.Retention(), cfg.CleanupSchedule, logger, cleanupOpts...)
	if err != nil {
		_ = deps.Close()
		return nil, err
	}

	return deps, nil
}

// initJobStore creates the job store selected by JOB_STORE.
func (d *Dependencies) initJobStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (job.Store, error) {
	switch cfg.JobStore {
	case config.JobStoreRedis:
		client, err := job.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("create redis job store: %w", err)
		}
		d.closers = append(d.closers, client.Close)
		logger.Info("redis job store configured")
		return job.NewRedisStore(client), nil

	case config.JobStorePostgres:
		db, err := job.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("create postgres job store: %w", err)
		}
		d.closers = append(d.closers, db.Close)
		store := job.NewPostgresStore(db)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		logger.Info("postgres job store configured")
		return store, nil

	default:
		logger.Info("in-memory job store configured")
		return job.NewMemoryStore(), nil
	}
}

// initPublisher creates the frame hosting backend selected by IMAGE_HOST.
func (d *Dependencies) initPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Publisher, error) {
	switch cfg.ImageHost {
	case config.ImageHostS3:
		s3Store, err := storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 frame hosting configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil

	case config.ImageHostFreeImage:
		logger.Info("freeimage.host frame hosting configured")
		return storage.NewFreeImageHost(cfg.FreeImageAPIKey), nil

	default:
		local, err := storage.NewLocalStorage(cfg.FramesDir, cfg.PublicBaseURL)
		if err != nil {
			return nil, fmt.Errorf("create local storage: %w", err)
		}
		d.LocalFrames = local
		logger.Info("local frame hosting configured",
			slog.String("frames_dir", local.Dir()),
			slog.String("public_base_url", cfg.PublicBaseURL),
		)
		return local, nil
	}
}

// initCapabilities builds the provider clients behind the pipeline ports.
func initCapabilities(ctx context.Context, cfg *config.Config, publisher storage.Publisher, logger *slog.Logger) (job.Capabilities, error) {
	lumaClient, err := luma.NewClient(
		luma.WithAPIKey(cfg.LumaAPIKey),
		luma.WithBaseURL(cfg.LumaBaseURL),
	)
	if err != nil {
		return job.Capabilities{}, fmt.Errorf("create Luma client: %w", err)
	}

	geminiClient, err := gemini.NewClient(ctx,
		gemini.WithAPIKey(cfg.GoogleAPIKey),
		gemini.WithModel(cfg.GeminiModel),
		gemini.WithBaseURL(cfg.GeminiBaseURL),
	)
	if err != nil {
		return job.Capabilities{}, fmt.Errorf("create Gemini client: %w", err)
	}

	openaiClient, err := openai.NewClient(
		openai.WithAPIKey(cfg.OpenAIAPIKey),
		openai.WithBaseURL(cfg.OpenAIBaseURL),
		openai.WithModel(cfg.OpenAIImageModel),
	)
	if err != nil {
		return job.Capabilities{}, fmt.Errorf("create OpenAI client: %w", err)
	}

	var lumaOpts []generator.LumaOption
	if cfg.LumaCallbackURL != "" {
		lumaOpts = append(lumaOpts, generator.WithCallbackURL(cfg.LumaCallbackURL))
	}
	video := generator.NewSynthesizer(
		generator.NewLumaAdapter(lumaClient, lumaOpts...),
		logger,
		generator.WithInterval(cfg.PollInterval),
		generator.WithMaxAttempts(cfg.PollMaxAttempts),
	)

	frames := frame.NewSynthesizer(openaiClient, publisher, frame.WithLogger(logger))

	return job.Capabilities{
		Frames:        frames,
		Continuations: frames,
		Motion:        motion.NewAnalyzer(geminiClient, motion.WithLogger(logger)),
		Video:         video,
	}, nil
}
