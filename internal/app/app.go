package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	httpapp "school_gallery/internal/app/http"
	"school_gallery/internal/config"
	"school_gallery/internal/lib/logger/sl"
	"school_gallery/internal/repository"
	gallery "school_gallery/internal/services/gallery_service"
	storagesvc "school_gallery/internal/services/storage_service"
	filestorage "school_gallery/internal/storage/filestorage"
	"school_gallery/internal/storage/postgresql"
	redisapp "school_gallery/internal/storage/redis"
	"school_gallery/internal/storage/s3storage"
	httprouters "school_gallery/internal/transport/http"
)

type App struct {
	HTTPServer *httpapp.Server

	log   *slog.Logger
	db    *postgresql.Storage
	redis *redisapp.Client
}

func New(ctx context.Context, log *slog.Logger, cfg *config.Config) (*App, error) {
	const op = "app.New"

	db, err := postgresql.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Stop()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	a := &App{log: log, db: db}

	repo := repository.NewRepository(db.Pool())

	slots, err := a.slotRepository(ctx, cfg.Redis)
	if err != nil {
		a.Stop()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	blobs, filesDir, err := blobStorage(ctx, cfg)
	if err != nil {
		a.Stop()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	storageService := storagesvc.NewStorageService(log, slots, repo.Files, blobs, storagesvc.Options{
		SlotTTL:   cfg.Upload.SlotTTL,
		MaxSize:   cfg.FileStorage.MaxSize,
		PublicURL: cfg.HTTP.PublicURL,
	})
	galleryService := gallery.NewGalleryService(log, repo.Events, repo.Images, storageService)

	routers := httprouters.NewRouter(log, galleryService, storageService)
	a.HTTPServer = httpapp.New(log, cfg.TokenSecret, cfg.HTTP.Host, cfg.HTTP.Port, filesDir, routers)

	return a, nil
}

// slotRepository выбирает redis, если он настроен, иначе память процесса
func (a *App) slotRepository(ctx context.Context, cfg config.RedisConf) (repository.SlotRepository, error) {
	if cfg.RedisAddr == "" {
		a.log.Info("redis is not configured, upload slots are kept in memory")
		return repository.NewMemorySlotRepo(time.Minute), nil
	}

	client := redisapp.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := client.HealthCheck(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
	}
	a.redis = client

	return repository.NewRedisSlotRepo(client), nil
}

func blobStorage(ctx context.Context, cfg *config.Config) (filestorage.FileStorage, string, error) {
	switch cfg.FileStorage.Backend {
	case config.BackendS3:
		s, err := s3storage.New(ctx,
			cfg.S3.Endpoint, cfg.S3.AccessKey, cfg.S3.SecretKey,
			cfg.S3.Bucket, cfg.S3.Region, cfg.S3.PublicURL,
		)
		return s, "", err
	case config.BackendLocal, "":
		s, err := filestorage.NewLocalFileStorage(cfg.FileStorage.BaseDir, cfg.FileStorage.BaseURL)
		if err != nil {
			return nil, "", err
		}
		return s, s.GetBaseDir(), nil
	default:
		return nil, "", fmt.Errorf("unknown file storage backend %q", cfg.FileStorage.Backend)
	}
}

func (a *App) Stop() {
	const op = "app.Stop"

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Stop(); err != nil {
			a.log.Error("http server stop", slog.String("op", op), sl.Err(err))
		}
	}
	if a.redis != nil {
		a.redis.Close()
	}
	a.db.Stop()
}
