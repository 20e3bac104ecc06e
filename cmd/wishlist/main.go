package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/vbonduro/wishlist/internal/auth"
	"github.com/vbonduro/wishlist/internal/config"
	"github.com/vbonduro/wishlist/internal/db"
	"github.com/vbonduro/wishlist/internal/logging"
	"github.com/vbonduro/wishlist/internal/photostore"
	"github.com/vbonduro/wishlist/internal/photostore/local"
	"github.com/vbonduro/wishlist/internal/photostore/s3store"
	"github.com/vbonduro/wishlist/internal/service"
	"github.com/vbonduro/wishlist/internal/store"
	"github.com/vbonduro/wishlist/internal/web"
	"github.com/vbonduro/wishlist/internal/web/templates"
)

// testModeSecret signs sessions when WISHLIST_TEST_MODE=1 and no secret is set.
const testModeSecret = "wishlist-test-mode-secret"

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	if len(os.Args) > 1 && os.Args[1] == "createuser" {
		if err := createUser(database, os.Args[2:]); err != nil {
			logger.Error("createuser failed", "error", err)
			fmt.Fprintln(os.Stderr, err)
		}
		return
	}

	if err := serve(cfg, database, logger); err != nil {
		logger.Error("server error", "error", err)
	}
}

func serve(cfg *config.Config, database *sql.DB, logger *slog.Logger) error {
	ctx := context.Background()

	secret := cfg.SessionSecret
	if secret == "" {
		if !cfg.TestMode {
			return errors.New("SESSION_SECRET is required")
		}
		logger.Warn("SESSION_SECRET not set; using the test mode secret")
		secret = testModeSecret
	}

	photoStg, err := newPhotoStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize photo store: %w", err)
	}

	revoker, closeRevoker, err := newRevoker(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize session revocation: %w", err)
	}
	defer closeRevoker()

	sessions := auth.NewSessionManager(secret, cfg.SessionTTL, revoker)
	authService := auth.NewService(store.NewUserStore(database), sessions)
	placeService := service.NewPlaceService(store.NewPlaceStore(database), photoStg, logger)

	server := web.NewServer(placeService, authService, templates.FS, logger, web.Options{
		SecureCookies:      cfg.SecureCookies,
		LoginRatePerMinute: cfg.LoginRatePerMinute,
		LoginBurst:         cfg.LoginBurst,
		TrustProxyHeaders:  cfg.TrustProxyHeaders,
		DB:                 database,
	})
	return server.ListenAndServe(cfg.ListenAddr)
}

func newPhotoStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (photostore.PhotoStore, error) {
	switch cfg.PhotoBackend {
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, errors.New("S3_BUCKET is required when PHOTO_BACKEND=s3")
		}
		logger.Info("using S3 photo backend", "bucket", cfg.S3Bucket, "endpoint", cfg.S3Endpoint)
		return s3store.NewS3PhotoStore(ctx, s3store.Options{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			UsePathStyle: cfg.S3UsePathStyle,
		})
	default:
		logger.Info("using local photo backend", "path", cfg.PhotoPath)
		return local.NewLocalPhotoStore(cfg.PhotoPath)
	}
}

func newRevoker(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.Revoker, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Info("using in-memory session revocation")
		return auth.NewMemoryRevoker(), func() {}, nil
	}

	r, err := auth.NewRedisRevoker(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using redis session revocation", "addr", cfg.RedisAddr)
	return r, func() {
		if err := r.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}, nil
}

func createUser(database *sql.DB, args []string) error {
	fs := flag.NewFlagSet("createuser", flag.ContinueOnError)
	username := fs.String("username", "", "login name")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Session settings are irrelevant here; only the user store is used.
	svc := auth.NewService(store.NewUserStore(database), nil)
	user, err := svc.CreateUser(context.Background(), *username, *password)
	if err != nil {
		return err
	}
	fmt.Printf("created user %q (id %d)\n", user.Username, user.ID)
	return nil
}
