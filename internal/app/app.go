package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/xpcollage/server/internal/controller"
	"github.com/xpcollage/server/internal/repository/connection/inmemory"
	fileAfero "github.com/xpcollage/server/internal/repository/file/afero"
	mediaRedis "github.com/xpcollage/server/internal/repository/media/redis"
	"github.com/xpcollage/server/internal/service/desktop"
	"github.com/xpcollage/server/pkg/ctxlogger"
	"github.com/xpcollage/server/pkg/redisclient"
)

const shutdownTimeout = 30 * time.Second

type AppConfig struct {
	Host          string        `json:"host"`
	Port          int           `json:"port"`
	LogLevel      string        `json:"log_level"`
	MediaDir      string        `json:"media_dir"`
	MediaTTL      time.Duration `json:"media_ttl"`
	UploadLimitMB int           `json:"upload_limit_mb"`
	RedisPort     int           `json:"redis_port"`
	RedisHost     string        `json:"redis_host"`
	RedisPassword string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	var errs []error
	if cfg.Port < 1 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535"))
	}
	if cfg.MediaDir == "" {
		errs = append(errs, fmt.Errorf("media dir must not be empty"))
	}
	if cfg.MediaTTL <= 0 {
		errs = append(errs, fmt.Errorf("media ttl must be greater than 0"))
	}
	if cfg.UploadLimitMB < 1 {
		errs = append(errs, fmt.Errorf("upload limit must be greater than 0"))
	}
	if _, err := parseLogLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return level, fmt.Errorf("invalid log level %q", s)
	}

	return level, nil
}

func newLogger(cfg *AppConfig) (*slog.Logger, error) {
	logLevel, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(h), nil
}

// newHandler wires repositories, the desktop service and the controller.
func newHandler(cfg *AppConfig, rc *redis.Client, fsys afero.Fs, logger *slog.Logger) (http.Handler, error) {
	fileRepo, err := fileAfero.NewRepo(fsys, cfg.MediaDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create file repo: %w", err)
	}

	mediaRepo := mediaRedis.NewRepo(rc, cfg.MediaTTL, logger)
	connectionRepo := inmemory.NewRepo(logger)
	desktopService := desktop.NewService(mediaRepo, fileRepo, logger)
	controller := controller.NewController(desktopService, connectionRepo, logger, int64(cfg.UploadLimitMB)<<20)

	return controller.GetMux(), nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	handler, err := newHandler(cfg, rc, afero.NewOsFs(), logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)
	defer serverStopCtx()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sig)

	shutdownErr := make(chan error, 1)
	go func() {
		select {
		case s := <-sig:
			logger.InfoContext(serverCtx, "shutting down", "signal", s.String())
		case <-serverCtx.Done():
			logger.InfoContext(serverCtx, "shutting down", "reason", serverCtx.Err())
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdownErr <- server.Shutdown(shutdownCtx)
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}
