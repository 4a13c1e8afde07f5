// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/gganwoor/unuscado/internal/cache"
	"github.com/gganwoor/unuscado/internal/config"
	"github.com/gganwoor/unuscado/internal/game"
	"github.com/gganwoor/unuscado/internal/handlers"
)

func main() {
	cmd := &cli.Command{
		Name:  "unuscado",
		Usage: "card game server with countdown chains and attack stacking",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Usage: "trace, debug, info, warn or error (overrides LOG_LEVEL)"},
		},
		Commands: []*cli.Command{serveCommand(), simulateCommand()},
	}
	if err := cmd.Run(context.Background(), os.Args); err != nil {
		logrus.Fatal(err)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP and WebSocket server",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Usage: "listen port (overrides PORT)"},
			&cli.DurationFlag{Name: "ai-delay", Usage: "pause before each bot move (overrides AI_DELAY_MS)"},
			&cli.BoolFlag{Name: "dev-dealer", Usage: "deal the fixed development hands"},
		},
		Action: serve,
	}
}

// loadConfig reads the environment, then lets explicitly set flags win.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg := config.Load()
	if cmd.IsSet("log-level") {
		cfg.LogLevel = cmd.String("log-level")
	}
	if cmd.IsSet("port") {
		cfg.Port = int(cmd.Int("port"))
	}
	if cmd.IsSet("ai-delay") {
		cfg.AIDelay = cmd.Duration("ai-delay")
	}
	if cmd.IsSet("dev-dealer") {
		cfg.DevDealer = cmd.Bool("dev-dealer")
	}
	return cfg, cfg.Validate()
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)
	return logger
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var publisher cache.Publisher = cache.Nop{}
	if cfg.RedisAddr != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			logger.WithError(err).Warn("lifecycle events disabled")
		} else {
			publisher = cache.NewRedisPublisher(rdb, cfg.RedisChannel)
			logger.WithField("channel", cfg.RedisChannel).Info("publishing lifecycle events")
		}
	}
	defer publisher.Close()

	opts := []handlers.ServerOption{
		handlers.WithPublisher(publisher),
		handlers.WithAIDelay(cfg.AIDelay),
		handlers.WithBotCount(cfg.BotCount),
		handlers.WithStoreOptions(game.WithIdleTimeout(cfg.IdleTimeout)),
	}
	if cfg.DevDealer {
		logger.Warn("development dealer enabled")
		opts = append(opts, handlers.WithStoreOptions(game.WithSessionOptions(game.WithDealer(game.DevDealer()))))
	}
	gs := handlers.NewGameServer(logger, opts...)
	hub := handlers.NewHub(logger, gs, cfg.AllowedOrigins)

	go gs.Run(ctx, cfg.SweepInterval)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: handlers.NewRouter(logger, gs, hub, cfg.AllowedOrigins),
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Running on %s", cfg.Addr())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
