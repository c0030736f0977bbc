package application

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gameroomlab/connect4-backend/internal/config"
	"github.com/gameroomlab/connect4-backend/internal/coordinator"
	"github.com/gameroomlab/connect4-backend/internal/registry"
	"github.com/gameroomlab/connect4-backend/internal/repository"
	"github.com/gameroomlab/connect4-backend/internal/repository/storage"
	"github.com/gameroomlab/connect4-backend/transport/rest"
	"github.com/gameroomlab/connect4-backend/transport/websocket"
)

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := conf.Validate(); err != nil {
		return fmt.Errorf("refusing to start: %w", err)
	}

	recordRepo, closeStore, err := newRecordRepository(ctx, conf)
	if err != nil {
		return fmt.Errorf("could not set up game record store: %w", err)
	}

	defer func() {
		if err = closeStore(); err != nil {
			log.Error("could not close record store", "error", err)
		}
	}()

	roomRegistry := registry.New(logger)
	defer roomRegistry.Shutdown()

	hub := websocket.NewHub(logger)
	gameCoordinator := coordinator.New(logger, roomRegistry, recordRepo, hub)
	defer gameCoordinator.Flush()

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		if httpErr := rest.Start(conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run WebSocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, gameCoordinator, hub)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// newRecordRepository builds the configured game-record store. The second
// return closes the underlying connection.
func newRecordRepository(ctx context.Context, conf *config.Config) (repository.GameRecordRepository, func() error, error) {
	switch conf.Records.Driver {
	case config.RecordsDriverRedis:
		client, err := storage.NewRedis(ctx, conf.Records.Redis.GetRedisAddr())
		if err != nil {
			return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
		}

		return repository.NewRedisRecordRepository(client), client.Close, nil

	case config.RecordsDriverSQLite:
		conn, err := storage.NewSQLite(ctx, conf.Records.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("could not open sqlite storage: %w", err)
		}

		return repository.NewSQLiteRecordRepository(conn), conn.Close, nil

	default:
		return nil, nil, fmt.Errorf("%w: unknown driver %q", config.ErrInvalidRecordsConfig, conf.Records.Driver)
	}
}
