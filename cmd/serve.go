package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/anoixa/photo-relay/api/core"
	"github.com/anoixa/photo-relay/config"
	"github.com/anoixa/photo-relay/internal/app"
	"github.com/anoixa/photo-relay/utils"
)

const shutdownTimeout = 5 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start API server",
	Run: func(cmd *cobra.Command, args []string) {
		RunServer()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func RunServer() {
	config.InitConfig()
	cfg := config.Get()
	utils.InitLogger(cfg.LogLevel)

	container := app.NewContainer(cfg)
	if err := container.Init(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize container")
	}
	log.Info().
		Str("database", container.GetDatabaseFactory().GetProvider().Name()).
		Str("storage", container.GetStorageFactory().GetDefaultName()).
		Str("cache", container.GetCacheFactory().Name()).
		Msg("Components initialized")

	deps := &core.ServerDependencies{
		Config:          cfg,
		DatabaseFactory: container.GetDatabaseFactory(),
		StorageFactory:  container.GetStorageFactory(),
		CacheFactory:    container.GetCacheFactory(),
		Layer:           container.GetBroadcastLayer(),
		PhotoService:    container.PhotoService,
		Serializer:      container.Serializer,
	}

	// 启动gin
	server, cleanup := core.StartServer(deps)
	utils.SafeGo("http-server", func() {
		log.Info().Str("addr", cfg.Addr()).Msg("Server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	})

	// 处理退出signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 关闭广播层，断开所有 websocket 连接
	container.GetBroadcastLayer().Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	if cleanup != nil {
		cleanup()
	}

	if err := container.Close(); err != nil {
		log.Error().Err(err).Msg("Error closing container")
	}

	log.Info().Msg("Server exited successfully")
}
