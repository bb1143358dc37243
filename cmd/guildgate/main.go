package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"guildgate/internal/bot"
	"guildgate/internal/config"
	"guildgate/internal/reconcile"
	"guildgate/internal/schedule"
	"guildgate/internal/storage"
	"guildgate/internal/web"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := config.BuildLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("storage init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	reconciler := reconcile.New(store, logger)

	botSvc, err := bot.New(cfg, logger, store, reconciler)
	if err != nil {
		logger.Fatal("bot init failed", zap.Error(err))
	}

	if err := botSvc.Start(); err != nil {
		logger.Fatal("bot start failed", zap.Error(err))
	}
	logger.Info("bot started", zap.String("guild_id", cfg.GuildID))

	scheduler, err := schedule.New(cfg.Announce, cfg.GuildID, store, botSvc, logger)
	if err != nil {
		logger.Fatal("scheduler init failed", zap.Error(err))
	}
	scheduler.Start()
	logger.Info("announcement scheduler started", zap.String("spec", cfg.Announce.Spec), zap.String("timezone", cfg.Announce.Timezone))

	var server *http.Server
	if cfg.Web.Enabled {
		webSrv, err := web.New(cfg.Web, cfg.GuildID, store, botSvc, logger)
		if err != nil {
			logger.Fatal("web init failed", zap.Error(err))
		}
		server = &http.Server{Addr: cfg.Web.Addr, Handler: webSrv.Handler()}
		go func() {
			logger.Info("dashboard enabled", zap.String("addr", cfg.Web.Addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("dashboard server error", zap.Error(err))
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown requested")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if server != nil {
		_ = server.Shutdown(ctx)
	}
	scheduler.Stop()
	botSvc.Close(ctx)
}
