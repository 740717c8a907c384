// レストランAPIのエントリポイント。
// 設定を読み込み、データベースのマイグレーションを適用してからHTTPサーバーを起動する。
// SIGINT / SIGTERM を受け取るとグレースフルシャットダウンする。
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/restaurant-api/internal/api"
	"github.com/nao1215/restaurant-api/internal/config"
	"github.com/nao1215/restaurant-api/internal/store"
	"github.com/nao1215/restaurant-api/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("ロガーの初期化に失敗: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := run(cfg, zl); err != nil {
		zl.Error("レストランAPIが異常終了しました", zap.Error(err))
		_ = zl.Sync()
		os.Exit(1)
	}
}

// run はストアを開いて管理者を用意し、サーバーを起動してシグナルを受け取るまで待機する。
func run(cfg *config.Config, zl *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DatabasePath, zl)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			zl.Warn("データベースのクローズに失敗", zap.Error(err))
		}
	}()

	if err := api.ProvisionAdmin(ctx, st, cfg, zl); err != nil {
		return err
	}

	zl.Info("レストランAPIを起動します",
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.DatabasePath),
		zap.Strings("protected_groups", cfg.ProtectedGroups),
	)
	return api.NewServer(cfg, st, zl).Run(ctx)
}
