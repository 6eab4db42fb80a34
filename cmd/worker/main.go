package main

import (
	"context"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deposit-bridge/internal/bridge"
	"deposit-bridge/internal/bridge/config"
	"deposit-bridge/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// 初始化配置文件
	cfg := config.InitConfig()

	// 初始化 trace provider
	shutdownTrace := logger.InitTrace("deposit-bridge", "worker")
	ctx, span := logger.StartSpan(context.Background(), "main", "main")
	defer span.End()

	// 创建 root logger 并注入 trace 上下文
	rootLogger := logger.NewLogger("worker")
	logger.SetLogLevel(cfg.Log.Level)
	tl := logger.WithTrace(ctx, rootLogger)
	defer func() { _ = tl.Sync() }()

	// 启动配置热加载监听
	go config.WatchConfig(&cfg)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	core, err := bridge.New(ctx, cfg, tl)
	if err != nil {
		tl.Fatal("Failed to init bridge core", zap.Error(err))
	}
	tl.Info("Starting deposit-bridge worker...")
	core.Start(ctx)

	// 监听操作系统信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	tl.Info("Received shutdown signal, starting graceful shutdown...")
	cancel()

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer stopCancel()
	core.Stop(stopCtx)
	_ = shutdownTrace(stopCtx)
}
