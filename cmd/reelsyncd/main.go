package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	cfgpkg "reelsync/internal/config"
	"reelsync/internal/diag"
	"reelsync/internal/server"
)

// 导出服务守护进程。
// 配置层叠：内置默认 → --config YAML → REELSYNC_* 环境变量 → 旗标。
func main() {
	os.Exit(run())
}

func run() int {
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	_ = godotenv.Load()

	var (
		flagConfig   string
		flagListen   string
		flagDataDir  string
		flagBaseURL  string
		flagLogLevel string
	)
	flag.StringVar(&flagConfig, "config", "", "配置文件路径（YAML）；缺省读取 ./reelsync.yaml（若存在）")
	flag.StringVar(&flagListen, "listen", "", "监听地址（覆盖配置）")
	flag.StringVar(&flagDataDir, "data-dir", "", "数据目录（覆盖配置）")
	flag.StringVar(&flagBaseURL, "public-base-url", "", "对外基础 URL（覆盖配置）")
	flag.StringVar(&flagLogLevel, "log-level", "", "日志级别 debug|info|warn|error（覆盖配置）")
	flag.Parse()

	cfg := cfgpkg.Defaults()
	cfgPath := strings.TrimSpace(flagConfig)
	if cfgPath == "" {
		if _, err := os.Stat("reelsync.yaml"); err == nil {
			cfgPath = "reelsync.yaml"
		}
	}
	if cfgPath != "" {
		fileCfg, err := cfgpkg.LoadYAML(cfgPath, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
			return 3
		}
		cfg = cfgpkg.Merge(cfg, fileCfg)
	}
	cfg = cfgpkg.Merge(cfg, cfgpkg.EnvOverlay(os.Environ()))

	var flagOver cfgpkg.Config
	flagOver.Listen = flagListen
	flagOver.DataDir = flagDataDir
	flagOver.PublicBaseURL = flagBaseURL
	flagOver.Logging.Level = flagLogLevel
	cfg = cfgpkg.Merge(cfg, flagOver)

	if err := cfgpkg.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "配置校验失败: %v\n", err)
		return 3
	}

	log := diag.NewLogger(cfg.Logging.Level)
	defer func() { _ = log.Sync() }()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Error("main: data dir", zap.Error(err))
		return 1
	}

	srv := server.New(cfg, nil, log.With(zap.String("comp", "server")))
	httpSrv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("main: listening", zap.String("addr", cfg.Listen), zap.String("base_url", cfg.PublicBaseURL))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("main: shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("main: shutdown", zap.Error(err))
			return 1
		}
		return 0
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("main: serve", zap.String("code", string(diag.Classify(err))), zap.Error(err))
			return 1
		}
		return 0
	}
}
