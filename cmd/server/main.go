package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dirkkok101/roguelike-sub001/internal/compress"
	"github.com/dirkkok101/roguelike-sub001/internal/engine"
	"github.com/dirkkok101/roguelike-sub001/internal/replay"
	"github.com/dirkkok101/roguelike-sub001/internal/saves"
	"github.com/dirkkok101/roguelike-sub001/internal/server"
	"github.com/dirkkok101/roguelike-sub001/internal/storage"
	"github.com/dirkkok101/roguelike-sub001/internal/version"
	"github.com/dirkkok101/roguelike-sub001/pkg/logger"
)

func init() {
	logger.Init()
}

func main() {
	// 1. Парсинг конфигурации
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to YAML config file")
	flag.Parse()

	logger.Log.Info("Starting save service...")
	logger.Log.Info(version.String())

	cfg, err := engine.LoadConfig(configPath)
	if err != nil {
		logger.Log.Fatal("Config error: ", err)
	}

	// 2. Хранилище
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		logger.Log.Fatal("Data dir error: ", err)
	}

	var store storage.Adapter
	switch cfg.Backend {
	case engine.BackendFile:
		store, err = storage.NewFileStore(cfg.DataDir, cfg.QuotaBytes)
	case engine.BackendSQLite:
		store, err = storage.NewSQLiteStore(filepath.Join(cfg.DataDir, "saves.db"), cfg.QuotaBytes)
	}
	if err != nil {
		logger.Log.Fatal("Storage init error: ", err)
	}
	logger.Log.Infof("💾 Storage backend: %s (%s)", cfg.Backend, cfg.DataDir)

	// 3. Компрессор: zstd, в продакшене — через фонового воркера
	zc, err := compress.NewZstd()
	if err != nil {
		logger.Log.Fatal("Compressor init error: ", err)
	}

	var comp compress.Compressor = zc
	var worker *compress.Worker
	if cfg.AsyncCompression {
		worker = compress.NewWorker(zc)
		comp = worker
	}

	// 4. Ядро
	svc := saves.NewService(store, comp, replay.NewRecorder())

	// Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 5. Запуск сервера
	srv := server.New(svc, cfg.Port)

	go func() {
		if err := srv.Run(); err != nil {
			logger.Log.Fatal("Server start error: ", err)
		}
	}()

	<-stop
	logger.Log.Info("Shutting down...")

	if svc.IsSavingInProgress() {
		logger.Log.Warn("Save in flight, waiting for pipeline to drain")
	}
	if worker != nil {
		worker.Close()
	}
	zc.Close()
	if err := store.Close(); err != nil {
		logger.Log.WithError(err).Warn("Storage close failed")
	}

	logger.Log.Info("Done.")
}
