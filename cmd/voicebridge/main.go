package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dbehnke/voicebridge/pkg/bridge"
	"github.com/dbehnke/voicebridge/pkg/bridgeconfig"
	"github.com/dbehnke/voicebridge/pkg/bridgeerr"
	"github.com/dbehnke/voicebridge/pkg/bridgelog"
	"github.com/dbehnke/voicebridge/pkg/bridgeweb"
	"github.com/dbehnke/voicebridge/pkg/logger"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildTime = "unknown"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	validate := flag.Bool("validate", false, "Validate configuration and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("voicebridge %s\n", version)
		fmt.Printf("Git Commit: %s\n", gitCommit)
		fmt.Printf("Built: %s\n", buildTime)
		os.Exit(0)
	}

	log := logger.New(logger.Config{Level: "info", Format: "text"})
	log.Info("starting voicebridge",
		logger.String("version", version), logger.String("commit", gitCommit), logger.String("build_time", buildTime))

	cfg, err := bridgeconfig.Load(*configFile)
	if err != nil {
		log.Error("failed to load configuration", logger.Error(bridgeerr.New(bridgeerr.ConfigError, "main", err)))
		os.Exit(1)
	}

	if *validate {
		log.Info("configuration is valid")
		os.Exit(0)
	}

	log = logger.New(logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	log.Debug("debug logging enabled")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var wg sync.WaitGroup

	br := bridge.New(cfg, log, newStubVocoder(), newStubMDCDetector(), newStubSoundDevice())

	if cfg.Store.Enabled {
		store, err := bridgelog.Open(bridgelog.Config{Path: cfg.Store.Path}, log.WithComponent("store"))
		if err != nil {
			log.Error("failed to open call history store", logger.Error(err))
			os.Exit(1)
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Error("failed to close call history store", logger.Error(err))
			}
		}()
		br.SetCallHistoryLogger(bridgelog.NewCallHistoryLogger(bridgelog.NewRepository(store.GetDB()), log.WithComponent("calllog")))
	}

	var diagHub *bridgeweb.Hub
	if cfg.Web.Enabled {
		diagHub = bridgeweb.NewHub(log.WithComponent("web"))
		br.SetDiagnosticsHub(diagHub)

		wg.Add(1)
		go func() {
			defer wg.Done()
			diagHub.Run(ctx)
		}()

		mux := http.NewServeMux()
		mux.Handle("/ws", diagHub.Handler())
		addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
		srv := &http.Server{Addr: addr, Handler: mux}

		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Info("diagnostics websocket listening", logger.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("diagnostics server error", logger.Error(err))
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer shutdownCancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := br.Start(ctx); err != nil {
			log.Error("bridge error", logger.Error(err))
			cancel()
		}
	}()

	log.Info("voicebridge initialized",
		logger.String("fne_address", fmt.Sprintf("%s:%d", cfg.FNE.Address, cfg.FNE.Port)),
		logger.String("tx_mode", cfg.TxMode),
		logger.Uint32("src_id", cfg.SrcID),
		logger.Uint32("dst_id", cfg.DstID))

	sig := <-sigChan
	log.Info("received shutdown signal", logger.String("signal", sig.String()))

	cancel()
	br.Stop()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("clean shutdown completed")
	case <-time.After(5 * time.Second):
		log.Warn("shutdown timeout, forcing exit")
	}

	log.Info("voicebridge stopped")
}
