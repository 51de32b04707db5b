package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rahul/tasksmith/internal/gateway"
	"github.com/rahul/tasksmith/internal/observability"
	"github.com/rahul/tasksmith/internal/resources"
	"github.com/rahul/tasksmith/internal/store"
	"github.com/rahul/tasksmith/pkg/config"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat gateways",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	observability.PrintBanner(cfg.App.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := observability.NewLogger()
	metrics := observability.NewMetrics()
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	eng, err := buildEngine(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}

	tasks, err := store.NewTaskStore(cfg.Memory.Path)
	if err != nil {
		return err
	}
	defer tasks.Close()

	handler := gateway.NewHandler(eng.Decomposer, eng.Fallback, logger)
	handler.Improver = eng.Improver
	handler.Store = tasks
	handler.Resolver = resources.NewResolver()
	handler.Timeout = timeout

	var messengers []gateway.Messenger
	if tgCfg, ok := cfg.GetTelegramConfig(); ok {
		tg, err := gateway.NewTelegramGateway(tgCfg.Token, handler)
		if err != nil {
			return err
		}
		messengers = append(messengers, tg)
	}
	if dcCfg, ok := cfg.GetDiscordConfig(); ok {
		dg, err := gateway.NewDiscordGateway(dcCfg.Token, handler)
		if err != nil {
			return err
		}
		messengers = append(messengers, dg)
	}
	if len(messengers) == 0 {
		return errors.New("no gateway is enabled in config")
	}

	if cfg.Metrics.Addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("metrics server stopped: %v", err)
			}
		}()
		defer srv.Close()
	}

	for _, m := range messengers {
		go func(m gateway.Messenger) {
			if err := m.Start(); err != nil {
				log.Printf("\033[91m[ FAIL ] GATEWAY CRITICAL ERROR: %v\033[0m", err)
				stop() // stop caller if gateway dies
			}
		}(m)
	}

	<-ctx.Done()

	for _, m := range messengers {
		if err := m.Stop(); err != nil {
			log.Printf("gateway stop: %v", err)
		}
	}
	log.Println(observability.FormatStatus(observability.GetStatus()))
	log.Println("\033[95m[ EXIT ] GOODBYE.\033[0m")
	return nil
}
