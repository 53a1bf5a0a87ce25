package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/zonecast/synchub/internal/adapters/http"
	"github.com/zonecast/synchub/internal/adapters/peer"
	wsignal "github.com/zonecast/synchub/internal/adapters/signal"
	"github.com/zonecast/synchub/internal/app"
	"github.com/zonecast/synchub/internal/app/hub"
	"github.com/zonecast/synchub/internal/app/orch"
	"github.com/zonecast/synchub/internal/config"
	"github.com/zonecast/synchub/internal/core"
	"github.com/zonecast/synchub/internal/metrics"
	"github.com/zonecast/synchub/internal/storage"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if !cfg.Debug() {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
	}
	defer db.Close()

	m := metrics.New()
	liveness := app.NewLivenessTable()
	actions := app.NewPlayerActionTable()

	peers := make([]core.WebsocketSender, 0, len(cfg.Peers))
	senders := make([]*peer.Sender, 0, len(cfg.Peers))
	for _, url := range cfg.Peers {
		s := peer.NewSender(url, cfg.InstanceID, cfg.Secret)
		peers = append(peers, s)
		senders = append(senders, s)
	}
	reg := app.NewRegistry(liveness, m, peers...)

	o := &orch.Orchestrator{
		Store:    db,
		Sender:   reg,
		Liveness: liveness,
		Actions:  actions,
		Policy:   app.ModePolicy{Mode: cfg.Mode},
		Metrics:  m,
	}
	server, handle := hub.NewServer(reg, o, actions, m)
	o.Abort = func(err error) {
		log.Error().Err(err).Msg("broadcast failure escalated, stopping")
		cancel()
	}

	var peerReceiver *peer.Receiver
	if cfg.Secret != "" {
		peerReceiver = &peer.Receiver{Relay: handle, InstanceID: cfg.InstanceID, Token: cfg.Secret, ReadLimit: cfg.ReadLimit}
	} else if len(cfg.Peers) > 0 {
		log.Warn().Msg("peers configured without a secret; remote hubs will refuse them")
	}

	r := router.SetupRouter(ctx, cfg, router.Deps{
		Handle: handle,
		Orch:   o,
		Signal: wsignal.NewSignalWSController(handle, wsignal.Options{
			ReadLimit:    cfg.ReadLimit,
			PingPeriod:   cfg.PingPeriod,
			RateLimit:    cfg.RateLimit,
			RateInterval: cfg.RateInterval,
		}),
		Peer:    peerReceiver,
		Metrics: m,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", addr).Str("instance", cfg.InstanceID).Int("peers", len(peers)).Msg("SyncHub server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		handle.Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
	}
	server.Wait()
	for _, s := range senders {
		_ = s.Close()
	}
	log.Info().Msg("Server exited gracefully")
}
