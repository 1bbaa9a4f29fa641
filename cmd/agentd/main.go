package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"lucky-agents/internal/broadcast"
	"lucky-agents/internal/chain"
	"lucky-agents/internal/composer"
	"lucky-agents/internal/config"
	"lucky-agents/internal/executor"
	"lucky-agents/internal/keyvault"
	"lucky-agents/internal/llm"
	"lucky-agents/internal/logging"
	"lucky-agents/internal/registry"
	"lucky-agents/internal/scheduler"
	"lucky-agents/internal/store"
)

func main() {
	cfg, err := config.LoadApp()
	if err != nil {
		panic(err)
	}
	logging.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(cfg.Server.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	defer st.Close()
	if err := st.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("db ping failed")
	}

	vault, err := keyvault.New(cfg.Vault)
	if err != nil {
		log.Fatal().Err(err).Msg("key vault init failed")
	}

	// A missing RPC endpoint or contract address disables only the
	// transaction path; chat behaviors keep running.
	var gateway chain.Gateway
	client, err := chain.NewClient(ctx, cfg.Chain)
	switch {
	case err == nil:
		gateway = client
		log.Info().Str("rpc", cfg.Chain.RPCURL).Str("contract", cfg.Chain.LotteryContract).Msg("chain gateway connected")
	case errors.Is(err, chain.ErrNotConfigured):
		log.Warn().Msg("chain gateway not configured, running chat-only")
	default:
		log.Fatal().Err(err).Msg("chain gateway init failed")
	}

	reg := registry.NewService(st, vault, cfg.Chain.MinOperatingWei())
	exec := executor.New(gateway, vault, st, cfg.Chain)

	hub := broadcast.NewHub()
	comp := composer.New(llm.New(cfg.LLM))
	sched := scheduler.New(reg, exec, comp, hub, cfg.Scheduler)
	sched.Start(ctx)

	r := newRouter(st, reg, exec, hub, cfg.Server.AdminAPIKey)
	server := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Server.HTTPAddr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
}
