package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"thena/internal/adapters/observability"
	"thena/internal/adapters/redisstore"
	"thena/internal/adapters/thenaapi"
	"thena/internal/app"
	"thena/internal/shared"
	"thena/internal/tui"
)

func main() {
	cfg := shared.Load()

	// stdout and stderr belong to the TUI; logs go to a file when asked
	if cfg.LogFile != "" {
		log.Logger = observability.NewFileLogger(cfg.LogFile)
	} else {
		log.Logger = observability.NewLogger(cfg.AppEnv)
	}

	observability.Serve()

	api, err := thenaapi.New(cfg.BaseURL, cfg.APIRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("api client init failed")
	}

	store := redisstore.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Ping(ctx); err != nil {
		log.Fatal().Str("addr", cfg.RedisAddr).Err(err).Msg("redis unreachable; drafts need it")
	}

	gate := app.NewSessionGate(api, log.Logger)
	resolver := app.NewResolver(api, store, log.Logger)
	submit := app.NewSubmitController(api, resolver, gate, store, log.Logger)

	model := tui.New(tui.Services{
		API:      api,
		Resolver: resolver,
		Session:  gate,
		Submit:   submit,
		Drafts:   store,
		State:    store,
		Debounce: cfg.Debounce,
		Log:      log.Logger,
	})

	log.Info().Str("base", cfg.BaseURL).Msg("client starting")
	if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
		log.Fatal().Err(err).Msg("terminal UI failed")
	}
}
