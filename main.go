package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"

	"github.com/calplan/calplan/agent/nlu"
	"github.com/calplan/calplan/agent/orchestrator"
	statex "github.com/calplan/calplan/agent/state"
	"github.com/calplan/calplan/pkg/mcp"
	"github.com/calplan/calplan/server"

	configx "github.com/calplan/calplan/pkg/config"
	_ "github.com/calplan/calplan/pkg/logger/autoload"
	openrouterx "github.com/calplan/calplan/pkg/openrouter"
)

type AppConfig struct {
	SessionStore    string `envconfig:"SESSION_STORE" split_words:"true" default:"memory"`
	DefaultTimezone string `envconfig:"DEFAULT_TIMEZONE" split_words:"true" default:"Asia/Kolkata"`
	SenderEmail     string `envconfig:"SENDER_EMAIL" split_words:"true" default:"planner@localhost"`
	MockCalendar    bool   `envconfig:"MOCK_CALENDAR" split_words:"true" default:"true"`
}

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("")
	serverCfg := configx.MustNew[server.Config]("SERVER")

	store := buildStore(appCfg.SessionStore)

	mcpCfg := configx.MustNew[mcp.ClientConfig]("MCP")
	toolClient := mcp.NewClient(*mcpCfg)
	if err := toolClient.Connect(ctx); err != nil {
		// tool calls reconnect on demand, so a late provider is not fatal
		log.Warn().Err(err).Msg("calendar provider not reachable at startup")
	}
	defer toolClient.Disconnect()

	provider := buildNLU(ctx)

	orc, err := orchestrator.New(store, provider, toolClient, orchestrator.Config{
		DefaultTimezone: appCfg.DefaultTimezone,
		OrganizerEmail:  appCfg.SenderEmail,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("build orchestrator")
	}

	calendarMode := "live"
	if appCfg.MockCalendar {
		calendarMode = "mock"
	}

	srv := server.New(orc, store, toolClient, calendarMode)
	httpSrv := &http.Server{
		Addr:    "0.0.0.0:" + serverCfg.Port,
		Handler: srv.Router(*serverCfg),
	}

	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msg("planner listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	toolClient.Disconnect()
}

func buildStore(kind string) statex.Store {
	switch kind {
	case "redis":
		cfg := configx.MustNew[statex.RedisConfig]("UPSTASH_REDIS")
		store, err := statex.NewRedisStore(*cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("build redis store")
		}
		return store
	case "postgres":
		cfg := configx.MustNew[statex.PostgresConfig]("POSTGRES")
		store, err := statex.NewPostgresStore(*cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("build postgres store")
		}
		if err := store.Init(context.Background()); err != nil {
			log.Fatal().Err(err).Msg("init postgres store")
		}
		return store
	default:
		return statex.NewInMemoryStore()
	}
}

// buildNLU assembles the understanding layer. Without an API key the
// planner still works on its rule-based paths.
func buildNLU(ctx context.Context) *nlu.Provider {
	orCfg := configx.MustNew[openrouterx.Config]("OPENROUTER")

	var chatModel einomodel.BaseChatModel
	if orCfg.Enabled() {
		m, err := orCfg.New(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("chat model unavailable, falling back to rules")
		} else {
			chatModel = m
		}
	} else {
		log.Warn().Msg("no model configured, running rules-only understanding")
	}

	provider, err := nlu.New(ctx, chatModel, openrouterx.NewClient(*orCfg), orCfg.Model)
	if err != nil {
		log.Fatal().Err(err).Msg("build nlu provider")
	}
	return provider
}
