// Command calendarmcp is the stdio calendar tool provider. It speaks
// line-framed JSON-RPC on stdin/stdout; logs go to stderr so the protocol
// stream stays clean.
package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/calplan/calplan/calendar"
	"github.com/calplan/calplan/pkg/mcp"

	configx "github.com/calplan/calplan/pkg/config"
	_ "github.com/calplan/calplan/pkg/logger/autoload"
)

const version = "1.0.0"

type providerConfig struct {
	MockCalendar bool   `envconfig:"MOCK_CALENDAR" split_words:"true" default:"true"`
	SenderEmail  string `envconfig:"SENDER_EMAIL" split_words:"true" default:"planner@localhost"`
}

func main() {
	ctx := context.Background()

	cfg := configx.MustNew[providerConfig]("")

	var svc calendar.Service
	if cfg.MockCalendar {
		log.Info().Msg("calendar provider starting in mock mode")
		svc = calendar.NewMock(cfg.SenderEmail)
	} else {
		googleCfg := configx.MustNew[calendar.GoogleConfig]("GOOGLE")
		if googleCfg.SenderEmail == "" {
			googleCfg.SenderEmail = cfg.SenderEmail
		}
		live, err := calendar.NewGoogleService(ctx, *googleCfg)
		if err != nil {
			log.Warn().Err(err).Msg("google calendar unavailable, falling back to mock")
			svc = calendar.NewMock(cfg.SenderEmail)
		} else {
			log.Info().Msg("calendar provider using google calendar")
			svc = live
		}
	}

	srv := mcp.NewServer("calplan-calendar", version)
	calendar.RegisterTools(srv, svc)

	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
		log.Fatal().Err(err).Msg("provider terminated")
	}
}
