package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/draftforge/go-contract-session/cmd/server"
	"github.com/draftforge/go-contract-session/cmd/sweep"
	"github.com/draftforge/go-contract-session/internal/util/command"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	root := command.NewSubcommandGroup("contract-session",
		server.New(),
		sweep.New(),
	)
	root.Short = "Multi-party contract drafting session service"

	if err := root.Execute(); err != nil {
		log.Fatal().Err(err).Msg("Command failed")
	}
}
