package main

import (
	"github.com/rs/zerolog/log"

	"github.com/anoixa/photo-relay/cmd"
	"github.com/anoixa/photo-relay/config"
)

func main() {
	log.Info().Msg(config.BuildInfo())
	cmd.Execute()
}
