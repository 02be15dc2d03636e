package main

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/hr-leave-assistant/cli"
	_ "github.com/tanpawarit/hr-leave-assistant/pkg/logger/autoload"
)

func main() {
	if err := cli.NewRootCommand(cli.OpenApp).ExecuteContext(context.Background()); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
