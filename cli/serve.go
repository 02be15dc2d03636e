package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tanpawarit/hr-leave-assistant/agent/api"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ask API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return opts.withRuntime(ctx, func(rt Runtime) error {
				srvCfg := rt.ServerConfig()
				if cmd.Flags().Changed("addr") || srvCfg.Addr == "" {
					srvCfg.Addr = addr
				}
				handler := api.NewHandler(rt, rt).Routes(log.Logger)
				return api.Serve(ctx, srvCfg, handler)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	return cmd
}
