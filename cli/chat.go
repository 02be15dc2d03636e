package cli

import (
	"github.com/spf13/cobra"
	"github.com/tanpawarit/hr-leave-assistant/agent/console"
)

func newChatCommand(opts *rootOptions) *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive session",
		Long:  `Reads questions line by line. Type quit, exit, bye or goodbye to stop.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withRuntime(cmd.Context(), func(rt Runtime) error {
				return console.New(rt, cmd.InOrStdin(), cmd.OutOrStdout(), session).Run(cmd.Context())
			})
		},
	}

	cmd.Flags().StringVar(&session, "session", "", "session key for conversation memory")
	return cmd
}
