package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
)

func newBalanceCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance [employee]",
		Short: "Look up remaining leave directly",
		Long: `Computes entitlement minus used days from the leave records without
consulting the reasoning engine.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			employee := args[0]
			return opts.withRuntime(cmd.Context(), func(rt Runtime) error {
				days, err := rt.FetchBalance(cmd.Context(), employee)
				if errors.Is(err, contractx.ErrNotFound) {
					fmt.Fprintf(cmd.OutOrStdout(), "No leave record found for %s.\n", employee)
					return err
				}
				if err != nil {
					fmt.Fprintln(cmd.OutOrStdout(), contractx.UserMessage(err))
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s has %d days of leave remaining.\n", employee, days)
				return nil
			})
		},
	}
}
