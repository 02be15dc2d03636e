package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
)

func newAskCommand(opts *rootOptions) *cobra.Command {
	var (
		employee string
		session  string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := contractx.Query{
				Text:         strings.Join(args, " "),
				EmployeeHint: employee,
				SessionKey:   session,
			}
			return opts.withRuntime(cmd.Context(), func(rt Runtime) error {
				res, err := rt.Ask(cmd.Context(), q)
				if asJSON {
					if encErr := printAskJSON(cmd, res, err); encErr != nil {
						return encErr
					}
					return err
				}

				if err != nil {
					answer := res.Answer
					if answer == "" {
						answer = contractx.UserMessage(err)
					}
					fmt.Fprintln(cmd.OutOrStdout(), answer)
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), res.Answer)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&employee, "employee", "e", "", "employee the question is about")
	cmd.Flags().StringVar(&session, "session", "", "session key for conversation memory")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full result as JSON")
	return cmd
}

func printAskJSON(cmd *cobra.Command, res contractx.Result, err error) error {
	out := struct {
		contractx.Result
		Error string `json:"error,omitempty"`
	}{Result: res}
	if err != nil {
		out.Error = contractx.UserMessage(err)
	}

	data, encErr := json.MarshalIndent(out, "", "  ")
	if encErr != nil {
		return fmt.Errorf("marshal result: %w", encErr)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
