// Package cli wires the HR assistant commands.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tanpawarit/hr-leave-assistant/agent/api"
	"github.com/tanpawarit/hr-leave-assistant/agent/app"
	contractx "github.com/tanpawarit/hr-leave-assistant/agent/contract"
	configx "github.com/tanpawarit/hr-leave-assistant/pkg/config"
	logx "github.com/tanpawarit/hr-leave-assistant/pkg/logger"
)

// Runtime is what the commands need from an assembled application.
type Runtime interface {
	Ask(ctx context.Context, q contractx.Query) (contractx.Result, error)
	FetchBalance(ctx context.Context, employeeID string) (int, error)
	CheckHealth(ctx context.Context) bool
	ServerConfig() api.ServerConfig
	Close(ctx context.Context) error
}

// Opener builds a Runtime once flags have been parsed.
type Opener func(ctx context.Context) (Runtime, error)

// OpenApp loads configuration from the environment and builds the app.
func OpenApp(ctx context.Context) (Runtime, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, err
	}
	logx.Init(cfg.Log)

	a, err := app.New(ctx, *cfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}

type rootOptions struct {
	envFile string
	open    Opener
}

func NewRootCommand(open Opener) *cobra.Command {
	opts := &rootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "hr-assistant",
		Short: "Answer employee leave and HR policy questions",
		Long: `Routes natural-language HR questions to leave records and the policy index.
The reasoning engine decides which lookups to run; remaining leave is computed
as entitlement minus used days.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.envFile != "" {
				configx.SetEnvFile(opts.envFile)
			}
		},
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env", "", "path to a .env file")

	cmd.AddCommand(
		newAskCommand(opts),
		newChatCommand(opts),
		newBalanceCommand(opts),
		newServeCommand(opts),
	)
	return cmd
}

// withRuntime opens the runtime, runs fn and always closes it.
func (o *rootOptions) withRuntime(ctx context.Context, fn func(Runtime) error) (err error) {
	if o.open == nil {
		return fmt.Errorf("runtime not configured")
	}
	rt, err := o.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := rt.Close(context.Background()); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(rt)
}
