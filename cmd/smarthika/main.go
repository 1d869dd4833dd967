// Command smarthika runs the irrigation survey intake service and offers
// offline helpers for validating and submitting survey records.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"smarthika/internal/config"
	"smarthika/internal/core"
	"smarthika/internal/logging"
)

var exitFunc = os.Exit

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		exitFunc(1)
	}
}

type rootOptions struct {
	envFile  string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "smarthika",
		Short:         "Farm irrigation survey intake",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override SMARTHIKA_LOG_LEVEL")

	cmd.AddCommand(
		newServeCmd(opts),
		newValidateCmd(opts),
		newSubmitCmd(opts),
		newStatesCmd(opts),
		newDistrictsCmd(opts),
		newRegionsCmd(opts),
		newMapsCmd(opts),
	)
	return cmd
}

// load reads configuration and builds the logger shared by every subcommand.
func (o *rootOptions) load() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.envFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// rulesEngine returns the built-in rules plus any rule pack named in cfg.
func rulesEngine(cfg config.Config) (*core.RulesEngine, error) {
	engine := core.NewDefaultRulesEngine()
	if cfg.RulesFile == "" {
		return engine, nil
	}
	rules, err := core.LoadRuleFile(cfg.RulesFile)
	if err != nil {
		return nil, err
	}
	for _, rule := range rules {
		engine.Register(rule)
	}
	return engine, nil
}
