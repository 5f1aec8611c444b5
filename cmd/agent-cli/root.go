package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/nbenliogludev/webagent/internal/config"
	"github.com/nbenliogludev/webagent/internal/observability"
)

// app carries state shared by the commands of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "agent-cli",
		Short:         "Autonomous web browsing agent driven by a vision language model.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.v, a.cfgFile)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "webagent"})
				return err
			}
			observability.InitializeLogger(cfg.Logger)
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./config.yaml)")

	root.AddCommand(newRunCmd(a))
	return root, a
}

func Execute() {
	root, _ := newRootCmd()
	if err := root.ExecuteContext(context.Background()); err != nil {
		observability.GetLogger().Error("command failed", zap.Error(err))
		observability.Sync()
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	observability.Sync()
}
