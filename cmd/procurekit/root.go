package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/rushteam/procurekit/app"
	"github.com/rushteam/procurekit/config"
	"github.com/rushteam/procurekit/pkg/logger"
)

var (
	cfgFile  string
	envFiles []string
	logLevel string

	cfg *config.Config
	lg  *log.Logger
)

var rootCmd = &cobra.Command{
	Use:           "procurekit",
	Short:         "Multi-attribute product sourcing search",
	Long:          `procurekit ranks catalog products by weighted similarity across text, cost, margin, reliability and sales spaces, and turns natural-language procurement requests into structured queries.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile, envFiles...)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		lg = logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", nil, "dotenv files to load (default .env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level")
}

// Execute 运行根命令，错误已记录到日志。
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		logger.OrNop(lg).Error("command failed", "err", err)
		if lg == nil {
			os.Stderr.WriteString("error: " + err.Error() + "\n")
		}
	}
	return err
}

// signalContext 在收到 SIGINT / SIGTERM 时取消。
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func buildApp(ctx context.Context) (*app.App, error) {
	return app.Build(ctx, cfg, lg)
}
