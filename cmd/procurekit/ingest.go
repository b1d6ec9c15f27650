package main

import (
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [csv-path]",
	Short: "Load products from a CSV file into the index",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		path := cfg.Ingest.DataPath
		if len(args) == 1 {
			path = args[0]
		}
		// 导入命令自己负责加载，避免 Build 时重复导入
		cfg.Ingest.LoadOnStart = false
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Loader.File(ctx, path)
		if err != nil {
			return err
		}
		lg.Info("ingest done", "path", path,
			"read", report.Read, "loaded", report.Loaded,
			"rejected", report.Rejected, "failed", report.Failed,
			"entities", a.Index.Len())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
