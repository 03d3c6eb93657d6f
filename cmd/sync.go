package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	syncMode  string
	syncReset bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one refresh against the sheet feed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		if syncReset {
			zap.L().Info("resetting order cache before sync")
			count, err := env.Engine.Reset(ctx)
			if err != nil {
				return err
			}
			return printJSON(map[string]any{"mode": "reset", "records": count})
		}

		result, err := runSyncMode(ctx, env.Engine, syncMode)
		if err != nil {
			return err
		}
		return printJSON(result)
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncMode, "mode", "full", "refresh mode: full, incremental or quick")
	syncCmd.Flags().BoolVar(&syncReset, "reset", false, "drop the cache before refreshing")
	rootCmd.AddCommand(syncCmd)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
