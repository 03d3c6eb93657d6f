package main

import (
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the dashboard funnel and trend summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		return printJSON(env.Engine.Summarize(ctx, env.Engine.BuildView()))
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
