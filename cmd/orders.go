package main

import (
	"github.com/spf13/cobra"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "Print the unified order view",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		return printJSON(env.Engine.BuildView())
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print store sizes and last sync times",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEngine(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		return printJSON(env.Engine.Status())
	},
}

func init() {
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(statusCmd)
}
