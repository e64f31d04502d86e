package main

import (
	"github.com/spf13/cobra"
)

var (
	configFile string
	offline    bool
)

var rootCmd = &cobra.Command{
	Use:   "bistro",
	Short: "Bistro - a conversational restaurant ordering assistant",
	Long: `Bistro takes restaurant orders through a conversation with a team of agents.

It can serve the HTTP and websocket API, chat in the terminal, or run the
scripted evaluation scenarios.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "Run without a language model")
}
