/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/minaqr/botserver/config"
	"github.com/minaqr/botserver/internal/server"
	"github.com/spf13/cobra"
)

// botCmd represents the bot command
var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Starts the QR bot",
	Long: `Starts the Telegram QR bot and its health endpoint. Usage:

	botserver bot
`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.LoadConfig()

		app, err := server.New(cmd.Context(), cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start bot: %v\n", err)
			os.Exit(1)
		}
		if err := app.Run(cmd.Context()); err != nil {
			fmt.Fprintf(os.Stderr, "bot error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
}
