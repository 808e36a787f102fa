/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "botserver",
	Short: "Telegram QR code bot with account-gated generation",
	Long: `botserver runs a Telegram bot that turns text into QR code images.

Users register and log in with an email and password; once logged in they
can tune quality and colors, upload an emblem image, and generate QR codes
by sending plain text to the bot.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
