package cmd

import (
	"os"

	"github.com/emrgen/suggest"
	"github.com/spf13/cobra"
)

var serverURL string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "suggest",
	Short: "content suggestion pipeline",
	Example: `suggest serve
suggest db migrate
suggest doc create -t <title> -c <content>
suggest doc history -d <doc-id> --active
suggest suggestion submit -d <doc-id> -u <user-id> -k correction -m <details>
suggest suggestion list -u <user-id>
suggest revision rollback -r <revision-id> -a <actor-id>`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	defaultURL := os.Getenv("SUGGEST_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:4021"
	}
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", defaultURL, "suggestion server url")

	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(serveCmd())
	rootCmd.SetHelpCommand(&cobra.Command{Use: "no-help", Hidden: true})

	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	cobra.EnableCommandSorting = false
}

func newClient() *suggest.Client {
	return suggest.NewClient(serverURL)
}
