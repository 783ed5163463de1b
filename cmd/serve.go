package cmd

import (
	"github.com/emrgen/suggest/internal/config"
	"github.com/emrgen/suggest/internal/server"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var port string

	command := &cobra.Command{
		Use:   "serve",
		Short: "run the http api and the suggestion workers",
		Run: func(cmd *cobra.Command, args []string) {
			cfg, err := config.LoadConfig()
			if err != nil {
				logrus.Fatal(err)
			}
			if port != "" {
				cfg.HTTPPort = port
			}

			config.SetupLogging(cfg)
			server.NewServer(cfg).Start()
		},
	}

	command.Flags().StringVarP(&port, "port", "p", "", "http port (overrides HTTP_PORT)")

	return command
}
