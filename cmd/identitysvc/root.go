package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/you/identitysvc/internal/app"
	"github.com/you/identitysvc/internal/config"
	"github.com/you/identitysvc/internal/logging"
)

var configFile string

// NewRootCmd creates the root command for the identity service CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "identitysvc",
		Short:         "Identity, verification and session service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default "+config.DefaultPath+")")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// NewServeCmd starts the HTTP API and the notification worker.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and notification worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			logger := logging.Setup("identitysvc", version, cfg.LogFormat, os.Stdout)
			return app.Run(cmd.Context(), cfg, logger)
		},
	}
}

// NewMigrateCmd applies the schema and exits.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			logger := logging.Setup("identitysvc", version, cfg.LogFormat, os.Stdout)
			return app.Migrate(cfg, logger)
		},
	}
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Println(version)
		},
	}
}
