package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "zenbilling",
	Short:         "Invoicing and quoting API for small businesses",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(*cobra.Command, []string) {
		// Load environment variables from .env file
		_ = godotenv.Load()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()
		return app.Serve(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema and exit",
	Example: `  # AutoMigrate the gorm models
  zenbilling migrate

  # Run the versioned SQL migrations (postgres only)
  zenbilling migrate --sql`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		useSQL, _ := cmd.Flags().GetBool("sql")
		app, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()
		return app.Migrate(useSQL)
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the demo account, company and catalog",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()
		return app.Seed(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	migrateCmd.Flags().Bool("sql", false, "use the embedded SQL migrations instead of AutoMigrate")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
