// Package cmd implements the reader command-line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/north-cloud/reader/cmd/articles"
	"github.com/jonesrussell/north-cloud/reader/cmd/common"
	"github.com/jonesrussell/north-cloud/reader/cmd/discover"
	"github.com/jonesrussell/north-cloud/reader/cmd/groups"
	cmdingest "github.com/jonesrussell/north-cloud/reader/cmd/ingest"
	"github.com/jonesrussell/north-cloud/reader/cmd/keywords"
	"github.com/jonesrussell/north-cloud/reader/cmd/migrate"
	"github.com/jonesrussell/north-cloud/reader/cmd/related"
	cmdsources "github.com/jonesrussell/north-cloud/reader/cmd/sources"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var (
	cfgFile  string
	logLevel string
	driver   string

	rootCmd = &cobra.Command{
		Use:           "reader",
		Short:         "Feed discovery, ingestion and content intelligence",
		Long:          `Discover feeds, ingest RSS, Atom and JSON feeds, and relate and group the articles they carry.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env file early so environment variables are available
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $CONFIG_PATH or ./config.yml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&driver, "storage", "", "storage driver: memory or postgres")

	cobra.OnInitialize(bindFlags)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "reader version %s\n", Version)
		},
	})

	rootCmd.AddCommand(discover.Command())
	rootCmd.AddCommand(cmdsources.Command())
	rootCmd.AddCommand(cmdingest.Command())
	rootCmd.AddCommand(articles.Command())
	rootCmd.AddCommand(keywords.Command())
	rootCmd.AddCommand(related.Command())
	rootCmd.AddCommand(groups.Command())
	rootCmd.AddCommand(migrate.Command())
}

// bindFlags exposes the persistent flags to common.NewCommandDeps through viper.
func bindFlags() {
	flags := rootCmd.PersistentFlags()
	for key, name := range map[string]string{
		common.KeyConfig:   "config",
		common.KeyLogLevel: "log-level",
		common.KeyStorage:  "storage",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to bind %s flag: %v\n", name, err)
		}
	}
}
