package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ledgerbridge/tallysync/internal/config"
	"github.com/ledgerbridge/tallysync/internal/store"
)

var (
	cfgFile string
	logFile string

	// cfg is loaded once in the persistent pre-run and shared by commands.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "tallysync",
	Short: "Sync Tally accounting data into a relational store",
	Long: `tallysync extracts accounting data from a Tally server (or saved
export files), reconstructs the flat tag streams into vouchers, entries and
reference entities, and merges them into SQLite or Postgres with idempotent,
dependency-ordered upserts.

Runs are safe to repeat: a re-run of the same export applies nothing.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if logFile != "" {
			log.SetOutput(&lumberjack.Logger{
				Filename:   logFile,
				MaxSize:    20, // megabytes
				MaxBackups: 3,
				MaxAge:     30, // days
			})
		}

		path := cfgFile
		if path == "" {
			if _, err := os.Stat("tallysync.yaml"); err == nil {
				path = "tallysync.yaml"
			}
		}
		c, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./tallysync.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to a rotating file instead of stderr")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore opens the configured database with the stock table layout.
func openStore(logger *log.Logger) (*store.DB, error) {
	return store.Open(cfg.Store.Driver, cfg.Store.Source(), store.DefaultTables(), logger)
}

func newLogger(prefix string) *log.Logger {
	return log.New(log.Writer(), "["+prefix+"] ", log.LstdFlags)
}
