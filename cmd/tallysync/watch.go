package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ledgerbridge/tallysync/internal/dashboard"
	"github.com/ledgerbridge/tallysync/internal/recon"
	"github.com/ledgerbridge/tallysync/internal/spool"
	"github.com/ledgerbridge/tallysync/internal/store"
	"github.com/ledgerbridge/tallysync/internal/syncer"
	"github.com/ledgerbridge/tallysync/internal/tally"
	"github.com/ledgerbridge/tallysync/internal/ui"
)

var (
	watchDashboard     bool
	watchDashboardPort int
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a spool directory and ingest dropped export files",
	Long: `Watch the configured spool directory. Every export XML file dropped
into it runs through the reconstruction and sync pipeline. Files are
byte-for-byte server responses, so they get the same sanitizing pass.

With --dashboard, a WebSocket server broadcasts run progress and serves the
last run report at /status.

Example:
  tallysync watch --dashboard --dashboard-port 9000`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchDashboard, "dashboard", false, "serve a WebSocket run-progress dashboard")
	watchCmd.Flags().IntVar(&watchDashboardPort, "dashboard-port", 8080, "dashboard port")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger := newLogger("watch")

	tagmap, err := cfg.TagMap()
	if err != nil {
		return err
	}
	rec := recon.New(tagmap, recon.DatePolicy{PivotYear: cfg.Dates.PivotYear})

	db, err := openStore(newLogger("store"))
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Store.Driver == "sqlite" {
		if err := db.InitSchema(ctx); err != nil {
			return err
		}
	}

	var dash *dashboard.Server
	if watchDashboard {
		dash = dashboard.NewServer(&dashboard.Config{
			Port:   watchDashboardPort,
			Logger: newLogger("dashboard"),
		})
		if err := dash.Start(); err != nil {
			return err
		}
		defer dash.Stop()
		fmt.Printf("Dashboard: http://localhost:%d (ws://localhost:%d/ws)\n", watchDashboardPort, watchDashboardPort)
	}

	if err := os.MkdirAll(cfg.Spool.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create spool directory: %w", err)
	}
	watcher, err := spool.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Start(cfg.Spool.Dir); err != nil {
		return err
	}
	defer watcher.Stop()

	fmt.Printf("Watching %s for export files. Press Ctrl+C to stop.\n", cfg.Spool.Dir)

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\nStopping watcher...")
			return nil

		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			if err := ingestFile(ctx, db, rec, dash, ev.Path, logger); err != nil {
				if errors.Is(err, store.ErrConnectivity) || ctx.Err() != nil {
					return err
				}
				logger.Printf("%s: %v", ev.Path, err)
			}

		case err, ok := <-watcher.Errors():
			if !ok {
				return nil
			}
			logger.Printf("watcher error: %v", err)
		}
	}
}

// ingestFile runs one dropped export through the pipeline. Bad files are
// logged and skipped; the watch loop only dies on connectivity loss.
func ingestFile(ctx context.Context, db *store.DB, rec *recon.Reconstructor, dash *dashboard.Server, path string, logger *log.Logger) error {
	values, err := spool.ParseFile(path)
	if errors.Is(err, tally.ErrNoData) {
		logger.Printf("%s: empty export, skipped", path)
		return nil
	}
	if err != nil {
		return err
	}
	res, err := rec.Reconstruct(values)
	if err != nil {
		return err
	}

	s := syncer.New(db, stamp(), cfg.Sync.Workers, newLogger("sync"))
	if dash != nil {
		dash.RunStarted("spool", cfg.Tally.CompanyName)
		s.Progress = dash.TableSynced
	}

	rep, runErr := s.Run(ctx, nil, res)
	if dash != nil {
		dash.RunComplete(rep)
	}
	fmt.Print(ui.RenderRunReport(rep))
	return runErr
}
