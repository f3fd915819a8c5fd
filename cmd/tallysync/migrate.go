package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgerbridge/tallysync/internal/recon"
	"github.com/ledgerbridge/tallysync/internal/spool"
	"github.com/ledgerbridge/tallysync/internal/store"
	"github.com/ledgerbridge/tallysync/internal/syncer"
	"github.com/ledgerbridge/tallysync/internal/tally"
	"github.com/ledgerbridge/tallysync/internal/ui"
)

var (
	migrateFromFile string
	migrateJSON     bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run the full extract, reconstruct and sync pipeline",
	Long: `Extract reference entities and vouchers from the Tally server (or a
saved export file with --from-file), reconstruct the flat tag streams into
records, and merge them into the configured store.

Per-record failures are reported and do not stop the run; only connectivity
loss or cancellation aborts. Re-running the same export is a no-op.

Examples:
  tallysync migrate
  tallysync migrate --from-file exports/daybook.xml
  tallysync migrate --json > report.json`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateFromFile, "from-file", "", "ingest a saved export file instead of querying the server")
	migrateCmd.Flags().BoolVar(&migrateJSON, "json", false, "print the run report as JSON")
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

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
	if cfg.Store.Driver == "sqlite" {
		if err := db.InitSchema(ctx); err != nil {
			return err
		}
	}

	var (
		masters map[string][]recon.MasterRecord
		res     *recon.Result
	)
	if migrateFromFile != "" {
		res, err = reconstructFile(rec, migrateFromFile, newLogger("spool"))
	} else {
		client := tally.NewClient(cfg.Tally.URL, cfg.Tally.CompanyName, cfg.Tally.Timeout(), newLogger("tally"))
		client.SetTagMap(tagmap)
		if err := client.Ping(ctx); err != nil {
			return err
		}
		masters, res, err = extract(ctx, client, rec, newLogger("extract"))
	}
	if err != nil {
		return err
	}

	s := syncer.New(db, stamp(), cfg.Sync.Workers, newLogger("sync"))
	rep, runErr := s.Run(ctx, masters, res)

	if migrateJSON {
		if err := json.NewEncoder(os.Stdout).Encode(rep); err != nil {
			return err
		}
	} else {
		fmt.Print(ui.RenderRunReport(rep))
	}
	return runErr
}

func stamp() store.Stamp {
	return store.Stamp{CompanyID: cfg.Company.ID, DivisionID: cfg.Company.DivisionID}
}

// extract pulls the ten reference-entity collections and the voucher walk
// from the live server. An empty collection is normal (ErrNoData) and skips
// the kind; any other failure aborts so the sync never runs on a partial
// picture it would misreport.
func extract(ctx context.Context, client *tally.Client, rec *recon.Reconstructor, logger *log.Logger) (map[string][]recon.MasterRecord, *recon.Result, error) {
	masters := make(map[string][]recon.MasterRecord)
	var masterWarnings []recon.Warning

	for _, kind := range store.MasterKinds {
		stream, err := client.ExportMasters(ctx, kind)
		if errors.Is(err, tally.ErrNoData) {
			logger.Printf("%s: no records exported", kind)
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("exporting %s masters: %w", kind, err)
		}
		records, warnings := rec.ReconstructMasters(kind, stream)
		masters[kind] = records
		masterWarnings = append(masterWarnings, warnings...)
		logger.Printf("%s: %d records", kind, len(records))
	}

	stream, err := client.ExportVouchers(ctx)
	if errors.Is(err, tally.ErrNoData) {
		logger.Printf("vouchers: no records exported")
		return masters, &recon.Result{Warnings: masterWarnings}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("exporting vouchers: %w", err)
	}
	res, err := rec.Reconstruct(stream)
	if err != nil {
		return nil, nil, err
	}
	res.Warnings = append(res.Warnings, masterWarnings...)
	logger.Printf("vouchers: %d, ledger entries: %d, inventory entries: %d",
		len(res.Vouchers), len(res.LedgerEntries), len(res.InventoryEntries))
	return masters, res, nil
}

// reconstructFile ingests one saved export file. Saved files carry the
// voucher walk only; reference entities must already be loaded.
func reconstructFile(rec *recon.Reconstructor, path string, logger *log.Logger) (*recon.Result, error) {
	values, err := spool.ParseFile(path)
	if err != nil {
		return nil, err
	}
	res, err := rec.Reconstruct(values)
	if err != nil {
		return nil, err
	}
	logger.Printf("%s: vouchers: %d, ledger entries: %d, inventory entries: %d",
		path, len(res.Vouchers), len(res.LedgerEntries), len(res.InventoryEntries))
	return res, nil
}
