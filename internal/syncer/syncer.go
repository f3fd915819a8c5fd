// Package syncer applies reconstructed records to the relational store as
// idempotent, dependency-ordered upserts.
//
// Writes proceed in three tiers: reference entities (masters) in dependency
// order, then vouchers, then ledger and inventory entries. Records within a
// tier are independent once the prior tier's lookup maps are built, so each
// tier runs on a bounded worker pool; tiers themselves never overlap. Each
// record is attempted in isolation: a failure is recorded on the run report
// with its natural key and cause, and the run continues. Only connectivity
// loss and cancellation abort a run, and an aborted run is safe to repeat
// because every write is an upsert on a natural key.
package syncer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ledgerbridge/tallysync/internal/lookup"
	"github.com/ledgerbridge/tallysync/internal/recon"
	"github.com/ledgerbridge/tallysync/internal/store"
)

// Syncer runs the tiered merge.
type Syncer struct {
	db      *store.DB
	stamp   store.Stamp
	workers int
	logger  *log.Logger

	// Progress, when set, is called after each table finishes its tier
	// with a snapshot of that table's report. Used by the dashboard.
	Progress func(table string, rep TableReport)
}

// New creates a Syncer. workers bounds within-tier parallelism; values
// below 1 mean sequential. A nil logger falls back to stderr.
func New(db *store.DB, stamp store.Stamp, workers int, logger *log.Logger) *Syncer {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &Syncer{db: db, stamp: stamp, workers: workers, logger: logger}
}

// Run merges masters and the reconstructed transaction set into the store
// and returns the run report. The returned error is non-nil only for fatal
// conditions (connectivity loss, cancellation); per-record failures live on
// the report.
func (s *Syncer) Run(ctx context.Context, masters map[string][]recon.MasterRecord, res *recon.Result) (*RunReport, error) {
	rep := newRunReport()
	defer func() { rep.Duration = time.Since(rep.StartedAt) }()

	for _, w := range res.Warnings {
		rep.warn("reconstruction: %s %s: %s", w.Kind, w.LocalID, w.Message)
	}

	// Lookup maps reflect store state at the start of the run; rows
	// inserted below are added to them as they land.
	builder := lookup.NewBuilder(s.db)
	tables := s.db.Tables()
	order := make([]string, 0, len(store.MasterKinds))
	for _, kind := range store.MasterKinds {
		order = append(order, tables.Masters[kind])
	}
	maps, err := builder.Build(ctx, order)
	if err != nil {
		return s.fatal(rep, err)
	}
	voucherMap, err := builder.BuildVouchers(ctx)
	if err != nil {
		return s.fatal(rep, err)
	}

	// Tier 1: masters, kind by kind in dependency order.
	for _, kind := range store.MasterKinds {
		records := masters[kind]
		if len(records) == 0 {
			continue
		}
		table := tables.Masters[kind]
		if err := s.syncMasters(ctx, kind, table, records, maps[table], rep); err != nil {
			return s.fatal(rep, err)
		}
		s.progress(table, rep)
	}

	// Tier 2: vouchers.
	if err := s.syncVouchers(ctx, res.Vouchers, maps, voucherMap, rep); err != nil {
		return s.fatal(rep, err)
	}
	s.progress(tables.Vouchers, rep)

	// Tier 3: ledger and inventory entries.
	if err := s.syncEntries(ctx, res, maps, voucherMap, rep); err != nil {
		return s.fatal(rep, err)
	}
	s.progress(tables.Ledger, rep)
	s.progress(tables.Inventory, rep)

	// Referential-integrity pass.
	rep.OrphanLedger, rep.OrphanInventory, err = s.db.OrphanCounts(ctx)
	if err != nil {
		return s.fatal(rep, err)
	}

	s.logger.Printf("run complete: applied=%d failed=%d warnings=%d",
		rep.TotalApplied(), rep.TotalFailed(), len(rep.Warnings))
	return rep, nil
}

func (s *Syncer) fatal(rep *RunReport, err error) (*RunReport, error) {
	err = store.Classify(err)
	rep.Fatal = err.Error()
	s.logger.Printf("run aborted: %v", err)
	return rep, err
}

func (s *Syncer) progress(table string, rep *RunReport) {
	if s.Progress != nil {
		s.Progress(table, rep.Snapshot(table))
	}
}

// isFatal reports whether an upsert error must abort the run rather than be
// recorded against the one record.
func isFatal(err error) bool {
	return errors.Is(err, store.ErrConnectivity) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func outcome(res store.Result) State {
	if res.Changed {
		return StateApplied
	}
	return StateUnchanged
}

func (s *Syncer) syncMasters(ctx context.Context, kind, table string, records []recon.MasterRecord, m *lookup.SurrogateMap, rep *RunReport) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, rec := range records {
		g.Go(func() error {
			// Cooperative cancellation between records; a statement
			// already in flight is never interrupted.
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := s.db.UpsertMaster(gctx, kind, rec, s.stamp)
			if err != nil {
				if isFatal(err) {
					return err
				}
				rep.record(table, StateApplyFailed, rec.GUID, err.Error())
				return nil
			}
			m.Add(rec.Name, rec.GUID, res.ID)
			rep.record(table, outcome(res), rec.GUID, "")
			return nil
		})
	}
	return g.Wait()
}

func (s *Syncer) syncVouchers(ctx context.Context, vouchers []recon.Voucher, maps map[string]*lookup.SurrogateMap, voucherMap *lookup.SurrogateMap, rep *RunReport) error {
	tables := s.db.Tables()
	types := maps[tables.Masters["VoucherType"]]
	ledgers := maps[tables.Masters["Ledger"]]

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, v := range vouchers {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Optional named references: a miss keeps the exported name
			// and leaves the surrogate column NULL.
			var typeID, partyID sql.NullInt64
			if v.Type != "" {
				if typeID = types.ByName(v.Type); !typeID.Valid {
					rep.warn("voucher %s: unknown voucher type %q", v.GUID, v.Type)
				}
			}
			if v.PartyName != "" {
				if partyID = ledgers.ByName(v.PartyName); !partyID.Valid {
					rep.warn("voucher %s: unknown party ledger %q", v.GUID, v.PartyName)
				}
			}

			res, err := s.db.UpsertVoucher(gctx, v, typeID, partyID, s.stamp)
			if err != nil {
				if isFatal(err) {
					return err
				}
				rep.record(tables.Vouchers, StateApplyFailed, v.GUID, err.Error())
				return nil
			}
			voucherMap.Add("", v.GUID, res.ID)
			rep.record(tables.Vouchers, outcome(res), v.GUID, "")
			return nil
		})
	}
	return g.Wait()
}

func (s *Syncer) syncEntries(ctx context.Context, res *recon.Result, maps map[string]*lookup.SurrogateMap, voucherMap *lookup.SurrogateMap, rep *RunReport) error {
	tables := s.db.Tables()
	ledgers := maps[tables.Masters["Ledger"]]
	items := maps[tables.Masters["StockItem"]]
	godowns := maps[tables.Masters["Godown"]]

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, e := range res.LedgerEntries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			key := entryKey(e.ParentRef, e.Seq)
			// An entry can never exist without its parent.
			parent := voucherMap.ByGUID(e.ParentRef)
			if !parent.Valid {
				rep.record(tables.Ledger, StateResolutionFailed, key,
					fmt.Sprintf("parent voucher %q not found", e.ParentRef))
				return nil
			}
			var ledgerID sql.NullInt64
			if e.LedgerName != "" {
				if ledgerID = ledgers.ByName(e.LedgerName); !ledgerID.Valid {
					rep.warn("ledger entry %s: unknown ledger %q", key, e.LedgerName)
				}
			}
			res, err := s.db.UpsertLedgerEntry(gctx, e, parent.Int64, ledgerID, s.stamp)
			if err != nil {
				if isFatal(err) {
					return err
				}
				rep.record(tables.Ledger, StateApplyFailed, key, err.Error())
				return nil
			}
			rep.record(tables.Ledger, outcome(res), key, "")
			return nil
		})
	}

	for _, e := range res.InventoryEntries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			key := entryKey(e.ParentRef, e.Seq)
			parent := voucherMap.ByGUID(e.ParentRef)
			if !parent.Valid {
				rep.record(tables.Inventory, StateResolutionFailed, key,
					fmt.Sprintf("parent voucher %q not found", e.ParentRef))
				return nil
			}
			var itemID, godownID sql.NullInt64
			if e.StockItemName != "" {
				if itemID = items.ByName(e.StockItemName); !itemID.Valid {
					rep.warn("inventory entry %s: unknown stock item %q", key, e.StockItemName)
				}
			}
			if e.GodownName != "" {
				if godownID = godowns.ByName(e.GodownName); !godownID.Valid {
					rep.warn("inventory entry %s: unknown godown %q", key, e.GodownName)
				}
			}
			res, err := s.db.UpsertInventoryEntry(gctx, e, parent.Int64, itemID, godownID, s.stamp)
			if err != nil {
				if isFatal(err) {
					return err
				}
				rep.record(tables.Inventory, StateApplyFailed, key, err.Error())
				return nil
			}
			rep.record(tables.Inventory, outcome(res), key, "")
			return nil
		})
	}

	return g.Wait()
}

func entryKey(parentRef string, seq int) string {
	return fmt.Sprintf("%s/%d", parentRef, seq)
}
