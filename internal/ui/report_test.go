package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/ledgerbridge/tallysync/internal/syncer"
)

func TestRenderRunReport(t *testing.T) {
	rep := &syncer.RunReport{
		Duration: 1234 * time.Millisecond,
		Order:    []string{"ledgers", "vouchers", "ledger_entries"},
		Tables: map[string]*syncer.TableReport{
			"ledgers":  {Attempted: 3, Applied: 3},
			"vouchers": {Attempted: 2, Unchanged: 2},
			"ledger_entries": {
				Attempted:        3,
				Applied:          2,
				ResolutionFailed: 1,
				Failures: []syncer.Failure{
					{NaturalKey: "v-9/0", State: syncer.StateResolutionFailed, Cause: `parent voucher "v-9" not found`},
				},
			},
		},
		Warnings:     []string{`voucher v-1: unknown party ledger "Acme"`},
		OrphanLedger: 1,
	}

	out := RenderRunReport(rep)

	for _, want := range []string{
		"ledgers", "vouchers", "ledger_entries",
		"applied 3", "unchanged 2", "failed 1",
		"v-9/0", "unknown party ledger",
		"unresolved references: 1 ledger",
		"1.234s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "run aborted") {
		t.Error("clean run should not render an abort line")
	}
}

func TestRenderRunReport_Fatal(t *testing.T) {
	rep := &syncer.RunReport{
		Tables: map[string]*syncer.TableReport{},
		Fatal:  "database connection error: connection refused",
	}
	out := RenderRunReport(rep)
	if !strings.Contains(out, "run aborted: database connection error") {
		t.Errorf("missing abort line:\n%s", out)
	}
}
