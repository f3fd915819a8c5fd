package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/ledgerbridge/tallysync/internal/syncer"
)

// RenderRunReport formats a run report for terminal output: one line per
// table in processing order, then warnings, failures and the orphan check.
func RenderRunReport(rep *syncer.RunReport) string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render("Sync Report"))
	b.WriteString("\n" + SeparatorLight + "\n")

	for _, table := range rep.Order {
		tr := rep.Tables[table]
		icon := IconPass
		style := PassStyle
		switch {
		case tr.ResolutionFailed+tr.ApplyFailed > 0:
			icon = IconFail
			style = FailStyle
		case tr.Attempted == tr.Unchanged:
			icon = IconSkip
			style = MutedStyle
		}
		line := fmt.Sprintf("%s %-20s applied %d, unchanged %d", icon, table, tr.Applied, tr.Unchanged)
		if n := tr.ResolutionFailed + tr.ApplyFailed; n > 0 {
			line += fmt.Sprintf(", failed %d", n)
		}
		b.WriteString(style.Render(line) + "\n")

		for _, f := range tr.Failures {
			b.WriteString(FailStyle.Render(fmt.Sprintf("  %s %s: %s", IconFail, f.NaturalKey, f.Cause)) + "\n")
		}
	}

	for _, w := range rep.Warnings {
		b.WriteString(WarnStyle.Render(fmt.Sprintf("%s %s", IconWarn, w)) + "\n")
	}

	if rep.OrphanLedger > 0 || rep.OrphanInventory > 0 {
		b.WriteString(WarnStyle.Render(fmt.Sprintf("%s unresolved references: %d ledger, %d inventory",
			IconWarn, rep.OrphanLedger, rep.OrphanInventory)) + "\n")
	}

	if rep.Fatal != "" {
		b.WriteString(FailStyle.Render(fmt.Sprintf("%s run aborted: %s", IconFail, rep.Fatal)) + "\n")
	}

	b.WriteString(MutedStyle.Render(fmt.Sprintf("completed in %s", rep.Duration.Round(time.Millisecond))) + "\n")
	return b.String()
}
