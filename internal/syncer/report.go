package syncer

import (
	"fmt"
	"sync"
	"time"
)

// State is a record's position in its write lifecycle. Terminal states are
// Applied, Unchanged, ResolutionFailed and ApplyFailed; there is no retry
// state within a run, because retry is re-invoking the whole pipeline.
type State string

const (
	StatePending          State = "pending"
	StateResolving        State = "resolving_fks"
	StateApplying         State = "applying"
	StateApplied          State = "applied"
	StateUnchanged        State = "unchanged"
	StateResolutionFailed State = "resolution_failed"
	StateApplyFailed      State = "apply_failed"
)

// Failure records one record that did not apply, by natural key.
type Failure struct {
	NaturalKey string `json:"natural_key"`
	State      State  `json:"state"`
	Cause      string `json:"cause"`
}

// TableReport aggregates outcomes for one table.
type TableReport struct {
	Attempted        int       `json:"attempted"`
	Applied          int       `json:"applied"`
	Unchanged        int       `json:"unchanged"`
	ResolutionFailed int       `json:"resolution_failed"`
	ApplyFailed      int       `json:"apply_failed"`
	Failures         []Failure `json:"failures,omitempty"`
}

// RunReport is the structured summary of one sync run. It is written
// concurrently by sync workers and safe for that use.
type RunReport struct {
	mu sync.Mutex

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`

	// Order preserves table processing order for rendering.
	Order  []string                `json:"order"`
	Tables map[string]*TableReport `json:"tables"`

	Warnings []string `json:"warnings,omitempty"`

	OrphanLedger    int `json:"orphan_ledger"`
	OrphanInventory int `json:"orphan_inventory"`

	// Fatal is set when the run aborted (connectivity loss, cancellation).
	Fatal string `json:"fatal,omitempty"`
}

func newRunReport() *RunReport {
	return &RunReport{
		StartedAt: time.Now(),
		Tables:    make(map[string]*TableReport),
	}
}

// table returns the report bucket for a table, creating it on first use.
// Callers must hold mu.
func (r *RunReport) table(name string) *TableReport {
	tr, ok := r.Tables[name]
	if !ok {
		tr = &TableReport{}
		r.Tables[name] = tr
		r.Order = append(r.Order, name)
	}
	return tr
}

// record registers one terminal outcome for a record in the given table.
func (r *RunReport) record(tableName string, st State, naturalKey, cause string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tr := r.table(tableName)
	tr.Attempted++
	switch st {
	case StateApplied:
		tr.Applied++
	case StateUnchanged:
		tr.Unchanged++
	case StateResolutionFailed:
		tr.ResolutionFailed++
		tr.Failures = append(tr.Failures, Failure{NaturalKey: naturalKey, State: st, Cause: cause})
	case StateApplyFailed:
		tr.ApplyFailed++
		tr.Failures = append(tr.Failures, Failure{NaturalKey: naturalKey, State: st, Cause: cause})
	}
}

func (r *RunReport) warn(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Snapshot returns a copy of one table's report, for progress callbacks.
func (r *RunReport) Snapshot(tableName string) TableReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tr, ok := r.Tables[tableName]; ok {
		cp := *tr
		cp.Failures = append([]Failure(nil), tr.Failures...)
		return cp
	}
	return TableReport{}
}

// TotalFailed returns the number of records that did not apply.
func (r *RunReport) TotalFailed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, tr := range r.Tables {
		n += tr.ResolutionFailed + tr.ApplyFailed
	}
	return n
}

// TotalApplied returns the number of rows actually inserted or updated.
func (r *RunReport) TotalApplied() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, tr := range r.Tables {
		n += tr.Applied
	}
	return n
}
