// Package lookup builds the natural-key → surrogate-id maps used to resolve
// foreign keys during a sync run.
//
// Maps are built read-only from the store's current contents immediately
// before a run, in the caller's dependency order, so incremental syncs
// resolve against everything loaded by earlier runs. Rows inserted during
// the run are fed back with Add so later tiers see them without re-querying.
package lookup

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/ledgerbridge/tallysync/internal/store"
)

// SurrogateMap resolves names and external ids to surrogate ids for one
// table. Safe for concurrent use: sync workers read it while newly inserted
// rows are added.
type SurrogateMap struct {
	mu     sync.RWMutex
	byName map[string]int64
	byGUID map[string]int64
}

// NewSurrogateMap returns an empty map.
func NewSurrogateMap() *SurrogateMap {
	return &SurrogateMap{
		byName: make(map[string]int64),
		byGUID: make(map[string]int64),
	}
}

// Add records a row's surrogate id under both its keys. Either key may be
// empty and is then skipped.
func (m *SurrogateMap) Add(name, guid string, id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name != "" {
		m.byName[name] = id
	}
	if guid != "" {
		m.byGUID[guid] = id
	}
}

// ByName resolves a name to a surrogate id. The NullInt64 is invalid on a
// miss, matching how unresolved optional references are stored.
func (m *SurrogateMap) ByName(name string) sql.NullInt64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[name]
	return sql.NullInt64{Int64: id, Valid: ok}
}

// ByGUID resolves an external id to a surrogate id.
func (m *SurrogateMap) ByGUID(guid string) sql.NullInt64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byGUID[guid]
	return sql.NullInt64{Int64: id, Valid: ok}
}

// Len returns the number of distinct ids known by external id.
func (m *SurrogateMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byGUID)
}

// Builder builds surrogate maps from the store.
type Builder struct {
	db *store.DB
}

// NewBuilder returns a Builder reading from db.
func NewBuilder(db *store.DB) *Builder {
	return &Builder{db: db}
}

// Build reads every listed table, strictly in the given order, and returns
// one map per table name. Building is read-only and reflects store state at
// the start of the run.
func (b *Builder) Build(ctx context.Context, tables []string) (map[string]*SurrogateMap, error) {
	maps := make(map[string]*SurrogateMap, len(tables))
	for _, table := range tables {
		rows, err := b.db.SelectKeys(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("failed to build lookup map for %s: %w", table, err)
		}
		m := NewSurrogateMap()
		for _, r := range rows {
			m.Add(r.Name, r.GUID, r.ID)
		}
		maps[table] = m
	}
	return maps, nil
}

// BuildVouchers reads the voucher table's (id, guid) pairs so entry parents
// resolve across incremental runs.
func (b *Builder) BuildVouchers(ctx context.Context) (*SurrogateMap, error) {
	rows, err := b.db.VoucherKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build voucher lookup map: %w", err)
	}
	m := NewSurrogateMap()
	for _, r := range rows {
		m.Add("", r.GUID, r.ID)
	}
	return m, nil
}
