// Package cashier holds the cashier-station core: the fixed grid of tables
// and the per-selection payment session.
package cashier

import (
	"sync"

	"comanda-system/internal/domain"
)

// TableLedger is the fixed-cardinality registry of tables. Its view always
// has exactly N entries sorted by table id; a table can never be missing or
// duplicated.
type TableLedger struct {
	mu     sync.Mutex
	tables []domain.TableEntry
}

func NewTableLedger(n int) *TableLedger {
	l := &TableLedger{tables: make([]domain.TableEntry, n)}
	l.reset()
	return l
}

func (l *TableLedger) reset() {
	for i := range l.tables {
		l.tables[i] = domain.TableEntry{
			TableID: i + 1,
			Total:   0,
			Status:  domain.TableFree,
		}
	}
}

// Reconcile replaces the whole view with the snapshot: tables present in it
// take its total and status, every other table is forced back to free/0.
// Full replacement is what lets the server omit tables that returned to
// empty without the ledger going stale.
func (l *TableLedger) Reconcile(snapshot []domain.TableTotal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reset()
	for _, t := range snapshot {
		if t.TableID < 1 || t.TableID > len(l.tables) {
			continue
		}
		entry := &l.tables[t.TableID-1]
		entry.Total = t.Total
		entry.Status = t.Status
		if entry.Status == "" {
			if t.Total > 0 {
				entry.Status = domain.TableOccupied
			} else {
				entry.Status = domain.TableFree
			}
		}
	}
}

// MarkSettled forces a table to free/0 immediately after a successful
// payment, ahead of the next snapshot. Idempotent. A snapshot computed
// before the commit may transiently re-occupy the table; the one after it
// confirms free. That window is accepted.
func (l *TableLedger) MarkSettled(tableID int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if tableID < 1 || tableID > len(l.tables) {
		return
	}
	l.tables[tableID-1] = domain.TableEntry{
		TableID: tableID,
		Total:   0,
		Status:  domain.TableFree,
	}
}

// Tables returns a copy of the view, sorted by table id ascending.
func (l *TableLedger) Tables() []domain.TableEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.TableEntry, len(l.tables))
	copy(out, l.tables)
	return out
}

func (l *TableLedger) Table(tableID int) (domain.TableEntry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if tableID < 1 || tableID > len(l.tables) {
		return domain.TableEntry{}, false
	}
	return l.tables[tableID-1], true
}

func (l *TableLedger) Size() int { return len(l.tables) }
