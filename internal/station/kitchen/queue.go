// Package kitchen holds the working set of active comandas shown on the
// kitchen display. The queue only reacts to events the bridge already
// delivered, so none of its operations can fail over the network; expected
// conditions (duplicate id, absent id) are reported as booleans.
package kitchen

import (
	"fmt"
	"sync"
	"time"

	"comanda-system/internal/domain"
)

// OrderQueue keeps comandas most-recent-first. It is owned exclusively by
// the kitchen view; the cashier side never touches it. The mutex only
// serializes the view's own bridge and console goroutines.
type OrderQueue struct {
	mu     sync.Mutex
	orders []*domain.QueuedOrder
	byID   map[int64]*domain.QueuedOrder
	now    func() time.Time
}

func NewOrderQueue() *OrderQueue {
	return &OrderQueue{byID: make(map[int64]*domain.QueuedOrder), now: time.Now}
}

// Ingest inserts a new comanda at the head of the queue. Re-delivery of an
// already-known order id is a no-op: the existing entry keeps its state and
// arrival time. Orders without an id are dropped. Returns whether an
// insertion happened.
func (q *OrderQueue) Ingest(order domain.Order) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if order.OrderID == 0 {
		return false
	}
	if _, exists := q.byID[order.OrderID]; exists {
		return false
	}
	entry := &domain.QueuedOrder{
		Order:     order,
		ArrivedAt: q.now(),
		State:     domain.OrderPreparing,
	}
	q.orders = append([]*domain.QueuedOrder{entry}, q.orders...)
	q.byID[order.OrderID] = entry
	return true
}

// ToggleState flips preparing<->done for the given order. Reports whether
// the order was found.
func (q *OrderQueue) ToggleState(orderID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.byID[orderID]
	if !ok {
		return false
	}
	if entry.State == domain.OrderPreparing {
		entry.State = domain.OrderDone
	} else {
		entry.State = domain.OrderPreparing
	}
	return true
}

// EditNote overwrites the note of every line item with one shared value.
// The whole ticket carries a single editable note at the display level.
func (q *OrderQueue) EditNote(orderID int64, note string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.byID[orderID]
	if !ok {
		return false
	}
	for i := range entry.Items {
		entry.Items[i].Note = note
	}
	return true
}

// Remove deletes the comanda from the queue. Removing an absent id is a
// no-op, not an error.
func (q *OrderQueue) Remove(orderID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.byID[orderID]; !ok {
		return
	}
	delete(q.byID, orderID)
	for i, entry := range q.orders {
		if entry.OrderID == orderID {
			q.orders = append(q.orders[:i], q.orders[i+1:]...)
			break
		}
	}
}

// ClearAll empties the display.
func (q *OrderQueue) ClearAll() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.orders = nil
	q.byID = make(map[int64]*domain.QueuedOrder)
}

func (q *OrderQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.orders)
}

// Orders returns the queue most-recent-first as deep copies. The bridge and
// console goroutines both render from this, so nothing shared with the live
// entries may escape the lock.
func (q *OrderQueue) Orders() []domain.QueuedOrder {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]domain.QueuedOrder, len(q.orders))
	for i, entry := range q.orders {
		out[i] = snapshotOf(entry)
	}
	return out
}

func (q *OrderQueue) Get(orderID int64) (domain.QueuedOrder, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := q.byID[orderID]
	if !ok {
		return domain.QueuedOrder{}, false
	}
	return snapshotOf(entry), true
}

func snapshotOf(entry *domain.QueuedOrder) domain.QueuedOrder {
	out := *entry
	out.Items = make([]domain.LineItem, len(entry.Items))
	copy(out.Items, entry.Items)
	return out
}

// ElapsedLabel renders whole minutes since arrival, floored. Anything under
// a minute shows "<1 min" so a just-arrived ticket never reads "0 min".
func ElapsedLabel(arrivedAt, now time.Time) string {
	mins := int(now.Sub(arrivedAt) / time.Minute)
	if mins < 1 {
		return "<1 min"
	}
	return fmt.Sprintf("%d min", mins)
}
