// Package cart holds the user's cart: merge, quantity changes, totals, and a
// best-effort persisted mirror of the current state.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"catalog-browser/internal/catalog"
	"catalog-browser/internal/report"
	"catalog-browser/internal/utils"
)

const qtyField = "qty"

// MaxQty caps a single line. Larger requests are saturated to it.
const MaxQty = 1_000_000

func clampQty(n int) int { return min(MaxQty, max(1, n)) }

// Entry is one cart line. Qty is always within [1, MaxQty].
type Entry struct {
	Item catalog.Item `json:"item"`
	Qty  int          `json:"qty"`
}

// Sum is the line amount; a non-numeric price counts as 0.
func (e Entry) Sum() float64 { return e.Item.PriceOrZero() * float64(e.Qty) }

// Total sums price × qty over entries.
func Total(entries []Entry) float64 {
	var s float64
	for _, e := range entries {
		s += e.Sum()
	}
	return s
}

// Ledger owns the cart. Every mutation is written to the slot before the lock
// is released; write failures go to the reporter and never fail the mutation.
type Ledger struct {
	mu      sync.Mutex
	entries map[string]Entry
	order   []string
	slot    Slot
	rep     report.Reporter
	timeout time.Duration
}

// Open restores the cart from slot. A missing or unreadable payload gives an
// empty cart.
func Open(ctx context.Context, slot Slot, rep report.Reporter) *Ledger {
	if rep == nil {
		rep = report.Nop
	}
	l := &Ledger{
		entries: map[string]Entry{},
		slot:    slot,
		rep:     rep,
		timeout: 5 * time.Second,
	}
	if slot == nil {
		return l
	}
	data, err := slot.Read(ctx)
	if err != nil {
		if !errors.Is(err, ErrEmptySlot) {
			rep.Report(fmt.Errorf("read cart: %w", err))
		}
		return l
	}
	entries, err := decode(data)
	if err != nil {
		rep.Report(fmt.Errorf("decode cart: %w", err))
		return l
	}
	for _, e := range entries {
		l.entries[e.Item.Key] = e
		l.order = append(l.order, e.Item.Key)
	}
	return l
}

// Add merges qty into the line for item.Key or starts a new line.
// qty below 1 is treated as 1; the merged quantity saturates at MaxQty.
func (l *Ledger) Add(item catalog.Item, qty int) Entry {
	qty = clampQty(qty)
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[item.Key]
	if ok {
		// оба слагаемых уже <= MaxQty, переполнения нет
		e.Qty = clampQty(e.Qty + qty)
	} else {
		e = Entry{Item: item, Qty: qty}
		l.order = append(l.order, item.Key)
	}
	l.entries[item.Key] = e
	l.persist()
	return e
}

// SetQty stores n clamped to [1, MaxQty]. It reports false for an unknown key.
func (l *Ledger) SetQty(key string, n int) bool {
	return l.update(key, func(int) int { return n })
}

func (l *Ledger) Increment(key string) bool {
	return l.update(key, func(q int) int { return q + 1 })
}

// Decrement never removes a line; the quantity stops at 1.
func (l *Ledger) Decrement(key string) bool {
	return l.update(key, func(q int) int { return q - 1 })
}

func (l *Ledger) update(key string, f func(int) int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	if !ok {
		return false
	}
	e.Qty = clampQty(f(e.Qty))
	l.entries[key] = e
	l.persist()
	return true
}

func (l *Ledger) Remove(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.entries[key]; !ok {
		return false
	}
	delete(l.entries, key)
	for i, k := range l.order {
		if k == key {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	l.persist()
	return true
}

func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = map[string]Entry{}
	l.order = nil
	l.persist()
}

func (l *Ledger) Get(key string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[key]
	return e, ok
}

// Entries returns a snapshot in the order lines were added.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *Ledger) Total() float64 { return Total(l.Entries()) }

func (l *Ledger) snapshot() []Entry {
	out := make([]Entry, 0, len(l.order))
	for _, k := range l.order {
		out = append(out, l.entries[k])
	}
	return out
}

// persist вызывается под l.mu
func (l *Ledger) persist() {
	if l.slot == nil {
		return
	}
	data, err := encode(l.snapshot())
	if err != nil {
		l.rep.Report(fmt.Errorf("encode cart: %w", err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	if err := l.slot.Write(ctx, data); err != nil {
		l.rep.Report(fmt.Errorf("write cart: %w", err))
	}
}

// encode: key → { ...item fields, "qty": n }
func encode(entries []Entry) ([]byte, error) {
	m := make(map[string]map[string]any, len(entries))
	for _, e := range entries {
		fields := make(map[string]any, len(e.Item.Fields)+1)
		for k, v := range e.Item.Fields {
			fields[k] = v
		}
		fields[qtyField] = e.Qty
		m[e.Item.Key] = fields
	}
	return json.Marshal(m)
}

// decode restores lines sorted by key. Non-object values are skipped and a
// missing or non-positive qty becomes 1, an oversized one MaxQty.
func decode(data []byte) ([]Entry, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Entry, 0, len(keys))
	for _, key := range keys {
		fields, ok := raw[key].(map[string]any)
		if !ok {
			continue
		}
		// клампим во float: int() от огромного значения не определён
		q := utils.NumberOr(fields[qtyField], 1)
		if math.IsNaN(q) {
			q = 1
		}
		qty := int(math.Min(MaxQty, math.Max(1, q)))
		rec := make(catalog.Record, len(fields))
		for k, v := range fields {
			if k != qtyField {
				rec[k] = v
			}
		}
		out = append(out, Entry{Item: catalog.NewItem(rec, key, -1), Qty: qty})
	}
	return out, nil
}
