package cart

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-browser/internal/catalog"
	"catalog-browser/internal/report"
)

func item(key string, price float64) catalog.Item {
	return catalog.NewItem(catalog.Record{
		"item_id":         key,
		"item_name":       "item " + key,
		"price":           price,
		"icon_local_path": key,
	}, key, 0)
}

func qtys(l *Ledger) map[string]int {
	out := map[string]int{}
	for _, e := range l.Entries() {
		out[e.Item.Key] = e.Qty
	}
	return out
}

func TestLedger_AddMerges(t *testing.T) {
	l := Open(context.Background(), &MemorySlot{}, nil)
	l.Add(item("k", 10), 1)
	e := l.Add(item("k", 10), 1)

	assert.Equal(t, 2, e.Qty)
	assert.Equal(t, 1, l.Len(), "same key never makes a second line")
	assert.Equal(t, map[string]int{"k": 2}, qtys(l))

	l.Add(item("z", 1), 0)
	assert.Equal(t, 1, qtys(l)["z"], "qty below 1 adds one")
}

func TestLedger_QuantityClamps(t *testing.T) {
	l := Open(context.Background(), nil, nil)
	l.Add(item("a", 5), 3)

	require.True(t, l.SetQty("a", -4))
	assert.Equal(t, 1, qtys(l)["a"])

	require.True(t, l.Decrement("a"))
	assert.Equal(t, 1, qtys(l)["a"], "decrement never removes")

	require.True(t, l.Increment("a"))
	require.True(t, l.Increment("a"))
	assert.Equal(t, 3, qtys(l)["a"])

	require.True(t, l.SetQty("a", 7))
	assert.Equal(t, 7, qtys(l)["a"])

	assert.False(t, l.Increment("missing"))
	assert.False(t, l.Decrement("missing"))
	assert.False(t, l.SetQty("missing", 2))
	assert.False(t, l.Remove("missing"))
}

func TestLedger_QuantitySaturates(t *testing.T) {
	slot := &MemorySlot{}
	l := Open(context.Background(), slot, nil)

	e := l.Add(item("k", 2), math.MaxInt)
	assert.Equal(t, MaxQty, e.Qty)
	e = l.Add(item("k", 2), 2)
	assert.Equal(t, MaxQty, e.Qty, "merge never wraps around")
	assert.Greater(t, l.Total(), 0.0)

	require.True(t, l.SetQty("k", math.MaxInt))
	require.True(t, l.Increment("k"))
	assert.Equal(t, MaxQty, qtys(l)["k"])

	require.True(t, l.SetQty("k", math.MinInt))
	assert.Equal(t, 1, qtys(l)["k"])

	require.NoError(t, slot.Write(context.Background(), []byte(`{"k":{"price":1,"qty":9223372036854775807},"m":{"price":1,"qty":1e300}}`)))
	assert.Equal(t, map[string]int{"k": MaxQty, "m": MaxQty}, qtys(Open(context.Background(), slot, nil)))
}

func TestLedger_RemoveClearAndOrder(t *testing.T) {
	l := Open(context.Background(), nil, nil)
	l.Add(item("b", 1), 1)
	l.Add(item("a", 1), 1)
	l.Add(item("c", 1), 1)

	require.True(t, l.Remove("a"))
	var keys []string
	for _, e := range l.Entries() {
		keys = append(keys, e.Item.Key)
	}
	assert.Equal(t, []string{"b", "c"}, keys)

	l.Clear()
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 0.0, l.Total())
}

func TestTotal(t *testing.T) {
	nan := catalog.NewItem(catalog.Record{"price": "договорная"}, "n", 0)
	entries := []Entry{
		{Item: item("a", 100), Qty: 2},
		{Item: item("b", 0.5), Qty: 3},
		{Item: nan, Qty: 4},
	}
	assert.InDelta(t, 201.5, Total(entries), 1e-9)
	assert.Equal(t, 0.0, Total(nil))
	assert.False(t, math.IsNaN(Total(entries)))

	l := Open(context.Background(), nil, nil)
	for _, e := range entries {
		l.Add(e.Item, e.Qty)
	}
	assert.InDelta(t, Total(entries), l.Total(), 1e-9)
}

func TestLedger_PersistsEveryMutation(t *testing.T) {
	slot := &MemorySlot{}
	l := Open(context.Background(), slot, nil)
	l.Add(item("k", 10), 2)
	l.Increment("k")

	reopened := Open(context.Background(), slot, nil)
	e, ok := reopened.Get("k")
	require.True(t, ok)
	assert.Equal(t, 3, e.Qty)
	assert.Equal(t, "item k", e.Item.Name)
	assert.Equal(t, 10.0, e.Item.Price)
	assert.Equal(t, "./icons/k.png", e.Item.IconPath)

	l.Clear()
	assert.Equal(t, 0, Open(context.Background(), slot, nil).Len())
}

func TestLedger_PersistedShape(t *testing.T) {
	slot := &MemorySlot{}
	l := Open(context.Background(), slot, nil)
	l.Add(item("k", 10), 2)

	data, err := slot.Read(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"k":{"item_id":"k","item_name":"item k","price":10,"icon_local_path":"./icons/k.png","qty":2}}`, string(data))
}

func TestLedger_RestoreTolerance(t *testing.T) {
	ctx := context.Background()

	rec := &report.Recorder{}
	empty := Open(ctx, &MemorySlot{}, rec)
	assert.Equal(t, 0, empty.Len())
	assert.Empty(t, rec.Errors(), "absent payload is not an error")

	corrupt := &MemorySlot{}
	require.NoError(t, corrupt.Write(ctx, []byte(`{not json`)))
	l := Open(ctx, corrupt, rec)
	assert.Equal(t, 0, l.Len())
	assert.Len(t, rec.Errors(), 1)

	odd := &MemorySlot{}
	require.NoError(t, odd.Write(ctx, []byte(`{"b":{"price":"5","qty":0},"a":{"price":2,"qty":"x"},"c":7}`)))
	l = Open(ctx, odd, nil)
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, qtys(l))
	assert.Equal(t, "a", l.Entries()[0].Item.Key, "restored lines are sorted by key")
	assert.InDelta(t, 7.0, l.Total(), 1e-9)
}

func TestLedger_WriteFailureIsSwallowed(t *testing.T) {
	rec := &report.Recorder{}
	slot := &MemorySlot{WriteErr: errors.New("quota exceeded")}
	l := Open(context.Background(), slot, rec)

	l.Add(item("k", 3), 1)
	l.Increment("k")
	assert.Equal(t, 2, qtys(l)["k"], "cart stays correct in memory")
	require.Len(t, rec.Errors(), 2)
	assert.ErrorContains(t, rec.Last(), "quota exceeded")
}

func TestFileSlot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	slot, err := NewFileSlot(dir, "cart")
	require.NoError(t, err)

	_, err = slot.Read(context.Background())
	assert.ErrorIs(t, err, ErrEmptySlot)

	l := Open(context.Background(), slot, nil)
	l.Add(item("x", 1.5), 4)

	b, err := os.ReadFile(filepath.Join(dir, "cart.json"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"qty":4`)

	left, err := filepath.Glob(filepath.Join(dir, "*.tmp.*"))
	require.NoError(t, err)
	assert.Empty(t, left, "temp files are renamed away")

	assert.InDelta(t, 6.0, Open(context.Background(), slot, nil).Total(), 1e-9)

	_, err = NewFileSlot(dir, "../escape")
	assert.Error(t, err)
	_, err = NewFileSlot("", "cart")
	assert.Error(t, err)
}

func TestPostgresSlot(t *testing.T) {
	dsn := os.Getenv("CART_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("CART_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	slot, err := OpenPostgres(ctx, dsn, "test-"+t.Name())
	require.NoError(t, err)
	defer slot.Close()
	_, _ = slot.db.ExecContext(ctx, `DELETE FROM cart_slots WHERE name = $1`, slot.name)

	_, err = slot.Read(ctx)
	assert.ErrorIs(t, err, ErrEmptySlot)

	l := Open(ctx, slot, nil)
	l.Add(item("p", 2), 2)
	l.Add(item("p", 2), 1)
	assert.Equal(t, 3, qtys(Open(ctx, slot, nil))["p"])
}

func TestOpenSlot(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSlot(ctx, "file", t.TempDir(), "cart", "")
	require.NoError(t, err)
	assert.IsType(t, &FileSlot{}, s)

	s, err = OpenSlot(ctx, "memory", "", "cart", "")
	require.NoError(t, err)
	assert.IsType(t, &MemorySlot{}, s)

	_, err = OpenSlot(ctx, "postgres", "", "cart", "")
	assert.ErrorContains(t, err, "DATABASE_URL")

	_, err = OpenSlot(ctx, "redis", "", "cart", "")
	assert.Error(t, err)
}
