package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-browser/internal/cart"
	"catalog-browser/internal/catalog"
)

const feed = `[
	{"item_id": "1", "item_name": "Каска стальная", "price": 1500},
	{"item_id": "2", "item_name": "Фляга", "price": 350},
	{"item_name": "KACKA учебная", "price": 200}
]`

func newBrowser(t *testing.T, pageSize int) (*browser, *bytes.Buffer, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(feed), 0o644))

	loader := catalog.NewLoader(catalog.FileFeed{Path: path}, zerolog.Nop(), nil)
	_, err := loader.Load(context.Background())
	require.NoError(t, err)

	out := &bytes.Buffer{}
	return &browser{
		out:      out,
		loader:   loader,
		ledger:   cart.Open(context.Background(), &cart.MemorySlot{}, nil),
		pageSize: pageSize,
		logger:   zerolog.Nop(),
	}, out, path
}

func TestSearchMarksMatches(t *testing.T) {
	b, out, _ := newBrowser(t, 50)
	b.search("каска")

	got := out.String()
	assert.Contains(t, got, "найдено: 2 из 3")
	assert.Contains(t, got, "[Каска] стальная")
	assert.Contains(t, got, "KACKA учебная")
	assert.NotContains(t, got, "Фляга")
}

func TestSearchPages(t *testing.T) {
	b, out, _ := newBrowser(t, 1)
	b.search("")
	assert.Contains(t, out.String(), "ещё 2")
}

func TestCommands(t *testing.T) {
	b, out, _ := newBrowser(t, 50)
	ctx := context.Background()

	b.command(ctx, ":add 1 2")
	b.command(ctx, ":add KACKA учебная")
	b.command(ctx, ":inc 1")
	assert.Equal(t, 2, b.ledger.Len())
	e, ok := b.ledger.Get("1")
	require.True(t, ok)
	assert.Equal(t, 3, e.Qty)
	assert.InDelta(t, 4700, b.ledger.Total(), 1e-9)

	out.Reset()
	b.command(ctx, ":dec missing")
	assert.Contains(t, out.String(), "в корзине нет")

	out.Reset()
	b.command(ctx, ":add nope")
	assert.Contains(t, out.String(), "нет товара")

	b.command(ctx, ":rm KACKA учебная")
	assert.Equal(t, 1, b.ledger.Len())

	out.Reset()
	b.command(ctx, ":clear")
	assert.Contains(t, out.String(), "корзина пуста")

	out.Reset()
	b.command(ctx, ":bogus")
	assert.Contains(t, out.String(), "неизвестная команда")
}

func TestAddHugeQtySaturates(t *testing.T) {
	b, _, _ := newBrowser(t, 50)
	b.command(context.Background(), ":add 2 9223372036854775807")
	b.command(context.Background(), ":add 2 9223372036854775807")
	e, ok := b.ledger.Get("2")
	require.True(t, ok)
	assert.Equal(t, cart.MaxQty, e.Qty)
}

func TestReloadCommand(t *testing.T) {
	b, out, path := newBrowser(t, 50)
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	b.command(context.Background(), ":reload")
	assert.Contains(t, out.String(), "Ошибка загрузки данных")
	assert.Equal(t, 3, b.loader.Current().Len(), "previous catalog stays")
}

func TestSplitQty(t *testing.T) {
	cases := []struct {
		in  string
		key string
		qty int
	}{
		{"1", "1", 1},
		{"1 5", "1", 5},
		{"KACKA учебная", "KACKA учебная", 1},
		{"KACKA учебная 2", "KACKA учебная", 2},
	}
	for _, c := range cases {
		key, qty := splitQty(c.in)
		assert.Equal(t, c.key, key, c.in)
		assert.Equal(t, c.qty, qty, c.in)
	}
}

func TestRunDebouncesQueries(t *testing.T) {
	b, out, _ := newBrowser(t, 50)
	in := strings.NewReader("к\nка\nфля\n:add 2\n:quit\nкаска\n")

	done := make(chan struct{})
	go func() {
		b.run(context.Background(), in, 20*time.Millisecond)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not return")
	}

	got := out.String()
	assert.Equal(t, 1, strings.Count(got, "найдено:"), "burst prints once")
	assert.Contains(t, got, "[Фля]га")
	assert.Contains(t, got, "+ Фляга x1")
	assert.NotContains(t, got, "[Каска]", "lines after :quit are ignored")
}
