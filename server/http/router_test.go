package serverhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	browseHnd "catalog-browser/internal/browse/handler"
	"catalog-browser/internal/cart"
	"catalog-browser/internal/catalog"
	"catalog-browser/internal/config"
)

const feed = `[
	{"item_id": "1", "item_name": "Каска стальная", "price": 1500, "icon_local_path": "helmet", "Url": "https://shop/1"},
	{"item_id": "2", "item_name": "Фляга", "price": 350},
	{"item_id": "1", "item_name": "дубль", "price": 1},
	{"item_name": "KACKA учебная", "price": "200"},
	{"item_id": "a/b", "item_name": "Ремень", "price": 100}
]`

type env struct {
	t      *testing.T
	srv    *httptest.Server
	dir    string
	ledger *cart.Ledger
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	dataPath := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(dataPath, []byte(feed), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "icons"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "icons", "helmet.webp"), []byte("RIFF"), 0o644))

	cfg := config.Config{
		AllowOrigins: []string{"*"},
		MaxBodyKB:    4,
		PageSize:     2,
		AssetsDir:    dir,
	}
	logger := zerolog.Nop()
	loader := catalog.NewLoader(catalog.FileFeed{Path: dataPath}, logger, nil)
	_, err := loader.Load(context.Background())
	require.NoError(t, err)
	ledger := cart.Open(context.Background(), &cart.MemorySlot{}, nil)

	api := browseHnd.New(cfg, logger, loader, ledger, os.DirFS(dir))
	srv := httptest.NewServer(NewRouter(cfg, logger, loader, api))
	t.Cleanup(srv.Close)
	return &env{t: t, srv: srv, dir: dir, ledger: ledger}
}

func (e *env) do(method, path, body string) (*http.Response, map[string]any) {
	e.t.Helper()
	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	require.NoError(e.t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()
	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func keysOf(items any) []string {
	var out []string
	for _, it := range items.([]any) {
		out = append(out, it.(map[string]any)["key"].(string))
	}
	return out
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	resp, body := e.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 4, body["items"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestSearch(t *testing.T) {
	e := newEnv(t)

	_, body := e.do(http.MethodGet, "/api/catalog?q="+url.QueryEscape("каска"), "")
	assert.EqualValues(t, 2, body["total"])
	assert.Equal(t, []string{"1", "KACKA учебная"}, keysOf(body["items"]))

	first := body["items"].([]any)[0].(map[string]any)
	spans := first["spans"].([]any)
	assert.Equal(t, map[string]any{"text": "Каска", "match": true}, spans[0])
	assert.Equal(t, "./icons/helmet.png", first["icon"])
	assert.NotEmpty(t, first["price_text"])

	_, body = e.do(http.MethodGet, "/api/catalog", "")
	assert.EqualValues(t, 4, body["total"])
	assert.EqualValues(t, 2, body["limit"], "default page size")
	assert.EqualValues(t, 2, body["remaining"])

	_, body = e.do(http.MethodGet, "/api/catalog?offset=3&limit=10", "")
	assert.Equal(t, []string{"a/b"}, keysOf(body["items"]))
	assert.EqualValues(t, 0, body["remaining"])
}

func TestItemCard(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(http.MethodGet, "/api/catalog/1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Каска стальная", body["name"])
	assert.Equal(t, "https://shop/1", body["url"])
	assert.Contains(t, body["candidates"], "./icons/helmet.webp")

	resp, body = e.do(http.MethodGet, "/api/catalog/a%2Fb", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ремень", body["name"])

	resp, _ = e.do(http.MethodGet, "/api/catalog/404", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCartFlow(t *testing.T) {
	e := newEnv(t)

	_, body := e.do(http.MethodPost, "/api/cart/items", `{"key":"1","qty":2}`)
	_, body = e.do(http.MethodPost, "/api/cart/items", `{"key":"1"}`)
	assert.EqualValues(t, 1, body["positions"])
	line := body["entries"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 3, line["qty"])
	assert.EqualValues(t, 4500, body["total"])

	_, body = e.do(http.MethodPost, "/api/cart/items", `{"key":"2","qty":1}`)
	assert.EqualValues(t, 4850, body["total"])

	_, body = e.do(http.MethodPut, "/api/cart/items/1", `{"qty":0}`)
	assert.EqualValues(t, 1850, body["total"], "qty clamps to 1")

	_, body = e.do(http.MethodPost, "/api/cart/items/2/decrement", "")
	assert.EqualValues(t, 1850, body["total"], "decrement stops at 1")

	_, body = e.do(http.MethodPost, "/api/cart/items/2/increment", "")
	assert.EqualValues(t, 2200, body["total"])

	resp, _ := e.do(http.MethodGet, "/api/catalog/1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = e.do(http.MethodDelete, "/api/cart/items/1", "")
	assert.EqualValues(t, 1, body["positions"])

	resp, _ = e.do(http.MethodDelete, "/api/cart/items/1", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, body = e.do(http.MethodDelete, "/api/cart", "")
	assert.EqualValues(t, 0, body["positions"])
	assert.Equal(t, 0, e.ledger.Len())
}

func TestCartBadRequests(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(http.MethodPost, "/api/cart/items", `{"key":"1","extra":true}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "bad json")

	resp, _ = e.do(http.MethodPost, "/api/cart/items", `{"key":"missing"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	e.do(http.MethodPost, "/api/cart/items", `{"key":"2","qty":9223372036854775807}`)
	_, body = e.do(http.MethodPost, "/api/cart/items", `{"key":"2","qty":5}`)
	line := body["entries"].([]any)[0].(map[string]any)
	assert.EqualValues(t, cart.MaxQty, line["qty"], "oversized qty saturates")
	assert.Greater(t, body["total"].(float64), 0.0)

	resp, _ = e.do(http.MethodPost, "/api/cart/items", `{"key":"`+strings.Repeat("x", 5000)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestHighlight(t *testing.T) {
	e := newEnv(t)
	_, body := e.do(http.MethodGet, "/api/highlight?text="+url.QueryEscape("Большая КАСКА")+"&q=kacka", "")
	spans := body["spans"].([]any)
	require.Len(t, spans, 2)
	assert.Equal(t, map[string]any{"text": "КАСКА", "match": true}, spans[1])
}

func TestIconProbe(t *testing.T) {
	e := newEnv(t)

	resp, _ := e.do(http.MethodGet, "/api/icon?path=helmet", "")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/assets/icons/helmet.webp", resp.Header.Get("Location"))

	resp, _ = e.do(http.MethodGet, "/assets/icons/helmet.webp", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := e.do(http.MethodGet, "/api/icon?path=nothing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.NotEmpty(t, body["candidates"])

	resp, _ = e.do(http.MethodGet, "/api/icon?path="+url.QueryEscape("https://cdn/x"), "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://cdn/x.png", resp.Header.Get("Location"))
}

func TestReload(t *testing.T) {
	e := newEnv(t)

	resp, body := e.do(http.MethodPost, "/api/catalog/reload", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 4, body["items"])

	require.NoError(t, os.WriteFile(filepath.Join(e.dir, "data.json"), []byte(`{"not":"array"}`), 0o644))
	resp, body = e.do(http.MethodPost, "/api/catalog/reload", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body["error"], "Ошибка загрузки данных")

	_, body = e.do(http.MethodGet, "/api/catalog", "")
	assert.EqualValues(t, 4, body["total"], "previous snapshot is kept")
	assert.Contains(t, body["error"], "ожидается массив")
}
