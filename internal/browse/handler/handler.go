// Package handler exposes the catalog and the cart as a JSON API. Handlers only
// translate HTTP to calls on the catalog loader and the cart ledger.
package handler

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"catalog-browser/internal/cart"
	"catalog-browser/internal/catalog"
	"catalog-browser/internal/config"
	"catalog-browser/internal/icon"
	"catalog-browser/internal/middleware"
	"catalog-browser/internal/textmatch"
)

type Handler struct {
	cfg    config.Config
	logger zerolog.Logger
	loader *catalog.Loader
	ledger *cart.Ledger
	assets fs.FS
}

// New wires the API. assets is where icon probes look for files.
func New(cfg config.Config, logger zerolog.Logger, loader *catalog.Loader, ledger *cart.Ledger, assets fs.FS) *Handler {
	return &Handler{cfg: cfg, logger: logger, loader: loader, ledger: ledger, assets: assets}
}

func (h *Handler) log(r *http.Request) zerolog.Logger {
	if rid := middleware.GetRequestID(r); rid != "" {
		return h.logger.With().Str("rid", rid).Logger()
	}
	return h.logger
}

// Search: GET /api/catalog?q=&offset=&limit=
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	offset := max(0, atoi(q.Get("offset"), 0))
	limit := h.cfg.LimitPage(atoi(q.Get("limit"), 0))
	spans := toBool(q.Get("spans"), true)

	snap := h.loader.Current()
	matched := snap.Search(query)
	page, remaining := catalog.Page(matched, offset, limit)

	items := make([]itemView, 0, len(page))
	for _, it := range page {
		v := newItemView(it)
		if spans {
			v.Spans = textmatch.Highlight(it.Name, query)
		}
		items = append(items, v)
	}
	resp := searchResponse{
		Query:     query,
		Total:     len(matched),
		Offset:    offset,
		Limit:     limit,
		Remaining: remaining,
		Items:     items,
	}
	if !snap.LoadedAt().IsZero() {
		resp.LoadedAt = snap.LoadedAt().Format(time.RFC3339)
	}
	if err := h.loader.LastError(); err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Item: GET /api/catalog/{key}
func (h *Handler) Item(w http.ResponseWriter, r *http.Request) {
	key := keyParam(r)
	it, ok := h.loader.Current().Get(key)
	if !ok {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	inCart := 0
	if e, ok := h.ledger.Get(key); ok {
		inCart = e.Qty
	}
	writeJSON(w, http.StatusOK, cardView(it, inCart))
}

// Reload: POST /api/catalog/reload
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	log := h.log(r)
	ctx := r.Context()
	if h.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.FetchTimeout)
		defer cancel()
	}
	snap, err := h.loader.Load(ctx)
	switch {
	case errors.Is(err, catalog.ErrStale):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		log.Warn().Err(err).Msg("catalog reload failed")
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items":     snap.Len(),
		"source":    snap.Source(),
		"loaded_at": snap.LoadedAt().Format(time.RFC3339),
	})
}

// Highlight: GET /api/highlight?text=&q=
func (h *Handler) Highlight(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, map[string]any{
		"spans": textmatch.Highlight(q.Get("text"), q.Get("q")),
	})
}

// Icon: GET /api/icon?path=. Редирект на первый существующий кандидат,
// 404 когда список исчерпан (клиент рисует заглушку).
func (h *Handler) Icon(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("path")
	resolved := icon.Resolve(raw)
	if resolved == "" {
		writeError(w, http.StatusNotFound, "no icon")
		return
	}
	if isRemote(resolved) {
		http.Redirect(w, r, resolved, http.StatusFound)
		return
	}
	if h.assets != nil {
		if found, ok := icon.Probe(h.assets, raw); ok {
			http.Redirect(w, r, "/assets/"+strings.TrimPrefix(found, "./"), http.StatusFound)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":      "icon not found",
		"candidates": icon.Candidates(raw),
	})
}

// keyParam: ключи бывают с "/" и пробелами, в пути они приходят экранированными
func keyParam(r *http.Request) string {
	v := chi.URLParam(r, "key")
	if r.URL.RawPath == "" {
		return v
	}
	if u, err := url.PathUnescape(v); err == nil {
		return u
	}
	return v
}

func isRemote(p string) bool {
	l := strings.ToLower(p)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// Cart: GET /api/cart
func (h *Handler) Cart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newCartView(h.ledger.Entries()))
}

type addRequest struct {
	Key string `json:"key"`
	Qty int    `json:"qty"`
}

// AddItem: POST /api/cart/items {"key": "...", "qty": n}
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if status, err := decodeBody(r, &req); err != nil {
		writeError(w, status, err.Error())
		return
	}
	it, ok := h.loader.Current().Get(req.Key)
	if !ok {
		writeError(w, http.StatusNotFound, "item not found")
		return
	}
	e := h.ledger.Add(it, req.Qty)
	log := h.log(r)
	log.Debug().Str("key", it.Key).Int("qty", e.Qty).Msg("cart add")
	writeJSON(w, http.StatusOK, newCartView(h.ledger.Entries()))
}

type setQtyRequest struct {
	Qty int `json:"qty"`
}

// SetQty: PUT /api/cart/items/{key} {"qty": n}
func (h *Handler) SetQty(w http.ResponseWriter, r *http.Request) {
	var req setQtyRequest
	if status, err := decodeBody(r, &req); err != nil {
		writeError(w, status, err.Error())
		return
	}
	h.mutate(w, r, func(key string) bool { return h.ledger.SetQty(key, req.Qty) })
}

func (h *Handler) Increment(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.ledger.Increment)
}

func (h *Handler) Decrement(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.ledger.Decrement)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.ledger.Remove)
}

// ClearCart: DELETE /api/cart
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.ledger.Clear()
	writeJSON(w, http.StatusOK, newCartView(nil))
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op func(key string) bool) {
	if !op(keyParam(r)) {
		writeError(w, http.StatusNotFound, "not in cart")
		return
	}
	writeJSON(w, http.StatusOK, newCartView(h.ledger.Entries()))
}
