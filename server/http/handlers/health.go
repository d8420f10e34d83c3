package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"catalog-browser/internal/catalog"
)

// Health отдаёт 200, пока процесс жив; размер каталога и время загрузки для наглядности.
func Health(loader *catalog.Loader, started time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := loader.Current()
		body := map[string]any{
			"status":   "ok",
			"uptime_s": int(time.Since(started).Seconds()),
			"items":    snap.Len(),
		}
		if !snap.LoadedAt().IsZero() {
			body["loaded_at"] = snap.LoadedAt().Format(time.RFC3339)
		}
		if err := loader.LastError(); err != nil {
			body["last_error"] = err.Error()
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(body)
	}
}
