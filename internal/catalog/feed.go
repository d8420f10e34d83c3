package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"catalog-browser/internal/fileio"
)

// Feed produces raw catalog records.
type Feed interface {
	Fetch(ctx context.Context) ([]Record, error)
	Source() string
}

// maxFeedBytes caps a feed download.
const maxFeedBytes = 64 << 20

// HTTPFeed downloads a JSON array over HTTP, bypassing caches.
type HTTPFeed struct {
	URL    string
	Client *http.Client
}

func (f HTTPFeed) Source() string { return f.URL }

func (f HTTPFeed) Fetch(ctx context.Context) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return Decode(body)
}

// headerAliases maps spreadsheet columns onto record fields.
var headerAliases = []fileio.Alias{
	{Key: FieldID, Names: "id|код|артикул"},
	{Key: FieldName, Names: "name|наименование|название"},
	{Key: FieldPrice, Names: "цена|стоимость"},
	{Key: FieldIcon, Names: "icon|иконка|изображение"},
	{Key: FieldURL, Names: "url|ссылка"},
}

// FileFeed reads a local file: .json (array) or a CSV/XLS/XLSX table.
type FileFeed struct {
	Path      string
	HeaderRow int
}

func (f FileFeed) Source() string { return f.Path }

func (f FileFeed) Fetch(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(f.Path), ".json") {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return nil, err
		}
		return Decode(data)
	}
	if !fileio.Supported(f.Path) {
		return nil, fmt.Errorf("%w: %s (ожидается .json, .csv, .xls или .xlsx)", fileio.ErrUnsupported, filepath.Base(f.Path))
	}

	file, err := os.Open(f.Path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rows, err := fileio.ReadAnyMaps(file, f.Path, f.HeaderRow)
	if err != nil {
		return nil, err
	}
	rows = fileio.Canonicalize(rows, headerAliases)
	out := make([]Record, len(rows))
	for i, row := range rows {
		rec := make(Record, len(row))
		for k, v := range row {
			rec[k] = v
		}
		out[i] = rec
	}
	return out, nil
}

// NewFeed picks a feed for source: http(s) URLs are downloaded, anything
// else is read from disk.
func NewFeed(source string, headerRow int, timeout time.Duration) Feed {
	lower := strings.ToLower(source)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return HTTPFeed{URL: source, Client: &http.Client{Timeout: timeout}}
	}
	return FileFeed{Path: source, HeaderRow: headerRow}
}
