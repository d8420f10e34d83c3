// Package catalog loads the product feed, deduplicates it and keeps the
// current snapshot that search and the cart work against.
package catalog

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"catalog-browser/internal/icon"
	"catalog-browser/internal/utils"
)

// Field names of a feed record.
const (
	FieldID    = "item_id"
	FieldName  = "item_name"
	FieldPrice = "price"
	FieldIcon  = "icon_local_path"
	FieldURL   = "Url"
)

// ErrNotArray is returned for a payload whose top level is not a JSON array.
var ErrNotArray = errors.New("некорректный формат JSON: ожидается массив")

// Record is one raw feed entry. Any field may be missing or of any JSON type.
type Record map[string]any

// Item is a catalog entry as the rest of the app sees it.
type Item struct {
	Key      string         `json:"key"`
	Index    int            `json:"index"`
	Name     string         `json:"name"`
	Price    float64        `json:"price"`
	IconPath string         `json:"icon_path"`
	URL      string         `json:"url,omitempty"`
	Fields   map[string]any `json:"fields,omitempty"`
}

// Decode parses a feed payload. Elements that are not objects become empty
// records so that positions (and positional keys) are preserved.
func Decode(data []byte) ([]Record, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil, ErrNotArray
	}
	out := make([]Record, len(arr))
	for i, v := range arr {
		if m, ok := v.(map[string]any); ok {
			out[i] = m
		} else {
			out[i] = Record{}
		}
	}
	return out, nil
}

// Key derives the dedupe key of the record at position i:
// item_id, else item_name, else "#i". Empty strings, zero, false and null do not count.
// The positional key is prefixed so record 0 never merges with an item named "0".
func Key(rec Record, i int) string {
	if v := rec[FieldID]; truthy(v) {
		return stringify(v)
	}
	if v := rec[FieldName]; truthy(v) {
		return stringify(v)
	}
	return "#" + strconv.Itoa(i)
}

// Build deduplicates records by Key, keeping the first one seen, and resolves
// every icon path once. Input order is preserved.
func Build(records []Record) []Item {
	seen := make(map[string]struct{}, len(records))
	items := make([]Item, 0, len(records))
	for i, rec := range records {
		key := Key(rec, i)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, NewItem(rec, key, i))
	}
	return items
}

// NewItem builds an item from a record whose key is already known.
func NewItem(rec Record, key string, i int) Item {
	fields := make(map[string]any, len(rec)+1)
	for k, v := range rec {
		fields[k] = v
	}
	iconPath := icon.Resolve(text(rec[FieldIcon]))
	fields[FieldIcon] = iconPath

	price, ok := utils.Number(rec[FieldPrice])
	if !ok {
		price = math.NaN()
	}
	return Item{
		Key:      key,
		Index:    i,
		Name:     text(rec[FieldName]),
		Price:    price,
		IconPath: iconPath,
		URL:      strings.TrimSpace(text(rec[FieldURL])),
		Fields:   fields,
	}
}

// PriceOrZero is the price used for totals and display.
func (it Item) PriceOrZero() float64 {
	if math.IsNaN(it.Price) || math.IsInf(it.Price, 0) {
		return 0
	}
	return it.Price
}

// MarshalJSON keeps a non-numeric price encodable.
func (it Item) MarshalJSON() ([]byte, error) {
	type plain Item
	p := plain(it)
	p.Price = it.PriceOrZero()
	return json.Marshal(p)
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case float64:
		return x != 0 && !math.IsNaN(x)
	case bool:
		return x
	default:
		return true
	}
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// text is like stringify but treats missing values as "".
func text(v any) string {
	if v == nil {
		return ""
	}
	return stringify(v)
}
