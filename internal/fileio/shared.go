// Package fileio читает табличные выгрузки каталога (CSV, XLS, XLSX) в записи
// вида заголовок → значение.
package fileio

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// ErrUnsupported: расширение файла не поддерживается.
var ErrUnsupported = errors.New("unsupported file")

// Supported сообщает, умеет ли ReadAnyMaps читать файл с таким именем.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".xls", ".xlsx":
		return true
	}
	return false
}

// ReadAnyMaps выбирает парсер по расширению и возвращает строки как []map[header]value.
// headerRow: номер строки заголовков (1-based).
func ReadAnyMaps(r io.Reader, filename string, headerRow int) ([]map[string]string, error) {
	if headerRow < 1 {
		headerRow = 1
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return readXLSX(r, headerRow)
	case ".xls":
		return readXLS(r, headerRow)
	case ".csv":
		return readCSV(r, headerRow)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filename)
	}
}

// normalizeCell чистит значение ячейки: BOM, NBSP, крайние пробелы.
func normalizeCell(v string) string {
	v = strings.TrimPrefix(v, "\uFEFF")
	v = strings.ReplaceAll(v, "\u00A0", " ")
	return strings.TrimSpace(v)
}

// pickHeader берёт строку заголовков и подставляет "Column N" для пустых.
// Повторяющиеся заголовки получают суффикс " (2)", " (3)"...
func pickHeader(rows [][]string, headerRow int) []string {
	idx := headerRow - 1
	if idx >= len(rows) {
		idx = 0
	}
	h := rows[idx]
	out := make([]string, len(h))
	seen := make(map[string]int, len(h))
	for i, v := range h {
		v = normalizeCell(v)
		if v == "" {
			v = fmt.Sprintf("Column %d", i+1)
		}
		if n := seen[v]; n > 0 {
			seen[v] = n + 1
			v = fmt.Sprintf("%s (%d)", v, n+1)
		} else {
			seen[v] = 1
		}
		out[i] = v
	}
	return out
}

// rowsToMaps конвертирует AoA в []map по заголовкам, пропуская полностью пустые строки.
func rowsToMaps(rows [][]string, headers []string, headerRow int) []map[string]string {
	var out []map[string]string
	for r := headerRow; r < len(rows); r++ {
		rec := rows[r]
		m := make(map[string]string, len(headers))
		empty := true
		for c, h := range headers {
			var v string
			if c < len(rec) {
				v = normalizeCell(rec[c])
			}
			if v != "" {
				empty = false
			}
			m[h] = v
		}
		if !empty {
			out = append(out, m)
		}
	}
	return out
}
