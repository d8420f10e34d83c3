package fileio

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// readCSV читает CSV выгрузку каталога. Кодировка (UTF-8 или Windows-1251)
// определяется по первым байтам, разделитель (",", ";" или таб) по первой строке.
func readCSV(r io.Reader, headerRow int) ([]map[string]string, error) {
	br := bufio.NewReader(r)

	peek, _ := br.Peek(4096)
	var dec io.Reader = br
	if isCP1251(peek) {
		dec = transform.NewReader(br, charmap.Windows1251.NewDecoder())
		peek, _ = charmap.Windows1251.NewDecoder().Bytes(peek)
	}

	cr := csv.NewReader(dec)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.Comma = sniffComma(peek)

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	h := pickHeader(rows, headerRow)
	return rowsToMaps(rows, h, headerRow), nil
}

func isCP1251(peek []byte) bool {
	if len(peek) == 0 || bytes.HasPrefix(peek, []byte("\xEF\xBB\xBF")) {
		return false
	}
	det, err := chardet.NewTextDetector().DetectBest(peek)
	if err != nil || det == nil {
		return false
	}
	switch strings.ToLower(det.Charset) {
	case "windows-1251", "cp1251":
		return true
	}
	return false
}

// sniffComma: русский Excel сохраняет CSV через ";"
func sniffComma(peek []byte) rune {
	line := peek
	if i := bytes.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	best, bestN := ',', bytes.Count(line, []byte{','})
	for _, c := range []rune{';', '\t'} {
		if n := bytes.Count(line, []byte(string(c))); n > bestN {
			best, bestN = c, n
		}
	}
	return best
}
