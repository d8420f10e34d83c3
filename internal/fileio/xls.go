package fileio

import (
	"bytes"
	"errors"
	"io"

	xls "github.com/extrame/xls"
)

// прайсы в старом .xls обычно в cp1251, реже UTF-8
var xlsCharsets = []string{"windows-1251", "utf-8"}

const xlsProbeCols = 256

// xlsWidth ищет самую правую непустую колонку. Row.LastCol() у старых
// выгрузок врёт, поэтому ширину считаем сами.
func xlsWidth(sheet *xls.WorkSheet) int {
	width := 0
	for i := 0; i <= int(sheet.MaxRow); i++ {
		row := sheet.Row(i)
		if row == nil {
			continue
		}
		for j := xlsProbeCols - 1; j >= width; j-- {
			if normalizeCell(row.Col(j)) != "" {
				width = j + 1
				break
			}
		}
	}
	if width == 0 {
		width = 1
	}
	return width
}

func readXLS(r io.Reader, headerRow int) ([]map[string]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var wb *xls.WorkBook
	var lastErr error
	for _, cs := range xlsCharsets {
		wb, lastErr = xls.OpenReader(bytes.NewReader(b), cs)
		if lastErr == nil && wb != nil {
			break
		}
	}
	if wb == nil {
		if lastErr == nil {
			lastErr = errors.New("xls: failed to open workbook")
		}
		return nil, lastErr
	}

	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, nil
	}

	width := xlsWidth(sheet)
	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for i := 0; i <= int(sheet.MaxRow); i++ {
		cols := make([]string, width)
		if row := sheet.Row(i); row != nil {
			for j := range cols {
				cols[j] = row.Col(j)
			}
		}
		rows = append(rows, cols)
	}
	h := pickHeader(rows, headerRow)
	return rowsToMaps(rows, h, headerRow), nil
}
