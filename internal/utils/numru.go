package utils

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var rxKeepNums = regexp.MustCompile(`[^\d\.\-]`)

// пробелы-разделители разрядов: NBSP, thin space, narrow NBSP, обычные
var spaceStrip = strings.NewReplacer("\u00A0", "", "\u2009", "", "\u202F", "", " ", "", "\t", "", ",", ".")

// ParseFloatRU парсит "1 234,50", "197 ,00", "2 345,6" (NBSP/NNBSP), "(15,5)" и т.п.
func ParseFloatRU(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	// бухгалтерская запись отрицательных: (123)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = spaceStrip.Replace(s)
	// оставить только цифры, точку и минус (на случай мусора вроде "руб.")
	s = rxKeepNums.ReplaceAllString(s, "")
	s = strings.Trim(s, ".")
	if s == "" || s == "-" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if neg {
		f = -f
	}
	return f, true
}

// Number приводит значение из JSON-записи к числу. Нечисловое даёт ok=false.
func Number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		return ParseFloatRU(x)
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// NumberOr: Number с дефолтом для нечисловых значений.
func NumberOr(v any, def float64) float64 {
	if f, ok := Number(v); ok {
		return f
	}
	return def
}
