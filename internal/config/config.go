package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Host         string
	Port         int
	AllowOrigins []string
	LogLevel     string
	LogFile      string
	MaxBodyKB    int

	CatalogSource    string
	CatalogHeaderRow int
	FetchTimeout     time.Duration

	CartStore   string // file | postgres
	CartDir     string
	CartSlot    string
	DatabaseURL string

	AssetsDir      string
	PageSize       int
	SearchDebounce time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
	// TrustedProxies: IP/CIDR, от которых принимаем X-Forwarded-For
	TrustedProxies []string
}

const MaxPageSize = 200

// Load читает окружение. Вне production сначала подтягивается .env
// (значения из файла перекрывают окружение).
func Load() Config {
	if os.Getenv("ENV") != "production" {
		_ = godotenv.Overload(".env")
	}
	return fromEnv()
}

func fromEnv() Config {
	page := clamp(atoi(getenv("PAGE_SIZE", "50"), 50), 1, MaxPageSize)
	return Config{
		Host:         getenv("HOST", "127.0.0.1"),
		Port:         atoi(getenv("PORT", "8082"), 8082),
		AllowOrigins: list(getenv("ALLOW_ORIGINS", "*")),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		LogFile:      os.Getenv("LOG_FILE"),
		MaxBodyKB:    atoi(getenv("MAX_BODY_KB", "64"), 64),

		CatalogSource:    getenv("CATALOG_SOURCE", "./data/data.json"),
		CatalogHeaderRow: atoi(getenv("CATALOG_HEADER_ROW", "1"), 1),
		FetchTimeout:     duration(getenv("FETCH_TIMEOUT", "15s"), 15*time.Second),

		CartStore:   strings.ToLower(getenv("CART_STORE", "file")),
		CartDir:     getenv("CART_DIR", "./state"),
		CartSlot:    getenv("CART_SLOT", "cart"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		AssetsDir:      getenv("ASSETS_DIR", "."),
		PageSize:       page,
		SearchDebounce: time.Duration(atoi(getenv("SEARCH_DEBOUNCE_MS", "200"), 200)) * time.Millisecond,

		RateLimitRPS:   float(getenv("RATE_LIMIT_RPS", "20"), 20),
		RateLimitBurst: atoi(getenv("RATE_LIMIT_BURST", "40"), 40),
		TrustedProxies: list(os.Getenv("TRUSTED_PROXIES")),
	}
}

func (c Config) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// LimitPage применяет дефолт и потолок к limit из запроса.
func (c Config) LimitPage(limit int) int {
	if limit <= 0 {
		return c.PageSize
	}
	return min(limit, MaxPageSize)
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(s string, def int) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return i
}

func float(s string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return def
	}
	return f
}

// duration принимает "15s" и голые секунды "15".
func duration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

// list режет значение по запятым, пустые элементы отбрасывает.
func list(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func clamp(v, lo, hi int) int { return max(lo, min(v, hi)) }
