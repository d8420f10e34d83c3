package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"catalog-browser/internal/cart"
	"catalog-browser/internal/catalog"
	"catalog-browser/internal/config"
	"catalog-browser/internal/debounce"
	"catalog-browser/internal/format"
	"catalog-browser/internal/report"
	"catalog-browser/internal/textmatch"
)

const help = `запрос: строка поиска (латиница тоже подходит)
команды: :add <key> [qty]  :inc <key>  :dec <key>  :rm <key>  :cart  :clear  :reload  :quit`

func main() {
	cfg := config.Load()
	// stdout занят выдачей, лог в stderr
	logger := config.SetupLogger(cfg, os.Stderr)
	rep := report.Log(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader := catalog.NewLoader(catalog.NewFeed(cfg.CatalogSource, cfg.CatalogHeaderRow, cfg.FetchTimeout), logger, rep)
	if _, err := loader.Load(ctx); err != nil {
		fmt.Fprintln(os.Stdout, err)
	}

	slot, err := cart.OpenSlot(ctx, cfg.CartStore, cfg.CartDir, cfg.CartSlot, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Str("store", cfg.CartStore).Msg("cart slot")
	}
	if c, ok := slot.(io.Closer); ok {
		defer c.Close()
	}

	b := &browser{
		out:      os.Stdout,
		loader:   loader,
		ledger:   cart.Open(ctx, slot, rep),
		pageSize: cfg.PageSize,
		logger:   logger,
	}
	fmt.Fprintln(b.out, help)
	b.search("")
	b.run(ctx, os.Stdin, cfg.SearchDebounce)
}

type browser struct {
	out      io.Writer
	loader   *catalog.Loader
	ledger   *cart.Ledger
	pageSize int
	logger   zerolog.Logger
}

// run читает строки из in до EOF или :quit. Команды выполняются сразу,
// запросы проходят через debounce. Вся печать идёт из одной горутины.
func (b *browser) run(ctx context.Context, in io.Reader, delay time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmds := make(chan string)
	queries := make(chan string)
	go func() {
		defer close(cmds)
		defer close(queries)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == ":quit" || line == ":q" {
				return
			}
			ch := queries
			if strings.HasPrefix(line, ":") {
				ch = cmds
			}
			select {
			case ch <- line:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			b.logger.Error().Err(err).Msg("stdin")
		}
	}()

	results := debounce.Stream(ctx, queries, delay)
	for cmds != nil || results != nil {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-cmds:
			if !ok {
				cmds = nil
				continue
			}
			b.command(ctx, line)
		case q, ok := <-results:
			if !ok {
				results = nil
				continue
			}
			b.search(q)
		}
	}
}

func (b *browser) search(query string) {
	cat := b.loader.Current()
	matches := cat.Search(query)
	page, rest := catalog.Page(matches, 0, b.pageSize)

	fmt.Fprintf(b.out, "найдено: %d из %d\n", len(matches), cat.Len())
	for _, it := range page {
		fmt.Fprintf(b.out, "  %-14s %s  %s\n", it.Key, mark(textmatch.Highlight(it.Name, query)), format.Price(it.PriceOrZero()))
	}
	if rest > 0 {
		fmt.Fprintf(b.out, "  ... ещё %d\n", rest)
	}
}

// mark печатает совпадения в квадратных скобках.
func mark(spans []textmatch.Span) string {
	var sb strings.Builder
	for _, s := range spans {
		if s.Match {
			sb.WriteString("[" + s.Text + "]")
		} else {
			sb.WriteString(s.Text)
		}
	}
	return sb.String()
}

func (b *browser) command(ctx context.Context, line string) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "add":
		key, qty := splitQty(arg)
		it, ok := b.loader.Current().Get(key)
		if !ok {
			fmt.Fprintf(b.out, "нет товара %q\n", key)
			return
		}
		e := b.ledger.Add(it, qty)
		fmt.Fprintf(b.out, "+ %s x%d\n", e.Item.Name, e.Qty)
	case "inc":
		b.touch(arg, b.ledger.Increment(arg))
	case "dec":
		b.touch(arg, b.ledger.Decrement(arg))
	case "rm":
		b.touch(arg, b.ledger.Remove(arg))
	case "cart":
		b.printCart()
	case "clear":
		b.ledger.Clear()
		b.printCart()
	case "reload":
		cat, err := b.loader.Load(ctx)
		if err != nil {
			fmt.Fprintln(b.out, err)
			return
		}
		fmt.Fprintf(b.out, "загружено: %d\n", cat.Len())
	case "help", "h":
		fmt.Fprintln(b.out, help)
	default:
		fmt.Fprintf(b.out, "неизвестная команда %q\n", name)
	}
}

func (b *browser) touch(key string, ok bool) {
	if !ok {
		fmt.Fprintf(b.out, "в корзине нет %q\n", key)
		return
	}
	b.printCart()
}

func (b *browser) printCart() {
	entries := b.ledger.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(b.out, "корзина пуста")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(b.out, "  %-14s %s x%d = %s\n", e.Item.Key, e.Item.Name, e.Qty, format.Price(e.Sum()))
	}
	fmt.Fprintf(b.out, "позиций: %d, итого: %s\n", len(entries), format.Price(cart.Total(entries)))
}

// splitQty отделяет количество от ключа: ключи могут содержать пробелы,
// поэтому число берётся только из последнего слова.
func splitQty(arg string) (string, int) {
	i := strings.LastIndexByte(arg, ' ')
	if i < 0 {
		return arg, 1
	}
	n, err := strconv.Atoi(arg[i+1:])
	if err != nil {
		return arg, 1
	}
	return strings.TrimSpace(arg[:i]), n
}
