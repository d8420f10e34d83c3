package cart

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrEmptySlot is returned by Slot.Read when nothing was saved yet.
var ErrEmptySlot = errors.New("cart slot is empty")

// Slot is a single named place the cart is saved to.
type Slot interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// MemorySlot keeps the payload in memory. WriteErr, when set, makes every
// write fail.
type MemorySlot struct {
	mu       sync.Mutex
	data     []byte
	WriteErr error
}

func (s *MemorySlot) Read(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		return nil, ErrEmptySlot
	}
	return append([]byte(nil), s.data...), nil
}

func (s *MemorySlot) Write(_ context.Context, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.WriteErr != nil {
		return s.WriteErr
	}
	s.data = append([]byte(nil), data...)
	return nil
}

// FileSlot stores the payload in <dir>/<name>.json. Writes are atomic:
// temp file, fsync, rename, then fsync of the directory.
type FileSlot struct {
	path string
}

func NewFileSlot(dir, name string) (*FileSlot, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("cart dir is required")
	}
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) {
		return nil, fmt.Errorf("invalid slot name %q", name)
	}
	return &FileSlot{path: filepath.Join(dir, name+".json")}, nil
}

func (s *FileSlot) Path() string { return s.path }

func (s *FileSlot) Read(context.Context) ([]byte, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrEmptySlot
	}
	return b, err
}

func (s *FileSlot) Write(_ context.Context, data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return err
	}
	committed = true
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.Sync(); err != nil && !errors.Is(err, os.ErrInvalid) {
		return err
	}
	return nil
}

const createSlotsTable = `CREATE TABLE IF NOT EXISTS cart_slots (
	name       text PRIMARY KEY,
	payload    text NOT NULL,
	updated_at timestamptz NOT NULL DEFAULT now()
)`

// PostgresSlot stores the payload in the cart_slots table, one row per slot.
type PostgresSlot struct {
	db   *sql.DB
	name string
}

// OpenPostgres connects through the pgx driver and makes sure the table exists.
func OpenPostgres(ctx context.Context, dsn, name string) (*PostgresSlot, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.ExecContext(ctx, createSlotsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cart_slots: %w", err)
	}
	return &PostgresSlot{db: db, name: name}, nil
}

func (s *PostgresSlot) Read(ctx context.Context) ([]byte, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM cart_slots WHERE name = $1`, s.name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEmptySlot
	}
	if err != nil {
		return nil, err
	}
	return []byte(payload), nil
}

func (s *PostgresSlot) Write(ctx context.Context, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_slots (name, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		s.name, string(data))
	return err
}

func (s *PostgresSlot) Close() error { return s.db.Close() }

// OpenSlot picks the backend by store: "postgres" or "file" (default).
// The returned slot may implement io.Closer.
func OpenSlot(ctx context.Context, store, dir, name, dsn string) (Slot, error) {
	switch store {
	case "postgres", "pg":
		s, err := OpenPostgres(ctx, dsn, name)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "", "file":
		s, err := NewFileSlot(dir, name)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return &MemorySlot{}, nil
	default:
		return nil, fmt.Errorf("unknown CART_STORE %q", store)
	}
}
