package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Имена таблиц по object store. Имя таблицы нельзя пробрасывать
// параметром запроса, поэтому store сначала резолвится через эту мапу.
var sqliteTables = map[string]string{
	StoreSaves:   "save_records",
	StoreReplays: "replay_records",
}

// SQLiteStore — асинхронный бэкенд на встраиваемом SQLite
// (modernc.org/sqlite, без cgo). Одна таблица на object store,
// значение — JSON-блоб как есть.
type SQLiteStore struct {
	db    *sql.DB
	quota int64
}

// NewSQLiteStore открывает (или создаёт) базу по пути path.
func NewSQLiteStore(path string, quota int64) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, table := range sqliteTables {
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			updated_at INTEGER NOT NULL
		)`, table)
		if _, err := db.ExecContext(ctx, ddl); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create table %s: %w", table, err)
		}
	}

	return &SQLiteStore{db: db, quota: quota}, nil
}

func (s *SQLiteStore) table(store string) (string, error) {
	t, ok := sqliteTables[store]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownStore, store)
	}
	return t, nil
}

func (s *SQLiteStore) Get(ctx context.Context, store, key string) (json.RawMessage, error) {
	table, err := s.table(store)
	if err != nil {
		return nil, err
	}

	var value []byte
	row := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT value FROM %s WHERE key = ?", table), key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s/%s: %w", store, key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Put(ctx context.Context, store, key string, value json.RawMessage) error {
	table, err := s.table(store)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`INSERT INTO %s (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, table)
	if _, err := s.db.ExecContext(ctx, query, key, []byte(value), time.Now().UnixMilli()); err != nil {
		if isSQLiteFull(err) {
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		}
		return fmt.Errorf("put %s/%s: %w", store, key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, store, key string) error {
	table, err := s.table(store)
	if err != nil {
		return err
	}
	// DELETE по отсутствующему ключу — no-op, это поведение SQL из коробки.
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE key = ?", table), key); err != nil {
		return fmt.Errorf("delete %s/%s: %w", store, key, err)
	}
	return nil
}

func (s *SQLiteStore) GetAll(ctx context.Context, store string) ([]json.RawMessage, error) {
	table, err := s.table(store)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT value FROM %s ORDER BY updated_at DESC", table))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", store, err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		var value []byte
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", store, err)
		}
		records = append(records, value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", store, err)
	}
	return records, nil
}

func (s *SQLiteStore) CheckQuota(ctx context.Context) (QuotaInfo, error) {
	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return QuotaInfo{}, fmt.Errorf("page_count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return QuotaInfo{}, fmt.Errorf("page_size: %w", err)
	}

	usage := pageCount * pageSize
	return QuotaInfo{
		Usage:       usage,
		Quota:       s.quota,
		PercentUsed: percentUsed(usage, s.quota),
	}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func isSQLiteFull(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_FULL
}
