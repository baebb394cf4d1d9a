// Package sqlstore implements app.Storage on database/sql for SQLite and MySQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect holds the statements that differ between engines.
type Dialect struct {
	Name   string
	Schema string
	Upsert string
}

var (
	SQLite = Dialect{
		Name: "sqlite3",
		Schema: `CREATE TABLE IF NOT EXISTS kv_store (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at_unix INTEGER NOT NULL DEFAULT (strftime('%s','now'))
		);`,
		Upsert: `INSERT INTO kv_store (key, value, updated_at_unix) VALUES (?, ?, strftime('%s','now'))
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at_unix = excluded.updated_at_unix`,
	}
	MySQL = Dialect{
		Name: "mysql",
		Schema: "CREATE TABLE IF NOT EXISTS kv_store (" +
			"`key` VARCHAR(191) PRIMARY KEY, " +
			"`value` LONGTEXT NOT NULL, " +
			"updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP" +
			") CHARACTER SET utf8mb4",
		Upsert: "INSERT INTO kv_store (`key`, `value`) VALUES (?, ?) " +
			"ON DUPLICATE KEY UPDATE `value` = VALUES(`value`)",
	}
)

func (d Dialect) selectQuery() string {
	if d.Name == MySQL.Name {
		return "SELECT `value` FROM kv_store WHERE `key` = ?"
	}
	return `SELECT value FROM kv_store WHERE key = ?`
}

// Store is a key-value table behind database/sql.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLite opens (creating if needed) a SQLite file and its schema.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		path = "science-quiz.db"
	}
	db, err := sql.Open(SQLite.Name, path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return newStore(ctx, db, SQLite)
}

// OpenMySQL connects with dsn and ensures the schema exists.
func OpenMySQL(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("mysql dsn not configured")
	}
	db, err := sql.Open(MySQL.Name, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return newStore(ctx, db, MySQL)
}

// New wraps an open handle; the schema is created if missing.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	return newStore(ctx, db, dialect)
}

func newStore(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	if _, err := db.ExecContext(ctx, dialect.Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init %s schema: %w", dialect.Name, err)
	}
	return &Store{db: db, dialect: dialect}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.dialect.selectQuery(), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s get %s: %w", s.dialect.Name, key, err)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.Upsert, key, value); err != nil {
		return fmt.Errorf("%s set %s: %w", s.dialect.Name, key, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
