package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrNotConfigured is returned by Connect when no DSN is available.
var ErrNotConfigured = errors.New("database is not configured: set DATABASE_URL or POSTGRES_URL")

type Config struct {
	DSN            string
	MaxConns       int
	Timeout        time.Duration
	TimeZone       string
	ClientEncoding string
}

// ConfigFromEnv reads DB config from environment variables.
// DATABASE_URL wins over POSTGRES_URL; an empty DSN means the app runs in
// guard mode.
func ConfigFromEnv() Config {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = os.Getenv("POSTGRES_URL")
	}
	tz := os.Getenv("DATABASE_TIMEZONE")
	enc := os.Getenv("DATABASE_CLIENT_ENCODING")
	return Config{DSN: dsn, MaxConns: 5, Timeout: 5 * time.Second, TimeZone: tz, ClientEncoding: enc}
}

// Configured reports whether a DSN is present.
func (c Config) Configured() bool { return strings.TrimSpace(c.DSN) != "" }

// DB is the process-wide persistence handle. It is built once in main and
// injected into repositories; EnsureSchema runs migrations at most once.
type DB struct {
	*sqlx.DB

	schemaOnce sync.Once
	schemaErr  error
}

// New wraps an existing connection pool.
func New(db *sqlx.DB) *DB { return &DB{DB: db} }

// Connect opens the pool and verifies connectivity with a ping.
func Connect(cfg Config) (*DB, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	db, err := sqlx.Open("postgres", withSessionParams(cfg))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return New(db), nil
}

// EnsureSchema applies pending migrations. Only the first call touches the
// database; later calls return the first call's result.
func (d *DB) EnsureSchema(ctx context.Context) error {
	d.schemaOnce.Do(func() {
		d.schemaErr = migrate(ctx, d.DB.DB)
	})
	return d.schemaErr
}

// withSessionParams passes timezone and client_encoding as startup
// parameters so every pooled connection gets them, not only the first one.
func withSessionParams(cfg Config) string {
	var params [][2]string
	if cfg.TimeZone != "" {
		params = append(params, [2]string{"timezone", cfg.TimeZone})
	}
	if cfg.ClientEncoding != "" {
		params = append(params, [2]string{"client_encoding", cfg.ClientEncoding})
	}
	if len(params) == 0 {
		return cfg.DSN
	}
	if strings.HasPrefix(cfg.DSN, "postgres://") || strings.HasPrefix(cfg.DSN, "postgresql://") {
		u, err := url.Parse(cfg.DSN)
		if err != nil {
			return cfg.DSN
		}
		q := u.Query()
		for _, p := range params {
			q.Set(p[0], p[1])
		}
		u.RawQuery = q.Encode()
		return u.String()
	}
	dsn := cfg.DSN
	for _, p := range params {
		dsn += " " + p[0] + "=" + quoteLiteral(p[1])
	}
	return dsn
}

// quoteLiteral escapes backslashes and single quotes and wraps the value in
// single quotes, as the key/value connection string format expects.
func quoteLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
