package db

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/surrealdb/surrealdb.go"
	"github.com/surrealdb/surrealdb.go/contrib/rews"
	"github.com/surrealdb/surrealdb.go/pkg/connection"
	"github.com/surrealdb/surrealdb.go/pkg/connection/gorillaws"
	"github.com/surrealdb/surrealdb.go/pkg/logger"
	"github.com/surrealdb/surrealdb.go/surrealcbor"
)

func init() {
	// WebSocket upgrade needs HTTP/1.1; keep ALPN from negotiating h2 on wss://.
	gorillaws.DefaultDialer.TLSClientConfig = &tls.Config{
		NextProtos: []string{"http/1.1"},
	}
}

// Config holds SurrealDB connection settings.
type Config struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
	AuthLevel string // "root" or "database"
}

// schemaSQL defines the single key-value table.
const schemaSQL = `
	DEFINE TABLE IF NOT EXISTS kv SCHEMAFULL;
	DEFINE FIELD IF NOT EXISTS value ON kv TYPE string;
	DEFINE FIELD IF NOT EXISTS updated ON kv TYPE datetime DEFAULT time::now();
`

// Surreal is a KV stored in a SurrealDB table, one record per key, over an
// auto-reconnecting WebSocket.
type Surreal struct {
	conn   *rews.Connection[*gorillaws.Connection]
	db     *surrealdb.DB
	cfg    Config
	logger logger.Logger
}

// OpenSurreal connects, signs in and selects the namespace and database.
func OpenSurreal(ctx context.Context, cfg Config, log *slog.Logger) (*Surreal, error) {
	if log == nil {
		log = slog.Default()
	}
	sdkLogger := logger.New(log.Handler())
	codec := surrealcbor.New()

	// gorillaws appends /rpc itself.
	baseURL := strings.TrimSuffix(cfg.URL, "/rpc")

	conn := rews.New(
		func(ctx context.Context) (*gorillaws.Connection, error) {
			return gorillaws.New(&connection.Config{
				BaseURL:     baseURL,
				Marshaler:   codec,
				Unmarshaler: codec,
				Logger:      sdkLogger,
			}), nil
		},
		5*time.Second,
		codec,
		sdkLogger,
	)

	retryer := rews.NewExponentialBackoffRetryer()
	retryer.InitialDelay = 1 * time.Second
	retryer.MaxDelay = 30 * time.Second
	retryer.Multiplier = 2.0
	retryer.MaxRetries = 10
	conn.Retryer = retryer

	sdkLogger.Info("connecting to SurrealDB", "url", cfg.URL)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	db, err := surrealdb.FromConnection(ctx, conn)
	if err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("from connection: %w", err)
	}

	auth := surrealdb.Auth{Username: cfg.Username, Password: cfg.Password}
	if cfg.AuthLevel == "database" {
		auth.Namespace = cfg.Namespace
		auth.Database = cfg.Database
	}
	if _, err := db.SignIn(ctx, auth); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("signin: %w", err)
	}

	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("use: %w", err)
	}

	sdkLogger.Info("SurrealDB connection established", "namespace", cfg.Namespace, "database", cfg.Database)
	return &Surreal{conn: conn, db: db, cfg: cfg, logger: sdkLogger}, nil
}

// InitSchema creates the kv table if it does not exist.
func (s *Surreal) InitSchema(ctx context.Context) error {
	if _, err := surrealdb.Query[any](ctx, s.db, schemaSQL, nil); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

type kvRecord struct {
	Value string `json:"value"`
}

func (s *Surreal) Get(ctx context.Context, key string, dst any) (bool, error) {
	results, err := surrealdb.Query[[]kvRecord](ctx, s.db,
		`SELECT value FROM type::record("kv", $key)`,
		map[string]any{"key": key})
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, wrapQueryError(err))
	}
	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return false, nil
	}
	if err := decode(key, []byte((*results)[0].Result[0].Value), dst); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Surreal) Set(ctx context.Context, key string, value any) error {
	data, err := encode(key, value)
	if err != nil {
		return err
	}
	_, err = surrealdb.Query[any](ctx, s.db,
		`UPSERT type::record("kv", $key) SET value = $value, updated = time::now() RETURN NONE`,
		map[string]any{"key": key, "value": string(data)})
	if err != nil {
		return fmt.Errorf("set %s: %w", key, wrapQueryError(err))
	}
	return nil
}

func (s *Surreal) Remove(ctx context.Context, key string) error {
	_, err := surrealdb.Query[any](ctx, s.db,
		`DELETE type::record("kv", $key)`,
		map[string]any{"key": key})
	if err != nil {
		return fmt.Errorf("remove %s: %w", key, wrapQueryError(err))
	}
	return nil
}

// Close closes the connection.
func (s *Surreal) Close(ctx context.Context) error {
	s.logger.Info("closing SurrealDB connection")
	return s.conn.Close(ctx)
}

func (s *Surreal) Backend() string { return BackendSurreal }

// WipeData deletes every stored key. Intended for tests.
func (s *Surreal) WipeData(ctx context.Context) error {
	s.logger.Warn("wiping kv table")
	if _, err := surrealdb.Query[any](ctx, s.db, "DELETE kv", nil); err != nil {
		return fmt.Errorf("delete kv: %w", err)
	}
	return nil
}
