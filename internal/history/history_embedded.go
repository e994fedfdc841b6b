//go:build cgo

package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	embedded "github.com/dolthub/driver"
)

const embeddedOpenMaxElapsed = 30 * time.Second

func newEmbeddedOpenBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = embeddedOpenMaxElapsed

	return bo
}

// openEmbedded opens the ledger with the embedded Dolt engine (requires CGO)
func openEmbedded(ctx context.Context, cfg *Config) (*Store, error) {
	if info, statErr := os.Stat(cfg.Dir); statErr == nil && !info.IsDir() {
		return nil, fmt.Errorf("history path %q is a file, not a directory", cfg.Dir)
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	// The embedded driver sets its working directory from the DSN path and
	// passes it through to lower layers; relative paths can end up doubled.
	absPath, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve history directory: %w", err)
	}

	initDSN := fmt.Sprintf(
		"file://%s?commitname=%s&commitemail=%s",
		absPath, cfg.CommitterName, cfg.CommitterEmail,
	)
	dbDSN := fmt.Sprintf(
		"file://%s?commitname=%s&commitemail=%s&database=%s",
		absPath, cfg.CommitterName, cfg.CommitterEmail, cfg.Database,
	)

	if err := validateDatabaseName(cfg.Database); err != nil {
		return nil, fmt.Errorf("invalid database name %q: %w", cfg.Database, err)
	}

	// Ensure the database exists through a short-lived init connection.
	initDB, initConnector, err := openEmbeddedDB(initDSN)
	if err != nil {
		return nil, err
	}
	_, err = initDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", cfg.Database))
	_ = initDB.Close()
	_ = initConnector.Close()
	if err != nil {
		return nil, fmt.Errorf("create history database: %w", err)
	}

	db, connector, err := openEmbeddedDB(dbDSN)
	if err != nil {
		return nil, err
	}

	// Do not open the first underlying connection with a caller-supplied
	// context: the embedded driver derives a session context from it and
	// reuses it across statements, so an early cancel poisons the pool.
	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		_ = connector.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}

	if err := initSchemaOnDB(ctx, db); err != nil {
		_ = db.Close()
		_ = connector.Close()
		return nil, err
	}

	return &Store{db: db, connector: connector}, nil
}

// openEmbeddedDB opens a connection using the embedded Dolt driver. The
// caller must close the connector to release filesystem locks.
func openEmbeddedDB(dsn string) (*sql.DB, *embedded.Connector, error) {
	openCfg, err := embedded.ParseDSN(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("parse history DSN: %w", err)
	}
	openCfg.BackOff = newEmbeddedOpenBackoff()

	connector, err := embedded.NewConnector(openCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create history connector: %w", err)
	}
	db := sql.OpenDB(connector)

	// Embedded Dolt is single-writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, connector, nil
}
