// Package history persists per-cycle velocity samples in a Dolt database.
//
// Two access modes, matching how teams run Dolt:
//   - Embedded via github.com/dolthub/driver (no server required, CGO builds)
//   - Server mode via the MySQL wire protocol against a dolt sql-server
//
// Samples recorded at cycle close feed the next plan's velocity derivation,
// so a team that records every cycle converges on high-confidence capacity
// numbers without hand-maintaining snapshot files.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	// MySQL wire protocol driver for server mode.
	_ "github.com/go-sql-driver/mysql"

	"github.com/abacushq/abacus/internal/types"
)

// ErrNoSamples indicates the team has no recorded cycles yet
var ErrNoSamples = errors.New("no recorded samples")

// recentSampleLimit caps how many trailing cycles feed velocity derivation
const recentSampleLimit = 12

// Config holds history database configuration
type Config struct {
	Dir            string // path to the Dolt database directory (embedded mode)
	Database       string // database name within Dolt (default: "abacus")
	CommitterName  string // Dolt commit author name
	CommitterEmail string // Dolt commit author email

	// Server mode options
	ServerMode     bool   // connect to a dolt sql-server instead of embedded
	ServerHost     string // server host (default: 127.0.0.1)
	ServerPort     int    // server port (default: 3307)
	ServerUser     string // MySQL user (default: root)
	ServerPassword string // MySQL password
	ServerTLS      bool   // enable TLS for server connections
}

// SetDefaults fills unset fields with working defaults
func (c *Config) SetDefaults() {
	if c.Database == "" {
		c.Database = "abacus"
	}
	if c.CommitterName == "" {
		c.CommitterName = "abacus"
	}
	if c.CommitterEmail == "" {
		c.CommitterEmail = "abacus@localhost"
	}
	if c.ServerHost == "" {
		c.ServerHost = "127.0.0.1"
	}
	if c.ServerPort == 0 {
		c.ServerPort = 3307
	}
	if c.ServerUser == "" {
		c.ServerUser = "root"
	}
}

// Sample is one recorded cycle outcome
type Sample struct {
	Team       string    `json:"team"`
	Cycle      int       `json:"cycle"`
	Points     float64   `json:"points"`
	CycleDays  int       `json:"cycleDays"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Store provides access to the velocity ledger. One Store is safe for
// concurrent use; embedded mode serializes through a single connection.
type Store struct {
	db         *sql.DB
	connector  io.Closer // embedded connector; closing releases filesystem locks
	serverMode bool
}

const schema = `
CREATE TABLE IF NOT EXISTS velocity_samples (
    team         VARCHAR(64)  NOT NULL,
    cycle_number INT          NOT NULL,
    points       DOUBLE       NOT NULL,
    cycle_days   INT          NOT NULL DEFAULT 14,
    recorded_at  TIMESTAMP    NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (team, cycle_number)
)`

// Open opens the velocity ledger, creating the database and schema on first
// use. Embedded mode requires a CGO build; server mode works in any build.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	cfg.SetDefaults()
	if cfg.ServerMode {
		return openServer(ctx, &cfg)
	}
	return openEmbedded(ctx, &cfg)
}

// Close releases the database handle and, in embedded mode, the filesystem
// locks held by the connector.
func (s *Store) Close() error {
	var firstErr error
	if s.db != nil {
		firstErr = s.db.Close()
	}
	if s.connector != nil {
		if err := s.connector.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Record stores one cycle's completed points, replacing any earlier record
// for the same team and cycle so corrections are possible.
func (s *Store) Record(ctx context.Context, team string, cycle int, points float64, cycleDays int) error {
	if team == "" {
		return fmt.Errorf("team is required")
	}
	if cycle < 0 {
		return fmt.Errorf("cycle number cannot be negative")
	}
	if points < 0 {
		return fmt.Errorf("points cannot be negative")
	}
	if cycleDays <= 0 {
		cycleDays = types.DefaultCycleDays
	}

	_, err := s.execContext(ctx, `
		INSERT INTO velocity_samples (team, cycle_number, points, cycle_days)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			points = VALUES(points),
			cycle_days = VALUES(cycle_days),
			recorded_at = CURRENT_TIMESTAMP`,
		team, cycle, points, cycleDays)
	if err != nil {
		return fmt.Errorf("record sample for %s cycle %d: %w", team, cycle, err)
	}
	return nil
}

// Samples returns up to limit of the team's most recent samples, oldest
// first. limit <= 0 applies the derivation window default.
func (s *Store) Samples(ctx context.Context, team string, limit int) ([]Sample, error) {
	if limit <= 0 {
		limit = recentSampleLimit
	}

	rows, err := s.queryContext(ctx, `
		SELECT team, cycle_number, points, cycle_days, recorded_at
		FROM velocity_samples
		WHERE team = ?
		ORDER BY cycle_number DESC
		LIMIT ?`,
		team, limit)
	if err != nil {
		return nil, fmt.Errorf("query samples for %s: %w", team, err)
	}
	defer func() { _ = rows.Close() }()

	var newestFirst []Sample
	for rows.Next() {
		var sm Sample
		if err := rows.Scan(&sm.Team, &sm.Cycle, &sm.Points, &sm.CycleDays, &sm.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		newestFirst = append(newestFirst, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}

	// The LIMIT keeps the newest N; derivation wants them oldest first.
	out := make([]Sample, len(newestFirst))
	for i, sm := range newestFirst {
		out[len(out)-1-i] = sm
	}
	return out, nil
}

// Velocity derives velocity statistics from the team's recorded samples
func (s *Store) Velocity(ctx context.Context, team string, cycleDays int) (types.VelocityHistory, error) {
	samples, err := s.Samples(ctx, team, recentSampleLimit)
	if err != nil {
		return types.VelocityHistory{}, err
	}
	return deriveHistory(samples, cycleDays)
}

// deriveHistory turns recorded samples into the velocity section the
// planner consumes.
func deriveHistory(samples []Sample, cycleDays int) (types.VelocityHistory, error) {
	if len(samples) == 0 {
		return types.VelocityHistory{}, ErrNoSamples
	}
	points := make([]float64, len(samples))
	for i, sm := range samples {
		points[i] = sm.Points
	}
	return types.DeriveVelocity(points, cycleDays), nil
}

// initSchemaOnDB creates the ledger table if it does not exist
func initSchemaOnDB(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create velocity_samples table: %w", err)
	}
	return nil
}

const serverRetryMaxElapsed = 30 * time.Second

func newServerRetryBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = serverRetryMaxElapsed
	return bo
}

// isRetryableError reports whether the error is a transient connection
// failure worth retrying in server mode.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	for _, marker := range []string{
		"driver: bad connection",
		"invalid connection",
		"broken pipe",
		"connection reset",
		"connection refused",
		"lost connection",
		"gone away",
		"i/o timeout",
		"database is read only",
	} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}

// withRetry executes an operation with retry for transient errors.
// Only active in server mode; the embedded driver retries at open time.
func (s *Store) withRetry(ctx context.Context, op func() error) error {
	if !s.serverMode {
		return op()
	}

	bo := newServerRetryBackoff()
	return backoff.Retry(func() error {
		err := op()
		if err != nil && isRetryableError(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(bo, ctx))
}

func (s *Store) execContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var result sql.Result
	err := s.withRetry(ctx, func() error {
		var execErr error
		result, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	return result, err
}

func (s *Store) queryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	var rows *sql.Rows
	err := s.withRetry(ctx, func() error {
		var queryErr error
		rows, queryErr = s.db.QueryContext(ctx, query, args...)
		return queryErr
	})
	return rows, err
}

// buildServerDSN constructs a MySQL DSN for connecting to a dolt sql-server.
// An empty database connects without selecting one, for init operations.
func buildServerDSN(cfg *Config, database string) string {
	userPart := cfg.ServerUser
	if cfg.ServerPassword != "" {
		userPart = fmt.Sprintf("%s:%s", cfg.ServerUser, cfg.ServerPassword)
	}

	dbPart := "/"
	if database != "" {
		dbPart += database
	}

	params := "parseTime=true"
	if cfg.ServerTLS {
		params += "&tls=true"
	}

	return fmt.Sprintf("%s@tcp(%s:%d)%s?%s",
		userPart, cfg.ServerHost, cfg.ServerPort, dbPart, params)
}

// openServer connects to a dolt sql-server over the MySQL protocol
func openServer(ctx context.Context, cfg *Config) (*Store, error) {
	db, err := sql.Open("mysql", buildServerDSN(cfg, cfg.Database))
	if err != nil {
		return nil, fmt.Errorf("open server connection: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Create the database through a connection that does not select it.
	initDB, err := sql.Open("mysql", buildServerDSN(cfg, ""))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open init connection: %w", err)
	}
	defer func() { _ = initDB.Close() }()

	if err := validateDatabaseName(cfg.Database); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("invalid database name %q: %w", cfg.Database, err)
	}
	if _, err := initDB.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", cfg.Database)); err != nil {
		// Dolt can return error 1007 even with IF NOT EXISTS.
		errLower := strings.ToLower(err.Error())
		if !strings.Contains(errLower, "database exists") && !strings.Contains(errLower, "1007") {
			_ = db.Close()
			if strings.Contains(errLower, "connection refused") {
				return nil, fmt.Errorf("connect to dolt sql-server at %s:%d: %w (is the server running?)",
					cfg.ServerHost, cfg.ServerPort, err)
			}
			return nil, fmt.Errorf("create database: %w", err)
		}
	}

	if err := initSchemaOnDB(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, serverMode: true}, nil
}

// validateDatabaseName guards the backtick-quoted CREATE DATABASE statement
func validateDatabaseName(name string) error {
	if name == "" {
		return fmt.Errorf("name is empty")
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return fmt.Errorf("character %q not allowed", r)
		}
	}
	return nil
}
