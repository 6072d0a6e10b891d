// Package store persists the users, sessions, questions, answers, and likes of
// the site in a SQL database.
package store

import (
	"database/sql"
	"database/sql/driver"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound means a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a record conflicts with an existing one.
	ErrConflict = errors.New("conflict")
)

// The supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

//go:embed migrations
var migrationFS embed.FS

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction(
		"ulower",
		1,
		ulower,
	); err != nil {
		panic(err)
	}
}

// ulower is the SQLite function that lowers its text argument with the
// Unicode case mapping. The built-in LOWER only folds ASCII.
func ulower(
	_ *sqlite.FunctionContext,
	args []driver.Value,
) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	}

	return args[0], nil
}

// Store is a SQL-backed store of the site records.
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open opens the database named by the dsn with the driver, which must be one
// of the `DriverSQLite` and the `DriverPostgres`, and applies the pending
// migrations to it.
func Open(driver, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("database dsn is required")
	}

	switch driver {
	case DriverSQLite:
		dsn = sqliteDSN(dsn)
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	if err := migrateUp(driver, dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// New returns a new instance of the `Store` on top of an already migrated
// db opened with the driver.
func New(db *sql.DB, driver string) *Store {
	return &Store{db: sqlx.NewDb(db, driver), driver: driver}
}

// Driver returns the name of the database driver of the s.
func (s *Store) Driver() string {
	return s.driver
}

// SetMaxOpenConns sets the maximum number of open connections of the s.
func (s *Store) SetMaxOpenConns(n int) {
	s.db.SetMaxOpenConns(n)
}

// Close closes the s.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}

	return s.db.Close()
}

// sqliteDSN appends the pragmas the s relies on to the dsn.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	return dsn + sep + "_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)"
}

// migrateUp applies the pending migrations embedded for the driver to the
// database named by the dsn.
func migrateUp(driver, dsn string) error {
	src, err := iofs.New(migrationFS, "migrations/"+driver)
	if err != nil {
		return err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		src.Close()
		return err
	}

	var m *migrate.Migrate
	switch driver {
	case DriverSQLite:
		dbDriver, err := migratesqlite.WithInstance(
			db,
			&migratesqlite.Config{},
		)
		if err != nil {
			db.Close()
			src.Close()
			return err
		}

		m, err = migrate.NewWithInstance("iofs", src, driver, dbDriver)
		if err != nil {
			db.Close()
			src.Close()
			return err
		}
	case DriverPostgres:
		dbDriver, err := migratepostgres.WithInstance(
			db,
			&migratepostgres.Config{},
		)
		if err != nil {
			db.Close()
			src.Close()
			return err
		}

		m, err = migrate.NewWithInstance("iofs", src, driver, dbDriver)
		if err != nil {
			db.Close()
			src.Close()
			return err
		}
	}

	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}

// rebind rebinds the query to the placeholder syntax of the driver of the s.
func (s *Store) rebind(query string) string {
	return s.db.Rebind(query)
}

// isUniqueViolation reports whether the err is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}

	return false
}

// toMillis returns the t as Unix milliseconds.
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// fromMillis returns the Unix milliseconds ms as a UTC time.
func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// nowIfZero returns the t or, if it is zero, the current time truncated to
// milliseconds.
func nowIfZero(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}

	return t.UTC().Truncate(time.Millisecond)
}
