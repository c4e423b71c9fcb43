// Package sqlstore persists users and password reset requests in SQL. SQLite
// (modernc.org/sqlite) and PostgreSQL (pgx stdlib) are supported; the schema
// is managed by embedded goose migrations.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/MrEthical07/tokenlife"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrations embed.FS

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

var (
	_ tokenlife.UserDirectory     = (*Store)(nil)
	_ tokenlife.ResetRequestStore = (*Store)(nil)
)

// ErrUnsupportedDriver is returned by Open for drivers other than
// [DriverSQLite] and [DriverPostgres].
var ErrUnsupportedDriver = errors.New("sqlstore: unsupported driver")

// Store implements [tokenlife.UserDirectory] and
// [tokenlife.ResetRequestStore].
type Store struct {
	db     *sqlx.DB
	driver string
}

// Open connects to dsn and applies pending migrations.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: connect: %w", err)
	}
	if driver == DriverSQLite {
		// A single connection serialises writers and keeps :memory: databases
		// shared across calls.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlstore: enable foreign keys: %w", err)
		}
	}

	s := &Store{db: db, driver: driver}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies every embedded migration not yet recorded in
// goose_db_version. It is safe to call repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	dialect, dir := goose.DialectSQLite3, "migrations/sqlite"
	if s.driver == DriverPostgres {
		dialect, dir = goose.DialectPostgres, "migrations/postgres"
	}

	fsys, err := fs.Sub(migrations, dir)
	if err != nil {
		return fmt.Errorf("sqlstore: migrations: %w", err)
	}
	provider, err := goose.NewProvider(dialect, s.db.DB, fsys)
	if err != nil {
		return fmt.Errorf("sqlstore: migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("sqlstore: migrate up: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

type userRow struct {
	ID           string `db:"id"`
	Username     string `db:"username"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	Authorities  string `db:"authorities"`
	CreatedAt    int64  `db:"created_at"`
}

func (r userRow) record() tokenlife.UserRecord {
	var authorities []string
	if r.Authorities != "" {
		authorities = strings.Split(r.Authorities, ",")
	}
	return tokenlife.UserRecord{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Authorities:  authorities,
	}
}

const userColumns = "id, username, email, password_hash, authorities, created_at"

func (s *Store) getUser(ctx context.Context, where string, arg any) (tokenlife.UserRecord, error) {
	var row userRow
	query := s.db.Rebind("SELECT " + userColumns + " FROM users WHERE " + where)
	if err := s.db.GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tokenlife.UserRecord{}, tokenlife.ErrUserNotFound
		}
		return tokenlife.UserRecord{}, fmt.Errorf("sqlstore: load user: %w", err)
	}
	return row.record(), nil
}

// LoadUser returns the user with the given username.
func (s *Store) LoadUser(ctx context.Context, username string) (tokenlife.UserRecord, error) {
	return s.getUser(ctx, "username = ?", username)
}

// FindByEmail matches email case-insensitively.
func (s *Store) FindByEmail(ctx context.Context, email string) (tokenlife.UserRecord, error) {
	return s.getUser(ctx, "LOWER(email) = LOWER(?)", email)
}

// FindByID returns the user with the given id.
func (s *Store) FindByID(ctx context.Context, id string) (tokenlife.UserRecord, error) {
	return s.getUser(ctx, "id = ?", id)
}

// Save updates the user identified by user.ID, inserting it when absent.
func (s *Store) Save(ctx context.Context, user tokenlife.UserRecord) error {
	if user.ID == "" {
		return errors.New("sqlstore: save user: empty id")
	}
	authorities := strings.Join(user.Authorities, ",")

	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`UPDATE users SET username = ?, email = ?, password_hash = ?, authorities = ? WHERE id = ?`),
		user.Username, user.Email, user.PasswordHash, authorities, user.ID)
	if err != nil {
		return fmt.Errorf("sqlstore: update user: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("sqlstore: update user: %w", err)
	} else if n > 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`),
		user.ID, user.Username, user.Email, user.PasswordHash, authorities, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("sqlstore: insert user: %w", err)
	}
	return nil
}

// CreateUser inserts a new user, assigning a random ID when user.ID is empty.
func (s *Store) CreateUser(ctx context.Context, user tokenlife.UserRecord) (tokenlife.UserRecord, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`),
		user.ID, user.Username, user.Email, user.PasswordHash,
		strings.Join(user.Authorities, ","), time.Now().UnixMilli())
	if err != nil {
		return tokenlife.UserRecord{}, fmt.Errorf("sqlstore: create user: %w", err)
	}
	return user, nil
}
