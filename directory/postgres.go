package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// DefaultTable is the users table queried when none is configured.
const DefaultTable = "users"

// Postgres is a Directory over a users table:
//
//	id text primary key, email text unique, name text, role text,
//	password_hash text, email_verified bool, is_active bool
type Postgres struct {
	db        *sql.DB
	byIDSQL   string
	byMailSQL string
}

// OpenPostgres opens and pings a lib/pq connection pool.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres db: %w", err)
	}
	return db, nil
}

// NewPostgres builds a Directory over db. An empty table selects DefaultTable.
func NewPostgres(db *sql.DB, table string) *Postgres {
	if table == "" {
		table = DefaultTable
	}
	cols := "SELECT id, email, name, role, password_hash, email_verified, is_active FROM " + pq.QuoteIdentifier(table)
	return &Postgres{
		db:        db,
		byIDSQL:   cols + " WHERE id = $1",
		byMailSQL: cols + " WHERE lower(email) = $1",
	}
}

// Close closes the underlying pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) FindByID(ctx context.Context, id string) (User, error) {
	return p.queryOne(ctx, p.byIDSQL, id)
}

func (p *Postgres) FindByEmail(ctx context.Context, email string) (User, error) {
	return p.queryOne(ctx, p.byMailSQL, NormalizeEmail(email))
}

func (p *Postgres) queryOne(ctx context.Context, query, arg string) (User, error) {
	var (
		u    User
		name sql.NullString
		role sql.NullString
		hash sql.NullString
	)
	err := p.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID,
		&u.Email,
		&name,
		&role,
		&hash,
		&u.Verified,
		&u.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("directory: query user: %w", err)
	}
	u.Name = name.String
	u.Role = role.String
	u.PasswordHash = hash.String
	return u, nil
}
