package user

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("account not found")

const schema = `
CREATE TABLE IF NOT EXISTS accounts (
	name          TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
)`

type SQLRepository struct {
	db *sqlx.DB
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

func (r *SQLRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "create accounts")
	}
	return nil
}

func (r *SQLRepository) Create(ctx context.Context, a *Account) error {
	query := r.db.Rebind(`INSERT INTO accounts (name, password_hash, created_at) VALUES (?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query, a.Name, a.PasswordHash, a.CreatedAt.UTC())
	return errors.Wrapf(err, "create account %s", a.Name)
}

func (r *SQLRepository) GetByName(ctx context.Context, name string) (*Account, error) {
	var a Account
	query := r.db.Rebind(`SELECT name, password_hash, created_at FROM accounts WHERE name = ?`)
	err := r.db.GetContext(ctx, &a, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load account %s", name)
	}
	return &a, nil
}
