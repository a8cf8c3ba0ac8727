package keystore

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var ErrNotFound = errors.New("no keys stored for this account and exchange")

// Record is one row of exchange_keys. Secret and Passphrase hold ciphertext.
type Record struct {
	Account    string    `db:"account"`
	Exchange   string    `db:"exchange"`
	APIKey     string    `db:"api_key"`
	Secret     string    `db:"secret"`
	Passphrase string    `db:"passphrase"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type Repository interface {
	Save(ctx context.Context, rec Record) error
	Get(ctx context.Context, account, exchange string) (*Record, error)
	Delete(ctx context.Context, account, exchange string) error
}

const schema = `
CREATE TABLE IF NOT EXISTS exchange_keys (
	account    TEXT NOT NULL,
	exchange   TEXT NOT NULL,
	api_key    TEXT NOT NULL,
	secret     TEXT NOT NULL,
	passphrase TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (account, exchange)
)`

// SQLRepository stores records in PostgreSQL or SQLite. Both accept the
// same upsert syntax; placeholders are rebound per driver.
type SQLRepository struct {
	db *sqlx.DB
}

func NewSQLRepository(db *sqlx.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// Migrate creates the table when it does not exist.
func (r *SQLRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "create exchange_keys")
	}
	return nil
}

func (r *SQLRepository) Save(ctx context.Context, rec Record) error {
	query := r.db.Rebind(`
		INSERT INTO exchange_keys (account, exchange, api_key, secret, passphrase, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (account, exchange) DO UPDATE
		SET api_key = excluded.api_key,
		    secret = excluded.secret,
		    passphrase = excluded.passphrase,
		    updated_at = excluded.updated_at`)
	_, err := r.db.ExecContext(ctx, query,
		rec.Account, rec.Exchange, rec.APIKey, rec.Secret, rec.Passphrase, rec.UpdatedAt.UTC())
	return errors.Wrapf(err, "save keys for %s/%s", rec.Account, rec.Exchange)
}

func (r *SQLRepository) Get(ctx context.Context, account, exchange string) (*Record, error) {
	var rec Record
	query := r.db.Rebind(`
		SELECT account, exchange, api_key, secret, passphrase, updated_at
		FROM exchange_keys WHERE account = ? AND exchange = ?`)
	err := r.db.GetContext(ctx, &rec, query, account, exchange)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load keys for %s/%s", account, exchange)
	}
	return &rec, nil
}

func (r *SQLRepository) Delete(ctx context.Context, account, exchange string) error {
	query := r.db.Rebind(`DELETE FROM exchange_keys WHERE account = ? AND exchange = ?`)
	res, err := r.db.ExecContext(ctx, query, account, exchange)
	if err != nil {
		return errors.Wrapf(err, "delete keys for %s/%s", account, exchange)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
