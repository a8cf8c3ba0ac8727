// Package user keeps gateway accounts: a name and a bcrypt password hash.
// The account name is the JWT subject and the keystore owner.
package user

import "time"

type Account struct {
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
