package types

import "time"

// Account represents a registered user of the bot.
// It contains identity and audit metadata.
type Account struct {
	// ID is the unique identifier of the account.
	ID int `json:"id" db:"id"`

	// Email is the unique login identifier chosen by the user.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the account password.
	// This field is never exposed outside the process.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the account was created.
	// It is set once and never updated.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
