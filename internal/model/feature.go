package model

import "time"

// FeatureFlag is a globally scoped on/off switch for a named capability.
// Flags are not per-user; a name with no flag registered is disabled.
type FeatureFlag struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Enabled   bool      `db:"enabled" json:"enabled"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
