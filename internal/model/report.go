package model

import (
	"encoding/json"
	"time"
)

// Report is a saved analysis result. The payload shape depends on the report
// type and is stored opaquely; this service only persists and exports it.
type Report struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"user_id"`
	Type      string          `db:"report_type" json:"type"`
	Query     string          `db:"query" json:"query"`
	Payload   json.RawMessage `db:"payload" json:"payload"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
