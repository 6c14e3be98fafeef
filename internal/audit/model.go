// Package audit keeps the append-only ledger of processed webhooks.
package audit

import (
	"encoding/json"
	"time"
)

// Entry is one processed webhook. Rows are written once and never mutated;
// the raw payload is retained for replay and debugging.
type Entry struct {
	ID         int64           `json:"id" db:"id"`
	StoreID    int64           `json:"store_id" db:"store_id"`
	Topic      string          `json:"topic" db:"topic"`
	ExternalID string          `json:"external_id" db:"external_id"`
	Payload    json.RawMessage `json:"payload" db:"payload"`
	ReceivedAt time.Time       `json:"received_at" db:"received_at"`
}
