package runs

import (
	"encoding/json"
	"time"
)

// Run is one append-only ledger entry.
type Run struct {
	ID        int64           `json:"id"`
	UserID    string          `json:"userId"`
	Distance  float64         `json:"distance"`
	Route     json.RawMessage `json:"route"`
	CreatedAt time.Time       `json:"createdDate"`
}

// RecordRequest is the body for POST /api/run.
type RecordRequest struct {
	Distance float64         `json:"distance"`
	Route    json.RawMessage `json:"route"`
}
