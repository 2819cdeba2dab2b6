package domain

import (
	"encoding/json"
	"time"
)

// Job is one unit of work delivered by the external queue. Payload shape is
// defined per business composer; the core never interprets it.
type Job struct {
	ID         string          `json:"id"`
	Queue      string          `json:"queue"`
	Name       string          `json:"name"`
	Payload    json.RawMessage `json:"payload"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}
