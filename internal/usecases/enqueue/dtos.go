package enqueue

import "encoding/json"

// EnqueueInputDTO is the request body for enqueuing a job.
type EnqueueInputDTO struct {
	Queue   string          `json:"queue" binding:"required"`
	Name    string          `json:"name" binding:"required"`
	Payload json.RawMessage `json:"payload" binding:"required"`
}

// EnqueueOutputDTO reports the enqueued job.
type EnqueueOutputDTO struct {
	ID     string `json:"id"`
	Queue  string `json:"queue"`
	Name   string `json:"name"`
	Status string `json:"status"`
}
