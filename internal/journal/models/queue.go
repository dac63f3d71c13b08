package models

import (
	"encoding/json"
	"time"
)

// OpType is the kind of mutation a queue entry carries.
type OpType string

const (
	OpCreate OpType = "CREATE"
	OpUpdate OpType = "UPDATE"
	OpDelete OpType = "DELETE"
)

// QueueEntry is one pending mutation. Entries are drained strictly in
// enqueue order; Seq is the local FIFO position assigned by the store.
type QueueEntry struct {
	Seq        int64           `json:"seq"`
	ID         string          `json:"id"`
	Type       OpType          `json:"type"`
	Collection string          `json:"collection"`
	DocumentID string          `json:"documentId"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
	RetryCount int             `json:"retryCount"`
}

// RecordPayload decodes the entry payload as a Record. DELETE entries have
// no payload and return nil.
func (e *QueueEntry) RecordPayload() (*Record, error) {
	if len(e.Payload) == 0 {
		return nil, nil
	}
	var r Record
	if err := json.Unmarshal(e.Payload, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// DeadLetter preserves a mutation that was dropped from the queue, either
// after exhausting its retries or because it can never apply.
type DeadLetter struct {
	ID         string          `json:"id"`
	EntryID    string          `json:"entryId"`
	Type       OpType          `json:"type"`
	Collection string          `json:"collection"`
	DocumentID string          `json:"documentId"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	RetryCount int             `json:"retryCount"`
	LastError  string          `json:"lastError"`
	DroppedAt  time.Time       `json:"droppedAt"`
}
