package events

import (
	"time"

	"mdcollab/backend/internal/editop"
)

// Event 是发往 Kafka 的事件载体；Key 用作分区键（按文档分区）
type Event interface {
	Key() string
}

// DocOpEvent：一批操作被应用后的事件
type DocOpEvent struct {
	EventType   string             `json:"eventType"` // 固定 "OP_APPLIED"
	DocID       string             `json:"docId"`
	OperationID string             `json:"operationId"`
	RequestID   string             `json:"requestId,omitempty"`
	Command     string             `json:"command,omitempty"`
	Revision    uint64             `json:"revision"`
	Ops         []editop.Operation `json:"ops"`
	AppliedAt   time.Time          `json:"appliedAt"`
}

func (e DocOpEvent) Key() string { return e.DocID }

// SaveEvent：一次持久化（或持久化失败）的事件
type SaveEvent struct {
	EventType string    `json:"eventType"` // "DOC_SAVED" / "DOC_SAVE_FAILED"
	DocID     string    `json:"docId"`
	Revision  uint64    `json:"revision"`
	Path      string    `json:"path,omitempty"`
	Error     string    `json:"error,omitempty"`
	SavedAt   time.Time `json:"savedAt"`
}

func (e SaveEvent) Key() string { return e.DocID }
