package ws

import (
	"time"

	"mdcollab/backend/internal/editop"
)

// 广播事件类型（封闭集），每个事件序列化成一个 JSON 对象推给订阅者
const (
	EventAutoSave          = "autoSave"
	EventAutoSaveError     = "autoSaveError"
	EventNotification      = "notification"
	EventOperationsApplied = "operationsApplied"
	EventLLMOperations     = "llmOperations"
	EventStart             = "start"
	EventTyping            = "typing"
	EventContent           = "content"
	EventOperation         = "operation"
	EventComplete          = "complete"
	EventError             = "error"
	EventPresence          = "presence"
)

// Event 是推送给订阅者的状态变更通知。广播通道只是便利层，
// 不保证送达：晚接入的订阅者错过的事件都能从文档状态重新推导。
type Event struct {
	Type       string             `json:"type"`
	DocID      string             `json:"docId,omitempty"`
	RequestID  string             `json:"requestId,omitempty"`
	Content    string             `json:"content,omitempty"`
	Message    string             `json:"message,omitempty"`
	Error      string             `json:"error,omitempty"`
	Operations []editop.Operation `json:"operations,omitempty"`
	Revision   uint64             `json:"revision,omitempty"`
	Members    []PresenceMember   `json:"members,omitempty"`
	Timestamp  time.Time          `json:"timestamp,omitempty"`
}

type PresenceMember struct {
	UserID   uint64 `json:"userId"`
	Username string `json:"username,omitempty"`
}

// 订阅端发来的控制消息
type ClientMessage struct {
	Type         string `json:"type"` // "heartbeat" / "joinDocument" / "leaveDocument"
	DocID        string `json:"docId,omitempty"`
	LastRevision uint64 `json:"lastRevision,omitempty"`
}
