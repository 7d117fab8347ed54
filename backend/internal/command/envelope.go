package command

import (
	"time"

	"mdcollab/backend/internal/editop"
	"mdcollab/backend/internal/ws"
)

// 跨进程消息类型（封闭集），两端各自对它做穷举匹配
const (
	TypeUICommand          = "uiCommand"          // view → agent：命令请求
	TypeUICommandResult    = "uiCommandResult"    // agent → view：命令结果（终结事件，每个 requestId 恰好一条）
	TypeUICommandEvent     = "uiCommandEvent"     // agent → view：流式中间事件（进度/增量内容）
	TypeApplyOperations    = "applyOperations"    // agent → view：已应用的操作批推送
	TypeGetDocumentContent = "getDocumentContent" // view → agent：内容拉取
	TypeDocumentContent    = "documentContent"    // agent → view：内容回复
	TypeGetOperationsSince = "getOperationsSince" // view → agent：按版本号拉取错过的操作批（重连补推）
	TypeOperationsSince    = "operationsSince"    // agent → view：操作批回放
)

// Params 是一条 UI 命令的参数
type Params struct {
	DocID           string `json:"docId"`
	OriginalRequest string `json:"originalRequest"`
	Context         string `json:"context,omitempty"`
	SelectionStart  int    `json:"selectionStart,omitempty"`
	SelectionEnd    int    `json:"selectionEnd,omitempty"`
}

// Result 是命令的结构化结果。失败也是一个合法的 Result，
// 异常永远不会跨进程边界抛出。
type Result struct {
	Success    bool               `json:"success"`
	Operations []editop.Operation `json:"operations,omitempty"`
	Message    string             `json:"message,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// OpBatch 是一次提交产生的操作批和它落地后的版本号，
// operationsSince 回放时按版本号升序逐批携带。
type OpBatch struct {
	Revision   uint64             `json:"revision"`
	Operations []editop.Operation `json:"operations"`
}

// Envelope 是进程间唯一的消息载体。Type 决定哪些字段有意义。
type Envelope struct {
	Type       string             `json:"type"`
	RequestID  string             `json:"requestId,omitempty"`
	Command    string             `json:"command,omitempty"`
	DocID      string             `json:"docId,omitempty"`
	Params     *Params            `json:"parameters,omitempty"`
	Result     *Result            `json:"result,omitempty"`
	Event      *ws.Event          `json:"event,omitempty"`
	Operations []editop.Operation `json:"operations,omitempty"`
	Content    string             `json:"content,omitempty"`
	Revision   uint64             `json:"revision,omitempty"`
	Batches    []OpBatch          `json:"batches,omitempty"`
	Timestamp  time.Time          `json:"timestamp,omitempty"`
}

// Endpoint 是进程边界的抽象：非阻塞发送 + 回调接收。
// 真实部署里是一条 websocket 链路，测试里是一对内存管道。
type Endpoint interface {
	Send(Envelope) error
	SetHandler(func(Envelope))
}
