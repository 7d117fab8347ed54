package executor

import (
	"context"
	"fmt"
	"log"
	"time"

	"mdcollab/backend/internal/autosave"
	"mdcollab/backend/internal/command"
	"mdcollab/backend/internal/doc"
	"mdcollab/backend/internal/editop"
	"mdcollab/backend/internal/events"
	"mdcollab/backend/internal/ws"
)

// Executor 运行在 agent 进程：接收路由过来的命令，调用外部生成函数，
// 把产出的操作 Normalize 之后原子地应用到共享文本缓冲区，返回结构化结果。
// 任何失败（生成失败、应用失败、panic）都转成 Success=false 的 Result，
// 绝不跨进程边界抛异常，Command Router 总能拿到一个完整回复。
type Executor struct {
	session *doc.Session
	gen     Generator
	saver   *autosave.Scheduler
	bus     *events.Dispatcher // 可以为 nil（未配置 Kafka）

	notify func(evt ws.Event) // 中间事件经 IPC 转给视图进程再广播
}

func New(session *doc.Session, gen Generator, saver *autosave.Scheduler, bus *events.Dispatcher) *Executor {
	return &Executor{session: session, gen: gen, saver: saver, bus: bus}
}

func (e *Executor) SetNotifier(fn func(ws.Event)) { e.notify = fn }

// Notify 给执行器之外的组件（自动保存调度器）复用同一条事件通道
func (e *Executor) Notify(evt ws.Event) { e.emit(evt) }

func (e *Executor) emit(evt ws.Event) {
	if e.notify != nil {
		evt.Timestamp = time.Now()
		e.notify(evt)
	}
}

// Execute 同步跑完一条命令：apply、触发持久化、发事件，全部做完才返回。
// agent 进程内命令天然串行（IPC 读循环逐条调用），
// 所以一批操作落盘时不会有另一条命令的操作插进来。
func (e *Executor) Execute(ctx context.Context, requestID, cmd string, params command.Params) (res command.Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("command panic recovered (requestId=%s): %v", requestID, r)
			res = command.Result{Success: false, Error: fmt.Sprintf("internal error: %v", r), Message: "command failed"}
			e.emit(ws.Event{Type: ws.EventError, DocID: params.DocID, RequestID: requestID, Error: res.Error})
		}
	}()

	d := e.session.GetOrCreate(params.DocID)
	content, _ := d.Snapshot()

	req := GenRequest{
		Command:        cmd,
		Prompt:         params.OriginalRequest,
		DocID:          params.DocID,
		Content:        content,
		Context:        params.Context,
		SelectionStart: params.SelectionStart,
		SelectionEnd:   params.SelectionEnd,
	}

	e.emit(ws.Event{Type: ws.EventStart, DocID: params.DocID, RequestID: requestID})

	var out GenResult
	var err error
	if sg, ok := e.gen.(StreamingGenerator); ok {
		e.emit(ws.Event{Type: ws.EventTyping, DocID: params.DocID, RequestID: requestID})
		out, err = sg.GenerateStream(ctx, req, func(delta string) {
			e.emit(ws.Event{Type: ws.EventContent, DocID: params.DocID, RequestID: requestID, Content: delta})
		})
	} else {
		out, err = e.gen.Generate(ctx, req)
	}
	if err != nil {
		// 生成失败是命令级失败，不是进程级故障
		e.emit(ws.Event{Type: ws.EventError, DocID: params.DocID, RequestID: requestID, Error: err.Error()})
		return command.Result{Success: false, Error: err.Error(), Message: "generation failed"}
	}

	normalized := editop.Normalize(out.Operations)
	batch, applied, err := d.ApplyBatch(requestID, cmd, normalized)
	if err != nil {
		e.emit(ws.Event{Type: ws.EventError, DocID: params.DocID, RequestID: requestID, Error: err.Error()})
		return command.Result{Success: false, Error: err.Error(), Message: "apply failed"}
	}
	log.Printf("command %s applied %d/%d operations (doc=%s rev=%d)", cmd, applied, len(normalized), params.DocID, batch.Revision)

	// 防抖持久化
	e.saver.OnMutation(params.DocID)

	if e.bus != nil {
		evt := events.DocOpEvent{
			EventType:   "OP_APPLIED",
			DocID:       params.DocID,
			OperationID: batch.OperationID,
			RequestID:   requestID,
			Command:     cmd,
			Revision:    batch.Revision,
			Ops:         normalized,
			AppliedAt:   batch.AppliedAt,
		}
		enqCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		if err := e.bus.Enqueue(enqCtx, evt); err != nil {
			log.Printf("event bus enqueue dropped (doc=%s): %v", params.DocID, err)
		}
		cancel()
	}

	e.emit(ws.Event{
		Type:       ws.EventLLMOperations,
		DocID:      params.DocID,
		RequestID:  requestID,
		Operations: normalized,
		Revision:   batch.Revision,
	})
	// 每条命令恰好一个终结事件
	e.emit(ws.Event{Type: ws.EventComplete, DocID: params.DocID, RequestID: requestID, Message: out.Message})

	return command.Result{Success: true, Operations: normalized, Message: out.Message}
}
