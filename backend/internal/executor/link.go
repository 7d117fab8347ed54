package executor

import (
	"context"
	"log"
	"time"

	"mdcollab/backend/internal/command"
	"mdcollab/backend/internal/doc"
	"mdcollab/backend/internal/ws"
)

// Link 是 agent 侧的 IPC 终端：对每个进来的信封做穷举匹配，
// 命令在读循环的 goroutine 里同步跑完（apply → 持久化触发 → 回包），
// 所以同一条链路上的命令彼此串行，批内操作不会交错。
// 设计上同一时刻只有一个视图进程连到 agent。
type Link struct {
	ep      command.Endpoint
	exec    *Executor
	session *doc.Session
}

func NewLink(ep command.Endpoint, exec *Executor, session *doc.Session) *Link {
	l := &Link{ep: ep, exec: exec, session: session}
	// 执行器的中间事件（start/typing/content/...）打包成 uiCommandEvent 送过去
	exec.SetNotifier(func(evt ws.Event) {
		l.send(command.Envelope{
			Type:      command.TypeUICommandEvent,
			RequestID: evt.RequestID,
			DocID:     evt.DocID,
			Event:     &evt,
			Timestamp: time.Now(),
		})
	})
	ep.SetHandler(l.handle)
	return l
}

func (l *Link) send(env command.Envelope) {
	if err := l.ep.Send(env); err != nil {
		log.Printf("ipc send failed (type=%s): %v", env.Type, err)
	}
}

func (l *Link) handle(env command.Envelope) {
	switch env.Type {
	case command.TypeUICommand:
		params := command.Params{}
		if env.Params != nil {
			params = *env.Params
		}
		if params.DocID == "" {
			params.DocID = env.DocID
		}
		res := l.exec.Execute(context.Background(), env.RequestID, env.Command, params)

		if res.Success && len(res.Operations) > 0 {
			// 把已应用的操作批推给视图侧，让它的降级行模型跟上
			l.send(command.Envelope{
				Type:       command.TypeApplyOperations,
				DocID:      params.DocID,
				Operations: res.Operations,
				Revision:   l.session.GetOrCreate(params.DocID).Revision(),
				Timestamp:  time.Now(),
			})
		}
		// 终结回复：每个 requestId 恰好一条
		l.send(command.Envelope{
			Type:      command.TypeUICommandResult,
			RequestID: env.RequestID,
			DocID:     params.DocID,
			Result:    &res,
			Timestamp: time.Now(),
		})

	case command.TypeGetDocumentContent:
		content, rev := l.session.GetOrCreate(env.DocID).Snapshot()
		l.send(command.Envelope{
			Type:      command.TypeDocumentContent,
			DocID:     env.DocID,
			Content:   content,
			Revision:  rev,
			Timestamp: time.Now(),
		})

	case command.TypeGetOperationsSince:
		// 重连补推：把版本号之后的操作批按升序回放给视图侧
		history := l.session.GetOrCreate(env.DocID).BatchesSince(env.Revision, 0)
		batches := make([]command.OpBatch, 0, len(history))
		for _, b := range history {
			batches = append(batches, command.OpBatch{Revision: b.Revision, Operations: b.Ops})
		}
		l.send(command.Envelope{
			Type:      command.TypeOperationsSince,
			DocID:     env.DocID,
			Batches:   batches,
			Timestamp: time.Now(),
		})

	case command.TypeUICommandResult, command.TypeUICommandEvent,
		command.TypeApplyOperations, command.TypeDocumentContent,
		command.TypeOperationsSince:
		// 这几类只应该被视图侧收到
		log.Printf("unexpected envelope %q on agent side, ignored", env.Type)

	default:
		log.Printf("unknown envelope type %q ignored", env.Type)
	}
}
