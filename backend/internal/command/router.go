package command

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"mdcollab/backend/internal/editop"
	"mdcollab/backend/internal/ws"
)

var ErrCommandTimeout = errors.New("COMMAND_TIMEOUT")

// 在途请求。resolve/reject 统一收敛成 done 通道的一次投递。
type pendingCommand struct {
	requestID string
	command   string
	createdAt time.Time
	done      chan Result
}

type contentReply struct {
	content  string
	revision uint64
}

// Router 运行在视图进程，持有自己的 pending 表（不是包级单例），
// 构造一次、按引用传给需要发命令的地方。
// 不变式：每个 requestId 恰好被 resolve 或 reject 一次。
type Router struct {
	ep      Endpoint
	timeout time.Duration

	seq uint64

	mu             sync.Mutex
	pending        map[string]*pendingCommand
	contentWaiters map[string][]chan contentReply
	batchWaiters   map[string][]chan []OpBatch

	// 非请求/响应类消息的回调，由视图进程装配时设置
	OnApplyOperations func(docID string, ops []editop.Operation, revision uint64)
	OnCommandEvent    func(evt ws.Event)
}

func NewRouter(ep Endpoint, timeout time.Duration) *Router {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r := &Router{
		ep:             ep,
		timeout:        timeout,
		pending:        make(map[string]*pendingCommand),
		contentWaiters: make(map[string][]chan contentReply),
		batchWaiters:   make(map[string][]chan []OpBatch),
	}
	ep.SetHandler(r.handle)
	return r
}

// Route 发出一条命令并等待关联回复。
// 超时按命令级失败处理（返回 ErrCommandTimeout），不是崩溃。
func (r *Router) Route(ctx context.Context, cmd string, params Params) (Result, error) {
	// 单进程生命周期内单调递增即可，不要求跨重启持久
	id := fmt.Sprintf("req-%d", atomic.AddUint64(&r.seq, 1))
	pc := &pendingCommand{
		requestID: id,
		command:   cmd,
		createdAt: time.Now(),
		done:      make(chan Result, 1),
	}
	r.mu.Lock()
	r.pending[id] = pc
	r.mu.Unlock()

	env := Envelope{
		Type:      TypeUICommand,
		RequestID: id,
		Command:   cmd,
		DocID:     params.DocID,
		Params:    &params,
		Timestamp: time.Now(),
	}
	if err := r.ep.Send(env); err != nil {
		r.remove(id)
		return Result{}, fmt.Errorf("send command: %w", err)
	}

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case res := <-pc.done:
		return res, nil
	case <-timer.C:
		if r.remove(id) != nil {
			return Result{}, ErrCommandTimeout
		}
		// 回复恰好赶在超时瞬间到达并已经移除了 pending，那它一定在路上
		return <-pc.done, nil
	case <-ctx.Done():
		r.remove(id)
		return Result{}, ctx.Err()
	}
}

// remove 从 pending 表摘掉一条请求；返回 nil 表示别人已经处理过了。
// 谁摘到谁负责投递，这就是“恰好一次”的仲裁点。
func (r *Router) remove(id string) *pendingCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	pc := r.pending[id]
	if pc != nil {
		delete(r.pending, id)
	}
	return pc
}

// PendingCount 当前在途请求数（监控用）
func (r *Router) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// PullContent 向 agent 拉取文档全文（握手/缓存回源用）
func (r *Router) PullContent(ctx context.Context, docID string) (string, uint64, error) {
	ch := make(chan contentReply, 1)
	r.mu.Lock()
	r.contentWaiters[docID] = append(r.contentWaiters[docID], ch)
	r.mu.Unlock()

	if err := r.ep.Send(Envelope{Type: TypeGetDocumentContent, DocID: docID, Timestamp: time.Now()}); err != nil {
		r.dropWaiter(docID, ch)
		return "", 0, err
	}

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()
	select {
	case rep := <-ch:
		return rep.content, rep.revision, nil
	case <-timer.C:
		r.dropWaiter(docID, ch)
		return "", 0, ErrCommandTimeout
	case <-ctx.Done():
		r.dropWaiter(docID, ch)
		return "", 0, ctx.Err()
	}
}

func (r *Router) dropWaiter(docID string, ch chan contentReply) {
	r.mu.Lock()
	defer r.mu.Unlock()
	waiters := r.contentWaiters[docID]
	for i, w := range waiters {
		if w == ch {
			r.contentWaiters[docID] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
}

// PullBatches 向 agent 拉取版本号大于 sinceRevision 的操作批（重连补推用）
func (r *Router) PullBatches(ctx context.Context, docID string, sinceRevision uint64) ([]OpBatch, error) {
	ch := make(chan []OpBatch, 1)
	r.mu.Lock()
	r.batchWaiters[docID] = append(r.batchWaiters[docID], ch)
	r.mu.Unlock()

	env := Envelope{Type: TypeGetOperationsSince, DocID: docID, Revision: sinceRevision, Timestamp: time.Now()}
	if err := r.ep.Send(env); err != nil {
		r.dropBatchWaiter(docID, ch)
		return nil, err
	}

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()
	select {
	case batches := <-ch:
		return batches, nil
	case <-timer.C:
		r.dropBatchWaiter(docID, ch)
		return nil, ErrCommandTimeout
	case <-ctx.Done():
		r.dropBatchWaiter(docID, ch)
		return nil, ctx.Err()
	}
}

func (r *Router) dropBatchWaiter(docID string, ch chan []OpBatch) {
	r.mu.Lock()
	defer r.mu.Unlock()
	waiters := r.batchWaiters[docID]
	for i, w := range waiters {
		if w == ch {
			r.batchWaiters[docID] = append(waiters[:i], waiters[i+1:]...)
			break
		}
	}
}

// handle 对进来的每个信封做穷举匹配
func (r *Router) handle(env Envelope) {
	switch env.Type {
	case TypeUICommandResult:
		pc := r.remove(env.RequestID)
		if pc == nil {
			// 超时后才到的迟到回复：requestId 已不在 pending 表里，直接丢弃，
			// 防止二次 resolve 或重复应用
			log.Printf("late reply dropped (requestId=%s)", env.RequestID)
			return
		}
		res := Result{}
		if env.Result != nil {
			res = *env.Result
		}
		pc.done <- res

	case TypeUICommandEvent:
		if r.OnCommandEvent != nil && env.Event != nil {
			r.OnCommandEvent(*env.Event)
		}

	case TypeApplyOperations:
		if r.OnApplyOperations != nil {
			r.OnApplyOperations(env.DocID, env.Operations, env.Revision)
		}

	case TypeDocumentContent:
		r.mu.Lock()
		waiters := r.contentWaiters[env.DocID]
		delete(r.contentWaiters, env.DocID)
		r.mu.Unlock()
		for _, ch := range waiters {
			ch <- contentReply{content: env.Content, revision: env.Revision}
		}

	case TypeOperationsSince:
		r.mu.Lock()
		waiters := r.batchWaiters[env.DocID]
		delete(r.batchWaiters, env.DocID)
		r.mu.Unlock()
		for _, ch := range waiters {
			ch <- env.Batches
		}

	case TypeUICommand, TypeGetDocumentContent, TypeGetOperationsSince:
		// 这几类只应该被 agent 侧收到
		log.Printf("unexpected envelope %q on view side, ignored", env.Type)

	default:
		log.Printf("unknown envelope type %q ignored", env.Type)
	}
}
