package ipc

import (
	"errors"
	"log"
	"sync"

	"mdcollab/backend/internal/command"
)

// 内存管道端点：单二进制部署和测试里代替 websocket 链路，
// 保持同样的“异步发送 + 关联回复”契约。
type pipeEndpoint struct {
	out chan command.Envelope // 发往对端

	mu      sync.RWMutex
	handler func(command.Envelope)
	closed  bool
}

// Pipe 返回一对互联的端点：a 发出的消息由 b 的 handler 收到，反之亦然
func Pipe() (command.Endpoint, command.Endpoint) {
	a := &pipeEndpoint{out: make(chan command.Envelope, 64)}
	b := &pipeEndpoint{out: make(chan command.Envelope, 64)}
	go dispatchLoop(a.out, b)
	go dispatchLoop(b.out, a)
	return a, b
}

func dispatchLoop(in <-chan command.Envelope, dst *pipeEndpoint) {
	for env := range in {
		dst.mu.RLock()
		h := dst.handler
		dst.mu.RUnlock()
		if h == nil {
			log.Printf("pipe: no handler set, envelope %q dropped", env.Type)
			continue
		}
		h(env)
	}
}

func (p *pipeEndpoint) Send(env command.Envelope) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return errors.New("pipe closed")
	}
	p.out <- env
	return nil
}

func (p *pipeEndpoint) SetHandler(h func(command.Envelope)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = h
}

// Close 关闭发送方向；对端的分发循环随之退出
func (p *pipeEndpoint) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.out)
	}
}
