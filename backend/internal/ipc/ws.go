package ipc

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"mdcollab/backend/internal/command"
)

// WSEndpoint 把一条 websocket 连接封装成进程间端点。
// 每条消息是一个 JSON 信封；写操作统一走 send 通道串行化，
// 避免并发写同一条连接。
type WSEndpoint struct {
	conn *websocket.Conn
	send chan command.Envelope

	mu      sync.RWMutex
	handler func(command.Envelope)

	closeOnce sync.Once
	closedCh  chan struct{}
}

func NewWSEndpoint(conn *websocket.Conn) *WSEndpoint {
	ep := &WSEndpoint{
		conn:     conn,
		send:     make(chan command.Envelope, 64),
		closedCh: make(chan struct{}),
	}
	go ep.writeLoop()
	return ep
}

func (ep *WSEndpoint) Send(env command.Envelope) error {
	select {
	case ep.send <- env:
		return nil
	case <-ep.closedCh:
		return errors.New("ipc link closed")
	}
}

func (ep *WSEndpoint) SetHandler(h func(command.Envelope)) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.handler = h
}

// Run 运行读循环，阻塞到连接断开。调用方先 SetHandler 再 Run。
func (ep *WSEndpoint) Run() {
	defer ep.Close()
	for {
		var env command.Envelope
		if err := ep.conn.ReadJSON(&env); err != nil {
			log.Printf("ipc read error: %v", err)
			return
		}
		ep.mu.RLock()
		h := ep.handler
		ep.mu.RUnlock()
		if h == nil {
			log.Printf("ipc: no handler set, envelope %q dropped", env.Type)
			continue
		}
		h(env)
	}
}

func (ep *WSEndpoint) writeLoop() {
	for {
		select {
		case env := <-ep.send:
			if err := ep.conn.WriteJSON(env); err != nil {
				log.Printf("ipc write error: %v", err)
				ep.Close()
				return
			}
		case <-ep.closedCh:
			return
		}
	}
}

func (ep *WSEndpoint) Close() {
	ep.closeOnce.Do(func() {
		close(ep.closedCh)
		_ = ep.conn.Close()
	})
}

// Closed 返回链路关闭通知通道（视图侧用来触发重连）
func (ep *WSEndpoint) Closed() <-chan struct{} { return ep.closedCh }

// Dial 连接 agent 进程的 /ipc 端点，失败时按固定间隔重试直到 ctx 取消
func Dial(ctx context.Context, url string) (*WSEndpoint, error) {
	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err == nil {
			return NewWSEndpoint(conn), nil
		}
		log.Printf("ipc dial %s failed: %v, retrying", url, err)
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
