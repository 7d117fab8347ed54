package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const presenceTTL = 600 * time.Second

// Conn 是一个活跃的订阅者连接。生命周期：connecting → open → (接收事件)* → closed。
// closed 之后从扇出集合移除；重连方在 joinDocument 里带上次见到的版本号，
// 由补推回调把中间错过的操作批追平，追不平就重新拉全量。
type Conn struct {
	ws       *websocket.Conn
	hub      *Hub
	docID    string
	userID   uint64
	username string
	clientID string

	sendMu sync.Mutex
	closed bool
	send   chan Event
}

func NewConn(wsConn *websocket.Conn, hub *Hub, userID uint64, username string) *Conn {
	return &Conn{
		ws:       wsConn,
		hub:      hub,
		userID:   userID,
		username: username,
		clientID: uuid.NewString(),
		send:     make(chan Event, 32),
	}
}

// Enqueue 把事件放进发送队列；队列满了就丢弃这一条（尽力投递）。
// 读循环退出会关闭发送队列，Hub 扇出可能与之并发，
// 所以先在锁内检查 closed，避免往已关闭的 channel 写。
func (c *Conn) Enqueue(evt Event) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- evt:
	default:
	}
}

// closeSend 关闭发送队列，终止 writeLoop。幂等。
func (c *Conn) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Conn) readLoop(ctx context.Context) {
	defer c.closeSend()
	defer func() {
		if c.docID != "" {
			c.hub.Leave(c.docID, c)
			if c.hub.presence != nil {
				_ = c.hub.presence.RemoveMember(ctx, c.docID, c.userID)
			}
		}
	}()

	for {
		var msg ClientMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			log.Printf("subscriber read error (user=%d, doc=%s): %v", c.userID, c.docID, err)
			return
		}
		switch msg.Type {
		case "heartbeat":
			if c.docID == "" || c.hub.presence == nil {
				continue
			}
			if err := c.hub.presence.AddMember(ctx, c.docID, c.userID, c.username, presenceTTL); err != nil {
				log.Printf("presence add member error: %v", err)
				continue
			}
			members, err := c.hub.presence.GetAliveMembersWithNames(ctx, c.docID)
			if err != nil {
				log.Printf("presence get members error: %v", err)
				continue
			}
			out := make([]PresenceMember, len(members))
			for i, m := range members {
				out[i] = PresenceMember{UserID: m.UserID, Username: m.Username}
			}
			c.hub.Publish(c.docID, Event{Type: EventPresence, DocID: c.docID, Members: out, Timestamp: time.Now()})

		case "joinDocument":
			if msg.DocID == "" {
				c.Enqueue(Event{Type: EventError, Error: "MISSING_DOC_ID"})
				continue
			}
			// 允许在消息里带 docId 动态切换房间：先离开旧房间
			if c.docID != "" && c.docID != msg.DocID {
				c.hub.Leave(c.docID, c)
			}
			c.docID = msg.DocID
			c.hub.Join(c.docID, c)
			if c.hub.presence != nil {
				_ = c.hub.presence.AddMember(ctx, c.docID, c.userID, c.username, presenceTTL)
			}
			c.Enqueue(Event{Type: EventNotification, DocID: c.docID, Message: "joined document " + c.docID, Timestamp: time.Now()})
			// 带上次见到的版本号重连的客户端补推错过的操作批
			if msg.LastRevision > 0 {
				c.replayMissed(ctx, c.docID, msg.LastRevision)
			}

		case "leaveDocument":
			if c.docID != "" {
				c.hub.Leave(c.docID, c)
				if c.hub.presence != nil {
					_ = c.hub.presence.RemoveMember(ctx, c.docID, c.userID)
				}
				c.docID = ""
			}

		default:
			// 忽略未知类型，回一条提示
			c.Enqueue(Event{Type: EventNotification, Message: "unknown message type ignored"})
		}
	}
}

// replayMissed 给重连的订阅者补推版本号之后的操作批
func (c *Conn) replayMissed(ctx context.Context, docID string, sinceRevision uint64) {
	if c.hub.catchUp == nil {
		return
	}
	for _, evt := range c.hub.catchUp(ctx, docID, sinceRevision) {
		c.Enqueue(evt)
	}
}

func (c *Conn) writeLoop() {
	// 持续消费队列里的事件，单条流上保证发布顺序
	for evt := range c.send {
		if err := c.ws.WriteJSON(evt); err != nil {
			return
		}
	}
}
