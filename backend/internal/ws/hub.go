package ws

import (
	"context"
	"sync"

	"mdcollab/backend/internal/cache"
)

// Hub 维护每个文档房间的订阅者集合，把事件按发布顺序逐连接推下去。
// 房间里存的是连接而不是 userID：一个用户可以开多个标签页/设备，
// 广播要逐连接发，不能只按 userID 发一次。
type Hub struct {
	// Redis 实现的在线状态存储句柄，可以为 nil（纯内存模式）
	presence cache.PresenceCache

	// 重连补推回调：把指定版本号之后的操作批取回来。
	// 由装配方注入（实际拉取要过 IPC，ws 包不直接依赖命令层），可以为 nil。
	catchUp func(ctx context.Context, docID string, sinceRevision uint64) []Event

	mu sync.RWMutex
	// docID -> set of connections
	rooms map[string]map[*Conn]struct{}
}

func NewHub(p cache.PresenceCache) *Hub {
	return &Hub{presence: p, rooms: make(map[string]map[*Conn]struct{})}
}

// SetCatchUp 注入重连补推的取数回调
func (h *Hub) SetCatchUp(fn func(ctx context.Context, docID string, sinceRevision uint64) []Event) {
	h.catchUp = fn
}

// Join 将连接加入指定文档房间
func (h *Hub) Join(docID string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[docID] == nil {
		h.rooms[docID] = make(map[*Conn]struct{})
	}
	h.rooms[docID][c] = struct{}{}
}

// Leave 将连接从指定文档房间移除。
// 断开的订阅者直接出集合，没有任何补发缓冲。
func (h *Hub) Leave(docID string, c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.rooms[docID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.rooms, docID)
		}
	}
}

// Publish 把事件扇出给房间内所有当前订阅者。
// 尽力投递：某个连接的发送队列满了就丢弃这一条，不阻塞别的订阅者。
// 先在读锁内把订阅者拷贝成切片再遍历：房间 map 会被并发的
// Join/Leave 修改，直接迭代活 map 会触发运行时的并发读写崩溃。
func (h *Hub) Publish(docID string, evt Event) {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.rooms[docID]))
	for c := range h.rooms[docID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()
	for _, c := range conns {
		c.Enqueue(evt)
	}
}

// RoomSize 当前房间在线连接数
func (h *Hub) RoomSize(docID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[docID])
}
