package autosave

import (
	"context"
	"log"
	"sync"
	"time"

	"mdcollab/backend/internal/ws"
)

// Sink 把一份文档快照写进持久存储
type Sink func(ctx context.Context, docID, content string, revision uint64) error

// Scheduler 对持久化做防抖：每次成功的操作批都调用 OnMutation，
// 窗口内的连续编辑会不断取消并重置计时器，静默期满才真正落盘一次。
// 不变式：每个文档同一时刻至多一次在途写入；写入期间到来的 mutation
// 通过重置计时器吸收，不排队产生额外写入。
type Scheduler struct {
	debounce time.Duration
	// 读取当前缓冲内容（总是反映计时器触发时刻的最新状态）
	snapshot func(docID string) (content string, revision uint64)
	sink     Sink
	// 保存结果通知（经广播通道推给订阅者），可以为 nil
	publish func(docID string, evt ws.Event)

	mu       sync.Mutex
	timers   map[string]*time.Timer
	inflight map[string]bool
}

func NewScheduler(debounce time.Duration, snapshot func(string) (string, uint64), sink Sink, publish func(string, ws.Event)) *Scheduler {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Scheduler{
		debounce: debounce,
		snapshot: snapshot,
		sink:     sink,
		publish:  publish,
		timers:   make(map[string]*time.Timer),
		inflight: make(map[string]bool),
	}
}

// OnMutation 在每次成功 apply 之后调用：取消已有计时器并重新上弦
func (s *Scheduler) OnMutation(docID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[docID]; ok {
		t.Stop()
	}
	s.timers[docID] = time.AfterFunc(s.debounce, func() { s.fire(docID) })
}

func (s *Scheduler) fire(docID string) {
	s.mu.Lock()
	if s.inflight[docID] {
		// 上一次写还没落完，顺延一个防抖窗口再试，不排队第二次写。
		// 写入期间的 mutation 可能已经重新上弦，先停掉再覆盖，
		// 否则两个计时器各自触发会多落一次盘
		if t, ok := s.timers[docID]; ok {
			t.Stop()
		}
		s.timers[docID] = time.AfterFunc(s.debounce, func() { s.fire(docID) })
		s.mu.Unlock()
		return
	}
	s.inflight[docID] = true
	delete(s.timers, docID)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inflight[docID] = false
		s.mu.Unlock()
	}()

	content, revision := s.snapshot(docID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.sink(ctx, docID, content, revision); err != nil {
		// 写失败只上报，不主动重试；下一次 mutation 自然会重置计时器
		log.Printf("autosave failed (doc=%s rev=%d): %v", docID, revision, err)
		if s.publish != nil {
			s.publish(docID, ws.Event{
				Type:      ws.EventAutoSaveError,
				DocID:     docID,
				Error:     err.Error(),
				Revision:  revision,
				Timestamp: time.Now(),
			})
		}
		return
	}

	if s.publish != nil {
		s.publish(docID, ws.Event{
			Type:      ws.EventAutoSave,
			DocID:     docID,
			Revision:  revision,
			Timestamp: time.Now(),
		})
	}
}

// Flush 立刻触发一次保存（优雅退出时用），绕过防抖窗口
func (s *Scheduler) Flush(docID string) {
	s.mu.Lock()
	if t, ok := s.timers[docID]; ok {
		t.Stop()
		delete(s.timers, docID)
	}
	s.mu.Unlock()
	s.fire(docID)
}
