package events

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDispatcher_TopicRouting(t *testing.T) {
	d := &Dispatcher{topics: Topics{Ops: "doc-ops", Saves: "doc-saves"}}

	if got := d.topicFor(DocOpEvent{DocID: "doc-1"}); got != "doc-ops" {
		t.Fatalf("topicFor(DocOpEvent) = %q, want %q", got, "doc-ops")
	}
	if got := d.topicFor(SaveEvent{DocID: "doc-1"}); got != "doc-saves" {
		t.Fatalf("topicFor(SaveEvent) = %q, want %q", got, "doc-saves")
	}

	// 没单独配持久化主题时并入操作主题
	d2 := &Dispatcher{topics: Topics{Ops: "doc-ops"}}
	if got := d2.topicFor(SaveEvent{DocID: "doc-1"}); got != "doc-ops" {
		t.Fatalf("topicFor(SaveEvent) without saves topic = %q, want %q", got, "doc-ops")
	}
}

// 队列满时 Enqueue 最多等到 ctx 结束，不能无限阻塞提交链路
func TestDispatcher_EnqueueFullQueueTimesOut(t *testing.T) {
	// 不启 worker，队列容量 1：第二条必然排不进去
	d := &Dispatcher{queue: make(chan Event, 1)}

	if err := d.Enqueue(context.Background(), DocOpEvent{DocID: "doc-1"}); err != nil {
		t.Fatalf("Enqueue() into empty queue error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Enqueue(ctx, DocOpEvent{DocID: "doc-1"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Enqueue() into full queue error = %v, want deadline exceeded", err)
	}
}

func TestSemaphore_AcquireRelease(t *testing.T) {
	s := NewSemaphoreControl(2)
	if err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := s.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	// 没有在途名额时归还必须报错
	if err := s.Release(); err == nil {
		t.Fatalf("Release() without acquire returned nil error")
	}
}

func TestSemaphore_AcquireHonorsContext(t *testing.T) {
	s := NewSemaphoreControl(1)
	if err := s.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Millisecond)
	defer cancel()
	err := s.Acquire(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Acquire() on exhausted semaphore error = %v, want deadline exceeded", err)
	}
}
