package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"mdcollab/backend/internal/ws"
)

type writeRecorder struct {
	mu     sync.Mutex
	writes []string
	err    error
}

func (r *writeRecorder) sink(_ context.Context, _ string, content string, _ uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.writes = append(r.writes, content)
	return nil
}

func (r *writeRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.writes))
	copy(out, r.writes)
	return out
}

// 防抖窗口内的连续编辑只落盘一次，且写的是最终状态
func TestScheduler_DebounceCoalesces(t *testing.T) {
	var mu sync.Mutex
	content := ""

	rec := &writeRecorder{}
	s := NewScheduler(30*time.Millisecond,
		func(string) (string, uint64) {
			mu.Lock()
			defer mu.Unlock()
			return content, 1
		},
		rec.sink, nil,
	)

	for i := 0; i < 5; i++ {
		mu.Lock()
		content += "x"
		mu.Unlock()
		s.OnMutation("doc-1")
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)

	writes := rec.snapshot()
	if len(writes) != 1 {
		t.Fatalf("writes = %d (%v), want exactly 1", len(writes), writes)
	}
	if writes[0] != "xxxxx" {
		t.Fatalf("persisted content = %q, want final state %q", writes[0], "xxxxx")
	}
}

func TestScheduler_SeparateQuietPeriodsWriteTwice(t *testing.T) {
	rec := &writeRecorder{}
	s := NewScheduler(20*time.Millisecond,
		func(string) (string, uint64) { return "v", 1 },
		rec.sink, nil,
	)

	s.OnMutation("doc-1")
	time.Sleep(60 * time.Millisecond)
	s.OnMutation("doc-1")
	time.Sleep(60 * time.Millisecond)

	if got := len(rec.snapshot()); got != 2 {
		t.Fatalf("writes = %d, want %d", got, 2)
	}
}

// 写失败只上报 autoSaveError，不主动重试
func TestScheduler_FailurePublishesAndDoesNotRetry(t *testing.T) {
	rec := &writeRecorder{err: errors.New("disk full")}

	events := make(chan ws.Event, 4)
	s := NewScheduler(20*time.Millisecond,
		func(string) (string, uint64) { return "v", 3 },
		rec.sink,
		func(_ string, evt ws.Event) { events <- evt },
	)

	s.OnMutation("doc-1")

	select {
	case evt := <-events:
		if evt.Type != ws.EventAutoSaveError {
			t.Fatalf("event type = %q, want %q", evt.Type, ws.EventAutoSaveError)
		}
		if evt.Error != "disk full" || evt.Revision != 3 {
			t.Fatalf("event = %+v, want error and revision carried", evt)
		}
	case <-time.After(time.Second):
		t.Fatalf("no autoSaveError event published")
	}

	// 没有后续 mutation 就不该再尝试
	select {
	case evt := <-events:
		t.Fatalf("unexpected retry event: %+v", evt)
	case <-time.After(80 * time.Millisecond):
	}
}

func TestScheduler_SuccessPublishesAutoSave(t *testing.T) {
	rec := &writeRecorder{}
	events := make(chan ws.Event, 1)
	s := NewScheduler(10*time.Millisecond,
		func(string) (string, uint64) { return "v", 7 },
		rec.sink,
		func(_ string, evt ws.Event) { events <- evt },
	)

	s.OnMutation("doc-1")

	select {
	case evt := <-events:
		if evt.Type != ws.EventAutoSave || evt.Revision != 7 {
			t.Fatalf("event = %+v, want autoSave with revision 7", evt)
		}
	case <-time.After(time.Second):
		t.Fatalf("no autoSave event published")
	}
}

func TestScheduler_FlushBypassesDebounce(t *testing.T) {
	rec := &writeRecorder{}
	s := NewScheduler(time.Hour,
		func(string) (string, uint64) { return "v", 1 },
		rec.sink, nil,
	)

	s.OnMutation("doc-1")
	s.Flush("doc-1")

	if got := len(rec.snapshot()); got != 1 {
		t.Fatalf("writes after Flush = %d, want %d", got, 1)
	}
}

// 写入在途时，编辑上弦的计时器和顺延触发互相覆盖不能留下孤儿计时器，
// 否则落盘次数会多出一次
func TestScheduler_BusyDeferralReplacesPendingTimer(t *testing.T) {
	started := make(chan struct{})
	gate := make(chan struct{})
	var once sync.Once

	rec := &writeRecorder{}
	blockingSink := func(ctx context.Context, docID, content string, rev uint64) error {
		once.Do(func() {
			close(started)
			<-gate
		})
		return rec.sink(ctx, docID, content, rev)
	}
	s := NewScheduler(25*time.Millisecond,
		func(string) (string, uint64) { return "v", 1 },
		blockingSink, nil,
	)

	s.OnMutation("doc-1")
	<-started
	// 第一次写被卡住期间：又来一次编辑重新上弦，紧接着一个触发撞上在途写入
	s.OnMutation("doc-1")
	s.fire("doc-1")

	time.Sleep(40 * time.Millisecond)
	close(gate)
	time.Sleep(150 * time.Millisecond)

	if got := len(rec.snapshot()); got != 2 {
		t.Fatalf("writes = %d, want exactly 2 (blocked write plus one deferred)", got)
	}
	// 再等一段确认没有孤儿计时器补刀第三次
	time.Sleep(100 * time.Millisecond)
	if got := len(rec.snapshot()); got != 2 {
		t.Fatalf("writes = %d after settling, want still 2", got)
	}
}

func TestScheduler_PerDocumentIsolation(t *testing.T) {
	rec := &writeRecorder{}
	s := NewScheduler(15*time.Millisecond,
		func(docID string) (string, uint64) { return docID, 1 },
		rec.sink, nil,
	)

	s.OnMutation("a")
	s.OnMutation("b")
	time.Sleep(80 * time.Millisecond)

	writes := rec.snapshot()
	if len(writes) != 2 {
		t.Fatalf("writes = %v, want one per document", writes)
	}
}
