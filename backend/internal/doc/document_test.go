package doc

import (
	"testing"

	"mdcollab/backend/internal/editop"
)

func TestDocument_ApplyBatchAtomicOrder(t *testing.T) {
	d := newDocument("doc-1", "Hello world", 16)

	// 一批里同时有末尾插入和头部删除：必须先 Normalize 成降序再应用
	ops := editop.Normalize([]editop.Operation{
		{Type: editop.OpInsert, Position: editop.IntPtr(11), Content: []editop.Node{editop.TextNode("!")}},
		{Type: editop.OpDelete, From: editop.IntPtr(0), To: editop.IntPtr(5)},
	})

	batch, applied, err := d.ApplyBatch("req-1", "testCmd", ops)
	if err != nil {
		t.Fatalf("ApplyBatch() error = %v", err)
	}
	if applied != 2 {
		t.Fatalf("applied = %d, want %d", applied, 2)
	}
	if batch.Revision != 1 {
		t.Fatalf("batch.Revision = %d, want %d", batch.Revision, 1)
	}
	if batch.OperationID == "" {
		t.Fatalf("batch.OperationID is empty")
	}

	content, rev := d.Snapshot()
	if content != " world!" {
		t.Fatalf("Snapshot() content = %q, want %q", content, " world!")
	}
	if rev != 1 {
		t.Fatalf("Snapshot() revision = %d, want %d", rev, 1)
	}
}

func TestDocument_BatchesSince(t *testing.T) {
	d := newDocument("doc-1", "", 16)

	for i := 0; i < 3; i++ {
		ops := []editop.Operation{{Type: editop.OpInsert, Position: editop.IntPtr(0), Content: []editop.Node{editop.TextNode("x")}}}
		if _, _, err := d.ApplyBatch("", "", ops); err != nil {
			t.Fatalf("ApplyBatch() error = %v", err)
		}
	}

	got := d.BatchesSince(1, 0)
	if len(got) != 2 {
		t.Fatalf("BatchesSince(1) returned %d batches, want %d", len(got), 2)
	}
	if got[0].Revision != 2 || got[1].Revision != 3 {
		t.Fatalf("BatchesSince(1) revisions = %d,%d, want 2,3", got[0].Revision, got[1].Revision)
	}
}

func TestDocument_RingEviction(t *testing.T) {
	d := newDocument("doc-1", "", 2)

	for i := 0; i < 3; i++ {
		ops := []editop.Operation{{Type: editop.OpInsert, Position: editop.IntPtr(0), Content: []editop.Node{editop.TextNode("x")}}}
		if _, _, err := d.ApplyBatch("", "", ops); err != nil {
			t.Fatalf("ApplyBatch() error = %v", err)
		}
	}

	// ringCap=2：第 1 批已被挤出，revision=1 之后只剩 2、3 两批
	got := d.BatchesSince(0, 0)
	if len(got) != 2 {
		t.Fatalf("BatchesSince(0) returned %d batches, want %d", len(got), 2)
	}
	if got[0].Revision != 2 {
		t.Fatalf("oldest retained revision = %d, want %d", got[0].Revision, 2)
	}
}

func TestSession_GetOrCreateUsesLoader(t *testing.T) {
	loads := 0
	s := NewSession(func(docID string) string {
		loads++
		return "loaded:" + docID
	})

	d1 := s.GetOrCreate("a")
	d2 := s.GetOrCreate("a")
	if d1 != d2 {
		t.Fatalf("GetOrCreate returned different documents for the same docID")
	}
	if loads != 1 {
		t.Fatalf("loader called %d times, want %d", loads, 1)
	}

	content, _ := d1.Snapshot()
	if content != "loaded:a" {
		t.Fatalf("initial content = %q, want %q", content, "loaded:a")
	}

	// Close 解绑后再取会重新加载
	s.Close("a")
	s.GetOrCreate("a")
	if loads != 2 {
		t.Fatalf("loader called %d times after Close, want %d", loads, 2)
	}
}
