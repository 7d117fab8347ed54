package doc

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"mdcollab/backend/internal/editop"
)

// AppliedBatch 记录一条命令产出的整批操作被应用后的结果，
// 用于幂等追踪和掉线客户端追平。
type AppliedBatch struct {
	OperationID string             `json:"operationId"`
	RequestID   string             `json:"requestId,omitempty"`
	Command     string             `json:"command,omitempty"`
	Revision    uint64             `json:"revision"`
	Ops         []editop.Operation `json:"ops"`
	AppliedAt   time.Time          `json:"appliedAt"`
}

// Document 是一次编辑会话里的单个文档：docID 对应协同房间的 key，
// FilePath 为空表示纯内存模式。
// 批内操作在 mu 之下整体落盘，别的命令插不进来。
type Document struct {
	DocID    string
	FilePath string

	mu       sync.Mutex
	buf      Buffer
	revision uint64
	opsRing  []AppliedBatch
	ringCap  int
}

func newDocument(docID, initial string, ringCap int) *Document {
	if ringCap <= 0 {
		ringCap = 1024
	}
	return &Document{
		DocID:   docID,
		buf:     NewPieceTable(initial),
		opsRing: make([]AppliedBatch, 0, ringCap),
		ringCap: ringCap,
	}
}

// Snapshot 返回当前全文和版本号
func (d *Document) Snapshot() (string, uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf.String(), d.revision
}

func (d *Document) Revision() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.revision
}

// ApplyBatch 把一批“已 Normalize”的操作原子地应用到缓冲区：
// 要么在任何应用之前失败，要么整批按序落下（单条畸形操作降级为空操作）。
// 每成功一批，版本号 +1。
func (d *Document) ApplyBatch(requestID, command string, ops []editop.Operation) (AppliedBatch, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.buf == nil {
		return AppliedBatch{}, 0, fmt.Errorf("document %s has no buffer binding", d.DocID)
	}

	applied := editop.ApplyAll(d.buf, ops)

	d.revision++
	batch := AppliedBatch{
		OperationID: "op-" + uuid.NewString(),
		RequestID:   requestID,
		Command:     command,
		Revision:    d.revision,
		Ops:         ops,
		AppliedAt:   time.Now(),
	}

	// 保存到环形缓冲（达到容量时丢弃最老的一条）
	if len(d.opsRing) == d.ringCap {
		copy(d.opsRing[0:], d.opsRing[1:])
		d.opsRing = d.opsRing[:len(d.opsRing)-1]
	}
	d.opsRing = append(d.opsRing, batch)

	return batch, applied, nil
}

// BatchesSince 返回版本号大于 fromRevision 的已应用批次，供重连客户端追平
func (d *Document) BatchesSince(fromRevision uint64, limit int) []AppliedBatch {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []AppliedBatch
	for _, b := range d.opsRing {
		if b.Revision > fromRevision {
			out = append(out, b)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}

// Session 持有本进程内所有活跃文档。
// 不变式：每个 docID 在一个进程里至多有一个 buffer 绑定。
type Session struct {
	mu      sync.RWMutex
	docs    map[string]*Document
	ringCap int
	// 新建文档时的初始内容来源（例如从文件存储加载），可以为 nil
	loader func(docID string) string
}

func NewSession(loader func(docID string) string) *Session {
	return &Session{
		docs:    make(map[string]*Document),
		ringCap: 1024,
		loader:  loader,
	}
}

// GetOrCreate 获取或创建指定文档的状态
func (s *Session) GetOrCreate(docID string) *Document {
	s.mu.RLock()
	d := s.docs[docID]
	s.mu.RUnlock()
	if d != nil {
		return d
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if d = s.docs[docID]; d == nil {
		initial := ""
		if s.loader != nil {
			initial = s.loader(docID)
		}
		d = newDocument(docID, initial, s.ringCap)
		s.docs[docID] = d
	}
	return d
}

// Close 解除文档绑定（切换文档或会话结束时调用）
func (s *Session) Close(docID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, docID)
}
