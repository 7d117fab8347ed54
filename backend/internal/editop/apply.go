package editop

import "log"

// 应用目标缓冲区。doc.PieceTable 和外部 CRDT 句柄都满足这个接口。
type Buffer interface {
	Len() int
	ApplyEdit(pos int, insert string, deleteLen int) error
}

// ApplyAll 把一批“已经 Normalize 过”的操作逐条落到缓冲区上。
// 单条操作失败只记日志并跳过，不会中断剩下的操作；返回实际应用的条数。
// 偏移越界一律收敛到 [0, Len()]，永远不会 panic。
func ApplyAll(buf Buffer, ops []Operation) int {
	applied := 0
	for _, op := range ops {
		if err := applyOne(buf, op); err != nil {
			log.Printf("apply operation skipped (type=%s): %v", op.Type, err)
			continue
		}
		applied++
	}
	return applied
}

func applyOne(buf Buffer, op Operation) error {
	n := buf.Len()
	switch op.Type {
	case OpInsert:
		pos := op.anchor()
		pos = clamp(pos, 0, n)
		return buf.ApplyEdit(pos, op.RenderContent(), 0)
	case OpReplace:
		from, to := op.bounds()
		from = clamp(from, 0, n)
		to = clamp(to, from, n)
		return buf.ApplyEdit(from, op.RenderContent(), to-from)
	case OpDelete:
		from, to := op.bounds()
		from = clamp(from, 0, n)
		to = clamp(to, from, n)
		return buf.ApplyEdit(from, "", to-from)
	default:
		// 未知类型按空操作处理
		log.Printf("unknown operation type %q ignored", op.Type)
		return nil
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
