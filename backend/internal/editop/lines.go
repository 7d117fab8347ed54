package editop

import (
	"strings"
	"sync"
)

// LineDoc 是视图进程的降级文档模型：没有在线协同会话时，
// 视图直接对行数组做整行拼接，排序策略和字符缓冲路径完全一致。
// 当操作边界恰好落在行边界上时，两条路径产出的最终文本相同
// （lines_test.go 里有等价性校验）。
type LineDoc struct {
	mu    sync.Mutex
	lines []string
}

func NewLineDoc(content string) *LineDoc {
	d := &LineDoc{}
	if content != "" {
		d.lines = strings.Split(content, "\n")
	}
	return d
}

func (d *LineDoc) Content() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return strings.Join(d.lines, "\n")
}

// Apply 对行模型应用一批操作。偏移此时按“行号”解释。
func (d *LineDoc) Apply(ops []Operation) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lines = ApplyToLines(d.lines, ops)
}

// ApplyToLines 是行拼接路径的纯函数版本：同样先 Normalize 再从后往前应用。
func ApplyToLines(lines []string, ops []Operation) []string {
	for _, op := range Normalize(ops) {
		lines = applyToLinesOne(lines, op)
	}
	return lines
}

func applyToLinesOne(lines []string, op Operation) []string {
	n := len(lines)
	switch op.Type {
	case OpInsert:
		pos := clamp(op.anchor(), 0, n)
		return spliceLines(lines, pos, pos, renderLines(op))
	case OpReplace:
		from, to := op.bounds()
		from = clamp(from, 0, n)
		to = clamp(to, from, n)
		return spliceLines(lines, from, to, renderLines(op))
	case OpDelete:
		from, to := op.bounds()
		from = clamp(from, 0, n)
		to = clamp(to, from, n)
		return spliceLines(lines, from, to, nil)
	default:
		return lines
	}
}

func renderLines(op Operation) []string {
	text := strings.TrimRight(op.RenderContent(), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

// 把 lines[from:to) 替换为 insert
func spliceLines(lines []string, from, to int, insert []string) []string {
	out := make([]string, 0, len(lines)-(to-from)+len(insert))
	out = append(out, lines[:from]...)
	out = append(out, insert...)
	out = append(out, lines[to:]...)
	return out
}
