package editop

// 操作类型（封闭集）
type OpType string

const (
	OpInsert  OpType = "insert"
	OpReplace OpType = "replace"
	OpDelete  OpType = "delete"
)

// Operation 是一条编辑意图。偏移量都是针对“编辑前”的缓冲区计算的，
// 所以一批操作必须先经过 Normalize 排序再应用（见 normalize.go）。
// Position/From/To 用指针区分“字段缺失”和“显式为 0”：
// 缺失的 position/from 按 0 处理，缺失的 to 按 from+1 处理。
type Operation struct {
	Type        OpType `json:"type"`
	Position    *int   `json:"position,omitempty"` // insert 的绝对偏移
	From        *int   `json:"from,omitempty"`     // replace/delete 的左闭边界
	To          *int   `json:"to,omitempty"`       // replace/delete 的右开边界
	Content     []Node `json:"content,omitempty"`
	Description string `json:"description,omitempty"`
}

// anchor 返回排序用的锚点位置
func (op Operation) anchor() int {
	switch op.Type {
	case OpInsert:
		if op.Position != nil {
			return *op.Position
		}
		return 0
	default:
		if op.From != nil {
			return *op.From
		}
		return 0
	}
}

// bounds 返回 replace/delete 的半开区间，缺省 to = from+1（至少消费一个字符）
func (op Operation) bounds() (from, to int) {
	if op.From != nil {
		from = *op.From
	}
	if op.To != nil {
		to = *op.To
	} else {
		to = from + 1
	}
	if to < from {
		to = from
	}
	return from, to
}

// RenderContent 把操作携带的内容树归约成纯文本
func (op Operation) RenderContent() string {
	return Render(op.Content)
}

// IntPtr 构造字面量操作时用的小工具
func IntPtr(v int) *int { return &v }
