package editop

// 内容节点类型集合（封闭集）。叶子节点只有 text，其余都是容器。
type NodeType string

const (
	NodeText      NodeType = "text"
	NodeParagraph NodeType = "paragraph"
	NodeHeading   NodeType = "heading"
	NodeCodeBlock NodeType = "codeBlock"
	NodeMathBlock NodeType = "mathBlock"
	NodeDiagram   NodeType = "diagram"
)

// Node 是一条编辑操作携带的富内容。每个节点都能归约为一段纯文本渲染，
// 这是操作表示和扁平文本缓冲区之间的序列化契约。
type Node struct {
	Type     NodeType `json:"type"`
	Text     string   `json:"text,omitempty"`
	Level    int      `json:"level,omitempty"`    // heading 层级，1..6
	Language string   `json:"language,omitempty"` // codeBlock 语言标签
	Children []Node   `json:"children,omitempty"`
}

// Text 叶子节点的快捷构造
func TextNode(s string) Node {
	return Node{Type: NodeText, Text: s}
}
