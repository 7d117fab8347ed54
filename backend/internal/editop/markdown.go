package editop

import (
	"strings"
)

// Render 把内容树折叠成 markdown 文本。
// 渲染必须是无损的：Parse(Render(tree)) 重建出等价结构，再 Render 一次
// 得到完全相同的字符串（幂等性质，markdown_test.go 里有校验）。
func Render(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(renderNode(n))
	}
	return b.String()
}

func renderNode(n Node) string {
	switch n.Type {
	case NodeText:
		return n.Text
	case NodeParagraph:
		return renderChildren(n) + "\n\n"
	case NodeHeading:
		level := n.Level
		if level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		return strings.Repeat("#", level) + " " + renderChildren(n) + "\n\n"
	case NodeCodeBlock:
		return "```" + n.Language + "\n" + renderChildren(n) + "\n```\n\n"
	case NodeDiagram:
		// 图表统一走 mermaid 围栏，和 codeBlock 靠语言标签区分
		return "```mermaid\n" + renderChildren(n) + "\n```\n\n"
	case NodeMathBlock:
		return "$$\n" + renderChildren(n) + "\n$$\n\n"
	default:
		// 未知节点退化为子节点的纯文本，不丢内容
		return renderChildren(n)
	}
}

func renderChildren(n Node) string {
	if len(n.Children) == 0 {
		return n.Text
	}
	var b strings.Builder
	for _, c := range n.Children {
		b.WriteString(renderNode(c))
	}
	return b.String()
}

// Parse 把 Render 产出的 markdown 还原成内容树。
// 这是一个按行扫描的块级解析器，只认识 Render 会产出的结构，
// 不追求完整的 markdown 语法覆盖。
func Parse(s string) []Node {
	lines := strings.Split(s, "\n")
	var nodes []Node
	var para []string

	flushPara := func() {
		if len(para) > 0 {
			nodes = append(nodes, Node{
				Type:     NodeParagraph,
				Children: []Node{TextNode(strings.Join(para, "\n"))},
			})
			para = nil
		}
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case strings.HasPrefix(line, "```"):
			flushPara()
			lang := strings.TrimPrefix(line, "```")
			var body []string
			for i++; i < len(lines) && lines[i] != "```"; i++ {
				body = append(body, lines[i])
			}
			child := []Node{TextNode(strings.Join(body, "\n"))}
			if lang == "mermaid" {
				nodes = append(nodes, Node{Type: NodeDiagram, Children: child})
			} else {
				nodes = append(nodes, Node{Type: NodeCodeBlock, Language: lang, Children: child})
			}
		case line == "$$":
			flushPara()
			var body []string
			for i++; i < len(lines) && lines[i] != "$$"; i++ {
				body = append(body, lines[i])
			}
			nodes = append(nodes, Node{Type: NodeMathBlock, Children: []Node{TextNode(strings.Join(body, "\n"))}})
		case headingLevel(line) > 0:
			flushPara()
			level := headingLevel(line)
			text := strings.TrimPrefix(line, strings.Repeat("#", level)+" ")
			nodes = append(nodes, Node{Type: NodeHeading, Level: level, Children: []Node{TextNode(text)}})
		case line == "":
			flushPara()
		default:
			para = append(para, line)
		}
	}
	// 段落节点渲染时末尾带空行，所以扫到输入结束还没被空行终止的
	// 文本串只能来自裸 text 叶子，按原样还原，保证 Render∘Parse 幂等
	if len(para) > 0 {
		nodes = append(nodes, TextNode(strings.Join(para, "\n")))
	}
	return nodes
}

// 返回 "# "、"## " 等前缀对应的标题层级，非标题行返回 0
func headingLevel(line string) int {
	n := 0
	for n < len(line) && line[n] == '#' {
		n++
	}
	if n >= 1 && n <= 6 && n < len(line) && line[n] == ' ' {
		return n
	}
	return 0
}
