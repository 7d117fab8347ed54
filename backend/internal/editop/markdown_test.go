package editop

import "testing"

func TestRender_BlockForms(t *testing.T) {
	cases := []struct {
		name string
		node Node
		want string
	}{
		{"text", TextNode("plain"), "plain"},
		{"paragraph", Node{Type: NodeParagraph, Children: []Node{TextNode("hello")}}, "hello\n\n"},
		{"heading", Node{Type: NodeHeading, Level: 2, Children: []Node{TextNode("Title")}}, "## Title\n\n"},
		{"codeBlock", Node{Type: NodeCodeBlock, Language: "go", Children: []Node{TextNode("x := 1")}}, "```go\nx := 1\n```\n\n"},
		{"diagram", Node{Type: NodeDiagram, Children: []Node{TextNode("graph TD")}}, "```mermaid\ngraph TD\n```\n\n"},
		{"mathBlock", Node{Type: NodeMathBlock, Children: []Node{TextNode("E = mc^2")}}, "$$\nE = mc^2\n$$\n\n"},
	}
	for _, tc := range cases {
		if got := Render([]Node{tc.node}); got != tc.want {
			t.Fatalf("%s: Render() = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestRender_HeadingLevelClamp(t *testing.T) {
	if got := Render([]Node{{Type: NodeHeading, Level: 0, Children: []Node{TextNode("h")}}}); got != "# h\n\n" {
		t.Fatalf("level 0 rendered as %q, want %q", got, "# h\n\n")
	}
	if got := Render([]Node{{Type: NodeHeading, Level: 9, Children: []Node{TextNode("h")}}}); got != "###### h\n\n" {
		t.Fatalf("level 9 rendered as %q, want %q", got, "###### h\n\n")
	}
}

// Render -> Parse -> Render 必须回到同一字符串
func TestRenderParse_Idempotent(t *testing.T) {
	tree := []Node{
		{Type: NodeHeading, Level: 1, Children: []Node{TextNode("标题")}},
		{Type: NodeParagraph, Children: []Node{TextNode("第一段。")}},
		{Type: NodeCodeBlock, Language: "go", Children: []Node{TextNode("func main() {\n\n\tprintln(1)\n}")}},
		{Type: NodeDiagram, Children: []Node{TextNode("graph TD\nA-->B")}},
		{Type: NodeMathBlock, Children: []Node{TextNode("a^2 + b^2 = c^2")}},
		{Type: NodeParagraph, Children: []Node{TextNode("结尾段。")}},
		TextNode("末尾未闭合的裸文本"),
	}

	first := Render(tree)
	second := Render(Parse(first))
	if first != second {
		t.Fatalf("render not idempotent:\nfirst  = %q\nsecond = %q", first, second)
	}
}

// 没有终止空行的文本还原成裸 text 叶子而不是段落：
// 段落渲染会追加 "\n\n"，升格会让第二次 Render 比第一次多出空行
func TestParse_TrailingBareText(t *testing.T) {
	nodes := Parse("plain")
	if len(nodes) != 1 || nodes[0].Type != NodeText {
		t.Fatalf("Parse(%q) = %+v, want single text node", "plain", nodes)
	}
	if got := Render(nodes); got != "plain" {
		t.Fatalf("Render(Parse(%q)) = %q, want %q", "plain", got, "plain")
	}
}

// 代码围栏里的空行不能被当成段落分隔
func TestParse_FencedCodeWithBlankLines(t *testing.T) {
	src := "```python\ndef f():\n\n    return 1\n```\n\n"
	nodes := Parse(src)
	if len(nodes) != 1 {
		t.Fatalf("Parse() returned %d nodes, want %d", len(nodes), 1)
	}
	if nodes[0].Type != NodeCodeBlock || nodes[0].Language != "python" {
		t.Fatalf("node = %+v, want python codeBlock", nodes[0])
	}
	if got := Render(nodes); got != src {
		t.Fatalf("Render(Parse()) = %q, want %q", got, src)
	}
}

func TestParse_HeadingVsHashText(t *testing.T) {
	// "#foo"（井号后没有空格）不是标题
	nodes := Parse("#foo\n")
	if len(nodes) != 1 || nodes[0].Type != NodeParagraph {
		t.Fatalf("Parse(%q) = %+v, want single paragraph", "#foo", nodes)
	}
}
