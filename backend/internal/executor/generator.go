package executor

import (
	"context"

	"mdcollab/backend/internal/editop"
)

// GenRequest 是外部生成函数的输入：命令类型、用户原始请求、
// 当前文档上下文（全文 + 选区提示）。
type GenRequest struct {
	Command        string
	Prompt         string
	DocID          string
	Content        string
	Context        string
	SelectionStart int
	SelectionEnd   int
}

type GenResult struct {
	Operations []editop.Operation
	Message    string
}

// Generator 抽象调用语言模型产出编辑操作的外部函数
type Generator interface {
	Generate(ctx context.Context, req GenRequest) (GenResult, error)
}

// StreamingGenerator 额外支持流式产出：emit 收到增量内容片段，
// 最终结果仍然整体返回。
type StreamingGenerator interface {
	Generator
	GenerateStream(ctx context.Context, req GenRequest, emit func(delta string)) (GenResult, error)
}
