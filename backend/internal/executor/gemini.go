package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"mdcollab/backend/internal/editop"
)

// GeminiGenerator 用 Gemini API 实现 Generator。
// 要求模型直接返回 JSON（operations + message），解析失败按生成失败处理。
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("LLM API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// 模型输出的 JSON 形状
type genPayload struct {
	Operations []editop.Operation `json:"operations"`
	Message    string             `json:"message"`
}

func (g *GeminiGenerator) Generate(ctx context.Context, req GenRequest) (GenResult, error) {
	resp, err := g.client.Models.GenerateContent(ctx,
		g.model,
		genai.Text(buildPrompt(req)),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return GenResult{}, fmt.Errorf("generate content: %w", err)
	}
	return parsePayload(resp.Text())
}

func (g *GeminiGenerator) GenerateStream(ctx context.Context, req GenRequest, emit func(delta string)) (GenResult, error) {
	var acc strings.Builder
	for resp, err := range g.client.Models.GenerateContentStream(ctx,
		g.model,
		genai.Text(buildPrompt(req)),
		&genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		},
	) {
		if err != nil {
			return GenResult{}, fmt.Errorf("generate content stream: %w", err)
		}
		delta := resp.Text()
		if delta != "" {
			acc.WriteString(delta)
			if emit != nil {
				emit(delta)
			}
		}
	}
	return parsePayload(acc.String())
}

func parsePayload(text string) (GenResult, error) {
	var payload genPayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return GenResult{}, fmt.Errorf("model returned unusable output: %w", err)
	}
	return GenResult{Operations: payload.Operations, Message: payload.Message}, nil
}

func buildPrompt(req GenRequest) string {
	var b strings.Builder
	b.WriteString("You are a markdown editing assistant. ")
	b.WriteString("Given the current document and a user request, respond ONLY with a JSON object:\n")
	b.WriteString(`{"operations":[{"type":"insert|replace|delete","position":0,"from":0,"to":0,"content":[{"type":"text","text":"..."}],"description":"..."}],"message":"..."}` + "\n")
	b.WriteString("Offsets are character offsets into the document BEFORE any edit is applied.\n\n")
	fmt.Fprintf(&b, "Command: %s\n", req.Command)
	fmt.Fprintf(&b, "Request: %s\n", req.Prompt)
	if req.Context != "" {
		fmt.Fprintf(&b, "Extra context: %s\n", req.Context)
	}
	if req.SelectionEnd > req.SelectionStart {
		fmt.Fprintf(&b, "Selection: [%d, %d)\n", req.SelectionStart, req.SelectionEnd)
	}
	fmt.Fprintf(&b, "\nDocument (%d chars):\n%s\n", len([]rune(req.Content)), req.Content)
	return b.String()
}
