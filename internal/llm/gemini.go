package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/gradecraft/backend/internal/models"
)

// Thinking budgets per reasoning effort, in tokens.
const (
	thinkingBudgetLow    = 1024
	thinkingBudgetMedium = 4096
	thinkingBudgetHigh   = 8192
)

// GeminiGrader is the Gemini-backed Grader. One client serves every run;
// the model id comes from RunParams so a single adapter covers the whole
// ensemble.
type GeminiGrader struct {
	client *genai.Client
	log    *slog.Logger
}

func NewGeminiGrader(ctx context.Context, apiKey string, log *slog.Logger) (*GeminiGrader, error) {
	if log == nil {
		log = slog.Default()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGrader{client: client, log: log}, nil
}

var _ Grader = (*GeminiGrader)(nil)

func (g *GeminiGrader) Grade(ctx context.Context, prompt string, p RunParams) (*Result, error) {
	resp, err := g.client.Models.GenerateContent(ctx, p.Model, genai.Text(prompt), g.genConfig(p))
	if err != nil {
		return nil, classify(p.Model, err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, &Error{Kind: KindMalformedOutput, Model: p.Model,
			Err: fmt.Errorf("empty response (finish: %s)", finishReason(resp))}
	}

	res, perr := ParseResult([]byte(raw))
	if perr != nil {
		// Keep the raw text: recovery may still salvage this run.
		return nil, &Error{Kind: KindMalformedOutput, Model: p.Model, RawText: raw, Err: perr}
	}
	res.TokensUsed = totalTokens(resp)
	return res, nil
}

func (g *GeminiGrader) Synthesize(ctx context.Context, prompt string, p RunParams) (*models.Feedback, error) {
	resp, err := g.client.Models.GenerateContent(ctx, p.Model, genai.Text(prompt), g.genConfig(p))
	if err != nil {
		return nil, classify(p.Model, err)
	}
	raw := resp.Text()
	var fb models.Feedback
	if err := json.Unmarshal([]byte(stripCodeFences(raw)), &fb); err != nil {
		return nil, &Error{Kind: KindMalformedOutput, Model: p.Model, RawText: raw, Err: err}
	}
	if len(fb.Strengths) == 0 && len(fb.Improvements) == 0 {
		return nil, &Error{Kind: KindMalformedOutput, Model: p.Model, RawText: raw,
			Err: fmt.Errorf("synthesis produced no feedback")}
	}
	return &fb, nil
}

func (g *GeminiGrader) genConfig(p RunParams) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(p.Temperature),
		MaxOutputTokens:  p.MaxOutputTokens,
		ResponseMIMEType: "application/json",
	}
	if budget := thinkingBudget(p.ReasoningEffort); budget > 0 {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(int32(budget))}
	}
	return cfg
}

func thinkingBudget(effort string) int {
	switch effort {
	case "low":
		return thinkingBudgetLow
	case "medium":
		return thinkingBudgetMedium
	case "high":
		return thinkingBudgetHigh
	default:
		return 0
	}
}

func finishReason(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 {
		return "no candidates"
	}
	return string(resp.Candidates[0].FinishReason)
}

func totalTokens(resp *genai.GenerateContentResponse) int {
	if resp.UsageMetadata == nil {
		return 0
	}
	return int(resp.UsageMetadata.TotalTokenCount)
}
