package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/qs3c/fit_go_server/config"
	"github.com/qs3c/fit_go_server/internal/model"
	"github.com/qs3c/fit_go_server/internal/pkg/logger"
)

const systemInstruction = "You are a certified personal trainer. You answer only with a JSON array of workout items."

// GeminiGenerator 通过 Gemini 生成训练计划
type GeminiGenerator struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	complete func(ctx context.Context, prompt string) (string, error)
}

// NewGeminiGenerator 客户端可以复用，调用方负责 Close
func NewGeminiGenerator(ctx context.Context, cfg *config.PlannerConfig) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("planner api key is not configured")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	name := cfg.Model
	if name == "" {
		name = "gemini-1.5-flash"
	}
	m := client.GenerativeModel(name)
	m.ResponseMIMEType = "application/json"
	m.SystemInstruction = genai.NewUserContent(genai.Text(systemInstruction))

	g := &GeminiGenerator{client: client, model: m}
	g.complete = g.generateText
	return g, nil
}

// NewFromConfig 按 provider 创建生成器
func NewFromConfig(ctx context.Context, cfg *config.PlannerConfig) (Generator, func() error, error) {
	switch cfg.Provider {
	case "", "gemini":
		g, err := NewGeminiGenerator(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return g, g.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported planner provider %q", cfg.Provider)
	}
}

func (g *GeminiGenerator) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func (g *GeminiGenerator) Generate(ctx context.Context, params Params) ([]model.WorkoutItem, error) {
	output, err := g.complete(ctx, BuildPrompt(params))
	if err != nil {
		logger.Log.WithError(err).Warn("gemini request failed")
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	items, err := ParseItems(output, params.StartDate, params.EndDate)
	if err != nil {
		logger.Log.WithError(err).Warn("gemini output rejected")
		return nil, err
	}
	return items, nil
}

func (g *GeminiGenerator) generateText(ctx context.Context, prompt string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no content generated")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("response contains no text")
	}
	return b.String(), nil
}
