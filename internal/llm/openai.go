package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/cloudwego/eino-ext/components/model/openai"
)

// OpenAIConfig configures an OpenAI-compatible backend. BaseURL lets
// this point at any OpenAI-compatible server (a local inference
// server included), treating "openai" as a wire protocol rather than
// a single vendor.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// ConfigFromEnv fills in an OpenAIConfig's empty fields from the
// standard OpenAI environment variables.
func ConfigFromEnv(cfg OpenAIConfig) OpenAIConfig {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("OPENAI_BASE_URL")
	}
	if cfg.Model == "" {
		cfg.Model = os.Getenv("OPENAI_MODEL_ID")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	return cfg
}

// OpenAIBackend adapts an eino ToolCallingChatModel to the Backend
// contract: one synchronous Complete per agent-loop iteration, no
// streaming.
type OpenAIBackend struct {
	chatModel model.ToolCallingChatModel
	cfg       OpenAIConfig
}

// NewOpenAIBackend builds a Backend bound to one model. Tool binding
// happens per-request in Complete, since allowed_tools can differ
// between a parent loop and a subagent sharing this same backend.
func NewOpenAIBackend(ctx context.Context, cfg OpenAIConfig) (*OpenAIBackend, error) {
	cfg = ConfigFromEnv(cfg)
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: OPENAI_API_KEY not set")
	}

	chatCfg := &openai.ChatModelConfig{
		APIKey:              cfg.APIKey,
		Model:               cfg.Model,
		MaxCompletionTokens: &cfg.MaxTokens,
	}
	if cfg.BaseURL != "" {
		chatCfg.BaseURL = cfg.BaseURL
	}

	chatModel, err := openai.NewChatModel(ctx, chatCfg)
	if err != nil {
		return nil, fmt.Errorf("llm: create chat model: %w", err)
	}

	return &OpenAIBackend{chatModel: chatModel, cfg: cfg}, nil
}

// Complete implements Backend.
func (b *OpenAIBackend) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResult, error) {
	select {
	case <-ctx.Done():
		return nil, ErrCancelled
	default:
	}

	chatModel := b.chatModel
	if len(req.Tools) > 0 {
		bound, err := chatModel.WithTools(req.Tools)
		if err != nil {
			return nil, fmt.Errorf("llm: bind tools: %w", err)
		}
		chatModel = bound
	}

	opts := []model.Option{}
	temperature := b.cfg.Temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	if temperature > 0 {
		opts = append(opts, model.WithTemperature(float32(temperature)))
	}
	topP := b.cfg.TopP
	if req.TopP > 0 {
		topP = req.TopP
	}
	if topP > 0 {
		opts = append(opts, model.WithTopP(float32(topP)))
	}

	out, err := chatModel.Generate(ctx, req.Messages, opts...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		return nil, fmt.Errorf("llm: generate: %w", err)
	}

	return &CompletionResult{Message: out, Timings: timingsOf(out)}, nil
}

// ClearCache is a no-op: a remote OpenAI-compatible endpoint exposes
// no client-controllable KV-cache, so the Subagent Manager's
// clear-before/clear-after calls are harmless here rather than
// meaningful. A local inference backend that does expose cache
// control would implement this for real.
func (b *OpenAIBackend) ClearCache(slot string) error { return nil }

func timingsOf(m *schema.Message) Timings {
	if m == nil || m.ResponseMeta == nil || m.ResponseMeta.Usage == nil {
		return Timings{}
	}
	u := m.ResponseMeta.Usage
	return Timings{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
	}
}
