// Package llm provides the chat model, summarizer and embedder capabilities
// using langchaingo.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/raphaelgruber/converse-go/internal/config"
	"github.com/raphaelgruber/converse-go/internal/models"
)

// Model wraps a langchaingo chat model behind the conversation-level
// message contract.
type Model struct {
	llm       llms.Model
	modelName string
	logger    *slog.Logger
}

// NewModel creates a chat model based on configuration.
func NewModel(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Model, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var model llms.Model
	var err error

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.LLMModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderBedrock:
		awsCfg, awsErr := awsconfig.LoadDefaultConfig(ctx)
		if awsErr != nil {
			return nil, fmt.Errorf("load aws config: %w", awsErr)
		}
		client := bedrockruntime.NewFromConfig(awsCfg)
		model, err = bedrock.New(
			bedrock.WithClient(client),
			bedrock.WithModel(cfg.LLMModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return &Model{
		llm:       model,
		modelName: cfg.LLMModel,
		logger:    logger,
	}, nil
}

// Model returns the chat model name.
func (m *Model) Model() string {
	return m.modelName
}

// toContent converts role-tagged prompt messages to langchaingo message
// content, preserving order.
func toContent(msgs []models.PromptMessage) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(msgs))
	for _, msg := range msgs {
		role := llms.ChatMessageTypeHuman
		if msg.Role == models.RoleSystem {
			role = llms.ChatMessageTypeSystem
		}
		content = append(content, llms.TextParts(role, msg.Content))
	}
	return content
}

// Invoke sends the composed prompt to the model and returns the response
// text. The owner identity is attached to instrumentation only; provider
// requests are otherwise identical across users.
func (m *Model) Invoke(ctx context.Context, msgs []models.PromptMessage, owner string) (string, error) {
	start := time.Now()
	response, err := m.llm.GenerateContent(ctx, toContent(msgs))
	duration := time.Since(start)

	if err != nil {
		m.logger.Warn("model invocation failed",
			"model", m.modelName, "owner", owner,
			"duration_ms", duration.Milliseconds(), "error", err)
		return "", fmt.Errorf("generate content: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	m.logger.Debug("model invocation complete",
		"model", m.modelName, "owner", owner,
		"messages", len(msgs), "duration_ms", duration.Milliseconds())
	return response.Choices[0].Content, nil
}

// InvokeStream behaves like Invoke but forwards response tokens to onToken
// as they arrive. Returns the full accumulated response text.
func (m *Model) InvokeStream(ctx context.Context, msgs []models.PromptMessage, owner string, onToken func(token string) error) (string, error) {
	var full strings.Builder

	start := time.Now()
	response, err := m.llm.GenerateContent(ctx, toContent(msgs),
		llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			full.Write(chunk)
			return onToken(string(chunk))
		}),
	)
	duration := time.Since(start)

	if err != nil {
		m.logger.Warn("model streaming failed",
			"model", m.modelName, "owner", owner,
			"duration_ms", duration.Milliseconds(), "error", err)
		return "", fmt.Errorf("generate content stream: %w", err)
	}

	text := full.String()
	if text == "" && len(response.Choices) > 0 {
		// Some providers only populate the final choice.
		text = response.Choices[0].Content
	}

	m.logger.Debug("model streaming complete",
		"model", m.modelName, "owner", owner,
		"duration_ms", duration.Milliseconds())
	return text, nil
}

// GenerateWithSystem runs a single system+user exchange. Used by the
// summarizer, which does not carry conversation structure.
func (m *Model) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	response, err := m.llm.GenerateContent(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate with system: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return response.Choices[0].Content, nil
}
