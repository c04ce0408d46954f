package backend

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/pkg/errors"
)

const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.7
	DefaultTopP        = 0.95
	DefaultMaxTokens   = 2048
)

// Engine produces a complete reply for a prompt.
type Engine interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type EngineSettings struct {
	APIKey      string  `mapstructure:"api-key" yaml:"api-key"`
	BaseURL     string  `mapstructure:"base-url" yaml:"base-url"`
	Model       string  `mapstructure:"model" yaml:"model"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	TopP        float64 `mapstructure:"top-p" yaml:"top-p"`
	MaxTokens   int64   `mapstructure:"max-tokens" yaml:"max-tokens"`
}

// OpenAIEngine talks to any OpenAI compatible chat completions endpoint.
type OpenAIEngine struct {
	client      openai.Client
	model       string
	temperature float64
	topP        float64
	maxTokens   int64
}

var _ Engine = &OpenAIEngine{}

func NewOpenAIEngine(s EngineSettings) (*OpenAIEngine, error) {
	if strings.TrimSpace(s.APIKey) == "" {
		return nil, errors.New("openai engine: missing api key")
	}
	opts := []option.RequestOption{option.WithAPIKey(s.APIKey)}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	e := &OpenAIEngine{
		client:      openai.NewClient(opts...),
		model:       s.Model,
		temperature: s.Temperature,
		topP:        s.TopP,
		maxTokens:   s.MaxTokens,
	}
	if e.model == "" {
		e.model = DefaultModel
	}
	if e.temperature == 0 {
		e.temperature = DefaultTemperature
	}
	if e.topP == 0 {
		e.topP = DefaultTopP
	}
	if e.maxTokens <= 0 {
		e.maxTokens = DefaultMaxTokens
	}
	return e, nil
}

func (e *OpenAIEngine) Model() string { return e.model }

func (e *OpenAIEngine) Generate(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	params.Temperature = openai.Float(e.temperature)
	params.TopP = openai.Float(e.topP)
	params.MaxTokens = openai.Int(e.maxTokens)

	completion, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if completion == nil || len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}
