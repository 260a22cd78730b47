package llm

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/raphaelgruber/sidekick/internal/config"
	"github.com/raphaelgruber/sidekick/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/bedrock"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// langchainBackend serves the providers langchaingo supports.
type langchainBackend struct {
	llm      llms.Model
	callOpts []llms.CallOption
}

func newLangchainBackendFromConfig(ctx context.Context, cfg config.Config, model string) (*langchainBackend, error) {
	var (
		m        llms.Model
		callOpts []llms.CallOption
		err      error
	)

	switch cfg.LLMProvider {
	case config.ProviderOllama:
		m, err = ollama.New(
			ollama.WithModel(model),
			ollama.WithServerURL(cfg.OllamaHost),
			ollama.WithFormat("json"),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI, "":
		if cfg.APIKey == "" {
			return nil, errors.New("OpenAI API key required")
		}
		m, err = openai.New(
			openai.WithToken(cfg.APIKey),
			openai.WithModel(model),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}
		callOpts = append(callOpts, llms.WithJSONMode())

	case config.ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, errors.New("Anthropic API key required")
		}
		m, err = anthropic.New(
			anthropic.WithToken(cfg.APIKey),
			anthropic.WithModel(model),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	case config.ProviderBedrock:
		var loadOpts []func(*awsconfig.LoadOptions) error
		if cfg.AWSRegion != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.AWSRegion))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		m, err = bedrock.New(
			bedrock.WithClient(bedrockruntime.NewFromConfig(awsCfg)),
			bedrock.WithModel(model),
		)
		if err != nil {
			return nil, fmt.Errorf("create bedrock model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	return newLangchainBackend(m, callOpts...), nil
}

func newLangchainBackend(m llms.Model, callOpts ...llms.CallOption) *langchainBackend {
	return &langchainBackend{llm: m, callOpts: callOpts}
}

func (b *langchainBackend) generate(ctx context.Context, msgs []message) (completion, error) {
	content := make([]llms.MessageContent, 0, len(msgs))
	for _, m := range msgs {
		content = append(content, llms.TextParts(langchainRole(m.role), m.content))
	}

	resp, err := b.llm.GenerateContent(ctx, content, b.callOpts...)
	if err != nil {
		return completion{}, err
	}
	if len(resp.Choices) == 0 {
		return completion{}, errors.New("no response choices")
	}

	choice := resp.Choices[0]
	return completion{
		text:  choice.Content,
		usage: usageFromGenerationInfo(choice.GenerationInfo),
	}, nil
}

func langchainRole(r chatRole) llms.ChatMessageType {
	switch r {
	case roleSystem:
		return llms.ChatMessageTypeSystem
	case roleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// Providers disagree on how they name token counts.
var (
	inputTokenKeys  = []string{"PromptTokens", "InputTokens", "input_tokens", "prompt_tokens"}
	outputTokenKeys = []string{"CompletionTokens", "OutputTokens", "output_tokens", "completion_tokens"}
)

func usageFromGenerationInfo(info map[string]any) models.Usage {
	return models.Usage{
		InputTokens:  firstCount(info, inputTokenKeys),
		OutputTokens: firstCount(info, outputTokenKeys),
	}
}

func firstCount(info map[string]any, keys []string) int64 {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return int64(v)
		case int32:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		}
	}
	return 0
}
