package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/wolfman30/photka-support-ai/internal/completion"
	appconfig "github.com/wolfman30/photka-support-ai/internal/config"
	"github.com/wolfman30/photka-support-ai/internal/observability/metrics"
	"github.com/wolfman30/photka-support-ai/pkg/logging"
)

// LoadAWSConfig centralizes AWS SDK initialization so both binaries share the
// same LocalStack/production wiring.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.AWSRegion)}
	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return aws.Config{}, err
	}
	if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(endpoint)
	}
	return awsCfg, nil
}

// BuildCompletionClient wires OpenAI as the primary provider with Gemini or
// Bedrock as the fallback. With nothing configured every reply fails with the
// "being set up" message. The returned func releases provider resources.
func BuildCompletionClient(ctx context.Context, cfg *appconfig.Config, m *metrics.ChatMetrics, logger *logging.Logger) (completion.Client, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	cleanup := func() {}

	var primary completion.Client
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		client, err := completion.NewOpenAIClient(completion.OpenAIConfig{
			BaseURL:    cfg.OpenAIBaseURL,
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIModel,
			Timeout:    cfg.CompletionTimeout,
			MaxRetries: cfg.CompletionMaxRetries,
			Backoff:    cfg.CompletionBackoff,
			Logger:     logger.Logger,
			Metrics:    m,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: openai client: %w", err)
		}
		primary = completion.NewInstrumented(client, "openai", m)
		logger.Info("completion provider configured", "provider", "openai", "model", cfg.OpenAIModel)
	}

	var fallback completion.Client
	switch {
	case strings.TrimSpace(cfg.GeminiAPIKey) != "":
		client, err := completion.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		cleanup = func() { _ = client.Close() }
		fallback = completion.NewInstrumented(client, "gemini", m)
		logger.Info("completion fallback configured", "provider", "gemini", "model", cfg.GeminiModel)
	case strings.TrimSpace(cfg.BedrockModelID) != "":
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		client, err := completion.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: bedrock client: %w", err)
		}
		fallback = completion.NewInstrumented(client, "bedrock", m)
		logger.Info("completion fallback configured", "provider", "bedrock", "model", cfg.BedrockModelID)
	}

	switch {
	case primary != nil && fallback != nil:
		return completion.NewFallbackClient(primary, fallback, logger.Logger), cleanup, nil
	case primary != nil:
		return primary, cleanup, nil
	case fallback != nil:
		return fallback, cleanup, nil
	default:
		logger.Warn("no completion provider configured; support replies will report setup in progress")
		return completion.NewInstrumented(completion.NotConfigured{}, "none", m), cleanup, nil
	}
}
