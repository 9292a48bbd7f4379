package assist

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/nao1215/covgen/internal/config"
)

// anthropicVersion is the messages API version Bedrock expects for
// Anthropic models.
const anthropicVersion = "bedrock-2023-05-31"

// Environment variables consulted before config.ini.
const (
	envAccessKeyID     = "AWS_ACCESS_KEY_ID"
	envSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	envDefaultRegion   = "AWS_DEFAULT_REGION"
)

// ModelInvoker sends a prompt to a language model and returns its text.
type ModelInvoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// bedrockAPI is the subset of the Bedrock runtime client we use.
type bedrockAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockInvoker calls an Anthropic model through Bedrock InvokeModel.
type BedrockInvoker struct {
	client   bedrockAPI
	settings config.BedrockSettings
	logger   *slog.Logger
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	AnthropicVersion string             `json:"anthropic_version"` //nolint:tagliatelle // wire format
	MaxTokens        int                `json:"max_tokens"`
	Temperature      float64            `json:"temperature"`
	Messages         []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// NewBedrockInvoker builds a Bedrock client from settings.
//
// Credentials are taken from AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY when
// set, then from the static keys in config.ini, then from the SDK default
// chain (shared config, SSO, instance roles). The region is
// AWS_DEFAULT_REGION when set, otherwise settings.Region.
func NewBedrockInvoker(ctx context.Context, settings config.BedrockSettings, logger *slog.Logger) (*BedrockInvoker, error) {
	if logger == nil {
		logger = slog.Default()
	}

	region := ResolveRegion(settings)
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}

	source := "default chain"
	if !envCredentialsSet() && settings.HasStaticCredentials() {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(settings.AccessKeyID, settings.SecretAccessKey, "")))
		source = "config.ini"
	} else if envCredentialsSet() {
		source = "environment"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	logger.Debug("bedrock client ready", "region", region, "model_id", settings.ModelID, "credentials", source)

	return &BedrockInvoker{
		client:   bedrockruntime.NewFromConfig(awsCfg),
		settings: settings,
		logger:   logger,
	}, nil
}

// ResolveRegion applies the AWS_DEFAULT_REGION override.
func ResolveRegion(settings config.BedrockSettings) string {
	if r := strings.TrimSpace(os.Getenv(envDefaultRegion)); r != "" {
		return r
	}
	if settings.Region != "" {
		return settings.Region
	}
	return config.DefaultBedrockRegion
}

func envCredentialsSet() bool {
	return os.Getenv(envAccessKeyID) != "" && os.Getenv(envSecretAccessKey) != ""
}

// Invoke sends prompt as a single user message and returns the first
// content block's text.
func (b *BedrockInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	if b.settings.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.settings.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(anthropicRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        b.settings.MaxTokens,
		Temperature:      b.settings.Temperature,
		Messages:         []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	out, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.settings.ModelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("bedrock InvokeModel failed: %w", err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode bedrock response: %w", err)
	}
	if len(resp.Content) == 0 || resp.Content[0].Text == "" {
		return "", ErrEmptyResponse
	}

	b.logger.Debug("bedrock response received", "stop_reason", resp.StopReason, "chars", len(resp.Content[0].Text))
	return resp.Content[0].Text, nil
}
