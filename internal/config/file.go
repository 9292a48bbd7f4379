package config

import "time"

// Default [AWS_BEDROCK] values, matching what config.ini ships with.
const (
	DefaultBedrockRegion      = "us-east-1"
	DefaultBedrockModelID     = "anthropic.claude-3-haiku-20240307-v1:0"
	DefaultBedrockMaxTokens   = 4000
	DefaultBedrockTemperature = 0.1
	DefaultBedrockTimeout     = 2 * time.Minute
)

// File represents config.ini.
//
//	[DEFAULT]
//	repository_url = https://github.com/example/project.git
//
//	[AWS_BEDROCK]
//	region = us-east-1
//	model_id = anthropic.claude-3-haiku-20240307-v1:0
//	max_tokens = 4000
//	temperature = 0.1
//	auto_apply_suggestions = false
type File struct {
	// Path is where the file was loaded from. Empty when defaults are used.
	Path string

	// RepositoryURL is the fallback repository used when no URL argument
	// is given.
	RepositoryURL string

	// Bedrock holds the [AWS_BEDROCK] section.
	Bedrock BedrockSettings
}

// BedrockSettings holds the LLM assistant settings.
type BedrockSettings struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float64

	// AccessKeyID and SecretAccessKey are used only when the matching
	// environment variables are unset.
	AccessKeyID     string
	SecretAccessKey string

	// AutoApply applies suggested modifications without asking.
	AutoApply bool

	// Timeout bounds one InvokeModel call.
	Timeout time.Duration
}

// NewFile returns a File holding only defaults.
func NewFile() *File {
	return &File{
		Bedrock: BedrockSettings{
			Region:      DefaultBedrockRegion,
			ModelID:     DefaultBedrockModelID,
			MaxTokens:   DefaultBedrockMaxTokens,
			Temperature: DefaultBedrockTemperature,
			Timeout:     DefaultBedrockTimeout,
		},
	}
}

// HasStaticCredentials reports whether both halves of a static key pair
// are configured.
func (b BedrockSettings) HasStaticCredentials() bool {
	return b.AccessKeyID != "" && b.SecretAccessKey != ""
}

// Validate checks the numeric settings.
func (b BedrockSettings) Validate() error {
	if b.MaxTokens <= 0 {
		return ErrInvalidMaxTokens
	}
	if b.Temperature < 0 || b.Temperature > 1 {
		return ErrInvalidTemperature
	}
	return nil
}
