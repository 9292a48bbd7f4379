package config

import "errors"

// Configuration validation errors returned by Config.Validate and the loader.
// They are sentinels so callers can branch with errors.Is.
var (
	// ErrNoRepository is returned when neither a URL argument, a --local
	// directory nor a repository_url in config.ini is available.
	ErrNoRepository = errors.New("no repository specified: pass a URL, use --local, or set repository_url in the [DEFAULT] section of config.ini")

	// ErrLocalWithURL is returned when --local is combined with URLs.
	ErrLocalWithURL = errors.New("conflicting targets: --local cannot be combined with repository URLs")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidTimeout is returned when the command timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid command timeout: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrNoOutputDir is returned when the output directory is empty.
	ErrNoOutputDir = errors.New("output directory must not be empty")

	// ErrInvalidMaxTokens is returned when [AWS_BEDROCK] max_tokens is not positive.
	ErrInvalidMaxTokens = errors.New("invalid max_tokens: must be positive")

	// ErrInvalidTemperature is returned when [AWS_BEDROCK] temperature is
	// outside the range the Anthropic models accept.
	ErrInvalidTemperature = errors.New("invalid temperature: must be between 0 and 1")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
