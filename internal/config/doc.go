// Package config provides configuration structures and utilities for covgen.
// It holds the CLI options, the config.ini settings (default repository and
// the AWS Bedrock assistant), and the XDG locations used for history.
package config
