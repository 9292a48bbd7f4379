package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = "config.ini"

// DefaultDotEnvFile holds AWS credentials kept out of config.ini.
const DefaultDotEnvFile = ".env"

// Section names in config.ini.
const (
	sectionDefault = "DEFAULT"
	sectionBedrock = "AWS_BEDROCK"
)

// LoadConfigFile loads config.ini from path.
// If the file does not exist, it returns ErrConfigNotFound. Callers decide
// whether that is fatal based on whether the path was given explicitly.
func LoadConfigFile(path string) (*File, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	raw, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		SkipUnrecognizableLines: true,
	}, path)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	cf := NewFile()
	cf.Path = path
	cf.RepositoryURL = strings.TrimSpace(raw.Section(sectionDefault).Key("repository_url").String())

	sec := raw.Section(sectionBedrock)
	if v := strings.TrimSpace(sec.Key("region").String()); v != "" {
		cf.Bedrock.Region = v
	}
	if v := strings.TrimSpace(sec.Key("model_id").String()); v != "" {
		cf.Bedrock.ModelID = v
	}
	cf.Bedrock.MaxTokens = sec.Key("max_tokens").MustInt(DefaultBedrockMaxTokens)
	cf.Bedrock.Temperature = sec.Key("temperature").MustFloat64(DefaultBedrockTemperature)
	cf.Bedrock.AccessKeyID = strings.TrimSpace(sec.Key("aws_access_key_id").String())
	cf.Bedrock.SecretAccessKey = strings.TrimSpace(sec.Key("aws_secret_access_key").String())
	cf.Bedrock.AutoApply = sec.Key("auto_apply_suggestions").MustBool(false)
	cf.Bedrock.Timeout = sec.Key("timeout").MustDuration(DefaultBedrockTimeout)

	return cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for config.ini in the current directory
// 3. Look for config.ini in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), DefaultConfigFile)
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}

// Resolve finds and loads the configuration file.
// An explicitly given path that does not exist is an error; a missing file
// found by search yields defaults.
func Resolve(explicitPath string) (*File, error) {
	path := FindConfigFile(explicitPath)
	if path == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, explicitPath)
		}
		return NewFile(), nil
	}
	return LoadConfigFile(path)
}

// LoadDotEnv loads environment variables from a .env file next to the
// configuration. Variables already set in the process environment win.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = DefaultDotEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}
