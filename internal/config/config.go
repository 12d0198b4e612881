// Package config loads the recovery-plot process configuration from the
// environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/term"

	"github.com/Sternrassler/whoop-recovery/pkg/client"
	"github.com/Sternrassler/whoop-recovery/pkg/logging"
	"github.com/Sternrassler/whoop-recovery/pkg/recovery"
	"github.com/Sternrassler/whoop-recovery/pkg/sink"
)

// Config holds the process configuration.
type Config struct {
	Username string
	Password string

	Start time.Time
	End   time.Time

	// Output is a directory path or an s3://bucket/prefix target.
	Output string
	// ImageName is the file name of the rendered chart.
	ImageName string

	Preview     bool
	MetricsFile string

	TokenURL     string
	BaseURL      string
	BodyEncoding client.BodyEncoding

	Log logging.Config
	S3  sink.S3Config
}

// Default values
var (
	DefaultStart = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	DefaultEnd   = time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)
)

const (
	defaultOutput    = "docs"
	defaultImageName = "recovery.png"
)

// Test seams for the terminal password prompt.
var (
	readPassword           = term.ReadPassword
	isTerminal             = term.IsTerminal
	promptOut    io.Writer = os.Stderr
)

// Load reads .env from the working directory (if present) and then the
// environment. Existing environment variables win over .env entries.
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom is Load with an explicit .env path.
func LoadFrom(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("load %s: %w", envFile, err)
			}
		}
	}

	cfg := &Config{
		Username:     getEnvString("WHOOP_USERNAME", ""),
		Password:     getEnvString("WHOOP_PASSWORD", ""),
		Output:       getEnvString("OUTPUT", defaultOutput),
		ImageName:    getEnvString("IMAGE_NAME", defaultImageName),
		Preview:      getEnvBool("PREVIEW", false),
		MetricsFile:  getEnvString("METRICS_FILE", ""),
		TokenURL:     getEnvString("WHOOP_TOKEN_URL", client.DefaultTokenURL),
		BaseURL:      getEnvString("WHOOP_BASE_URL", client.DefaultBaseURL),
		BodyEncoding: client.BodyEncoding(getEnvString("WHOOP_BODY_ENCODING", string(client.BodyEncodingJSON))),
		Log: logging.Config{
			Level:          logging.LogLevel(getEnvString("LOG_LEVEL", string(logging.LevelInfo))),
			Pretty:         getEnvBool("LOG_PRETTY", false),
			Output:         os.Stderr,
			File:           getEnvString("LOG_FILE", ""),
			FileMaxSizeMB:  getEnvInt("LOG_FILE_MAX_SIZE_MB", 10),
			FileMaxBackups: getEnvInt("LOG_FILE_MAX_BACKUPS", 3),
		},
		S3: sink.S3Config{
			Region:          getEnvString("S3_REGION", ""),
			Endpoint:        getEnvString("S3_ENDPOINT", ""),
			AccessKeyID:     getEnvString("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnvString("S3_SECRET_ACCESS_KEY", ""),
		},
	}

	var err error
	if cfg.Start, err = getEnvBound("RECOVERY_START", "start", DefaultStart); err != nil {
		return nil, err
	}
	if cfg.End, err = getEnvBound("RECOVERY_END", "end", DefaultEnd); err != nil {
		return nil, err
	}
	if !cfg.End.After(cfg.Start) {
		return nil, fmt.Errorf("RECOVERY_END (%s) must be after RECOVERY_START (%s)",
			recovery.FormatBound(cfg.End), recovery.FormatBound(cfg.Start))
	}

	if cfg.Username == "" {
		return nil, errors.New("WHOOP_USERNAME is required")
	}
	if cfg.Password == "" {
		pw, err := promptPassword()
		if err != nil {
			return nil, err
		}
		cfg.Password = pw
	}

	return cfg, nil
}

// promptPassword reads the password from the terminal without echo.
func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !isTerminal(fd) {
		return "", errors.New("WHOOP_PASSWORD is required")
	}

	fmt.Fprint(promptOut, "WHOOP password: ")
	pw, err := readPassword(fd)
	fmt.Fprintln(promptOut)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	if len(pw) == 0 {
		return "", errors.New("WHOOP_PASSWORD is required")
	}
	return string(pw), nil
}

// getEnvString retrieves a string environment variable or returns the default.
func getEnvString(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns the default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns the default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBound parses an ISO-8601 bound that must carry an offset.
func getEnvBound(key, field string, defaultValue time.Time) (time.Time, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue, nil
	}
	t, err := recovery.ParseBound(field, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", key, err)
	}
	return t, nil
}

// ClientConfig returns the API client configuration.
func (c *Config) ClientConfig() client.Config {
	cfg := client.DefaultConfig()
	cfg.TokenURL = c.TokenURL
	cfg.BaseURL = c.BaseURL
	cfg.BodyEncoding = c.BodyEncoding
	return cfg
}
