package strand

import (
	"context"
	"fmt"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/strandkit/strand/internal/envexpr"
	"github.com/strandkit/strand/policy"
)

// Config is a serialisable representation of the engine configuration. It
// can be populated from YAML or JSON; ${env.KEY} expressions are expanded
// when loaded through LoadConfig. The zero value inherits package defaults.
type Config struct {
	RunID    string         `json:"runId,omitempty" yaml:"runId,omitempty"`
	Journal  JournalConfig  `json:"journal,omitempty" yaml:"journal,omitempty"`
	Channels ChannelsConfig `json:"channels,omitempty" yaml:"channels,omitempty"`
	Policy   *policy.Policy `json:"policy,omitempty" yaml:"policy,omitempty"`
	Tracing  TracingConfig  `json:"tracing,omitempty" yaml:"tracing,omitempty"`
}

// JournalConfig controls persistent task lifecycle records. An empty
// BaseURL disables journaling.
type JournalConfig struct {
	BaseURL string `json:"baseURL,omitempty" yaml:"baseURL,omitempty"`
}

// ChannelsConfig holds defaults for runtime-created channels.
type ChannelsConfig struct {
	DefaultBuffer int `json:"defaultBuffer,omitempty" yaml:"defaultBuffer,omitempty"`
}

// TracingConfig enables the OpenTelemetry trace exporter. With an empty
// OutputFile spans go to stdout.
type TracingConfig struct {
	Enabled        bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	ServiceName    string `json:"serviceName,omitempty" yaml:"serviceName,omitempty"`
	ServiceVersion string `json:"serviceVersion,omitempty" yaml:"serviceVersion,omitempty"`
	OutputFile     string `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`
}

// DefaultConfig returns a Config populated with package defaults.
func DefaultConfig() *Config {
	return &Config{
		Channels: ChannelsConfig{DefaultBuffer: 100},
	}
}

// Validate returns an error describing invalid settings, or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Channels.DefaultBuffer < 0 {
		return fmt.Errorf("channels.defaultBuffer must not be negative")
	}
	if c.Tracing.Enabled && c.Tracing.ServiceName == "" {
		return fmt.Errorf("tracing.serviceName is required when tracing is enabled")
	}
	return nil
}

// LoadConfig reads a YAML config from URL (any scheme afs understands),
// expands ${env.KEY} references and applies defaults for unset fields.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	fs := afs.New()
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
	}
	expanded := envexpr.Expand(string(data))
	config := DefaultConfig()
	if err = yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, fmt.Errorf("failed to parse config %v: %w", URL, err)
	}
	if config.Channels.DefaultBuffer == 0 {
		config.Channels.DefaultBuffer = 100
	}
	if err = config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
