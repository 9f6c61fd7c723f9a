// Package config loads zentry settings from an optional config file, the
// environment and command line flags, in increasing order of precedence.
//
// Environment variables use the ZENTRY_ prefix with dots replaced by
// underscores, so memory.user_id is read from ZENTRY_MEMORY_USER_ID. The
// memory API key is also read from ZENTRY_API_KEY.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/casualjim/zentry"
	"github.com/casualjim/zentry/memory"
	"github.com/casualjim/zentry/memory/chromem"
	"github.com/casualjim/zentry/memory/embedder"
	"github.com/casualjim/zentry/memory/hosted"
	"github.com/casualjim/zentry/provider"
	"github.com/fogfish/opts"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	StoreHosted = "hosted"
	StoreLocal  = "local"

	EmbedderHash   = "hash"
	EmbedderOpenAI = "openai"

	envPrefix = "ZENTRY"
)

// Settings is the full configuration of the zentry CLI.
type Settings struct {
	Provider       string `mapstructure:"provider"`
	Model          string `mapstructure:"model"`
	ProviderAPIKey string `mapstructure:"provider_api_key"`
	BaseURL        string `mapstructure:"base_url"`
	Store          string `mapstructure:"store"`
	StorePath      string `mapstructure:"store_path"`
	Embedder       string `mapstructure:"embedder"`
	SourceURL      string `mapstructure:"source_url"`
	LogLevel       string `mapstructure:"log_level"`

	Memory MemorySettings `mapstructure:"memory"`
}

// MemorySettings configures the memory store and the memory scope.
type MemorySettings struct {
	APIKey       string   `mapstructure:"api_key"`
	Host         string   `mapstructure:"host"`
	UserID       string   `mapstructure:"user_id"`
	AgentID      string   `mapstructure:"agent_id"`
	RunID        string   `mapstructure:"run_id"`
	AppID        string   `mapstructure:"app_id"`
	OrgID        string   `mapstructure:"org_id"`
	ProjectID    string   `mapstructure:"project_id"`
	TopK         int      `mapstructure:"top_k"`
	Threshold    *float64 `mapstructure:"threshold"`
	Rerank       bool     `mapstructure:"rerank"`
	EnableGraph  bool     `mapstructure:"enable_graph"`
	OutputFormat string   `mapstructure:"output_format"`
}

var defaults = map[string]any{
	"provider":             string(provider.OpenAI),
	"model":                "",
	"provider_api_key":     "",
	"base_url":             "",
	"store":                StoreHosted,
	"store_path":           "",
	"embedder":             EmbedderHash,
	"source_url":           zentry.DefaultSourceURL,
	"log_level":            "warn",
	"memory.api_key":       "",
	"memory.host":          hosted.DefaultHost,
	"memory.user_id":       "",
	"memory.agent_id":      "",
	"memory.run_id":        "",
	"memory.app_id":        "",
	"memory.org_id":        "",
	"memory.project_id":    "",
	"memory.top_k":         memory.DefaultTopK,
	"memory.rerank":        false,
	"memory.enable_graph":  false,
	"memory.output_format": memory.OutputFormatV11,
}

// Load reads the settings. path may be empty, in which case only defaults,
// the environment and flags are used. Flags are bound by name, so a flag
// named "memory.user_id" overrides that key; flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("memory.api_key", envPrefix+"_MEMORY_API_KEY", envPrefix+"_API_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("memory.threshold"); err != nil {
		return nil, err
	}

	if flags != nil {
		var bindErr error
		flags.VisitAll(func(f *pflag.Flag) {
			if _, known := defaults[f.Name]; known || f.Name == "memory.threshold" {
				bindErr = errors.Join(bindErr, v.BindPFlag(f.Name, f))
			}
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate reports every invalid setting at once.
func (s *Settings) Validate() error {
	var errs []error
	if _, err := provider.ParseID(s.Provider); err != nil {
		errs = append(errs, err)
	}
	switch s.Store {
	case StoreHosted, StoreLocal:
	default:
		errs = append(errs, fmt.Errorf("store must be %q or %q, got %q", StoreHosted, StoreLocal, s.Store))
	}
	switch s.Embedder {
	case EmbedderHash, EmbedderOpenAI:
	default:
		errs = append(errs, fmt.Errorf("embedder must be %q or %q, got %q", EmbedderHash, EmbedderOpenAI, s.Embedder))
	}
	if _, err := parseLevel(s.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel returns the configured log level.
func (s *Settings) SlogLevel() slog.Level {
	level, _ := parseLevel(s.LogLevel)
	return level
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelWarn, fmt.Errorf("invalid log_level %q: %w", name, err)
	}
	return level, nil
}

// ProviderConfig returns the provider credentials.
func (s *Settings) ProviderConfig() provider.Config {
	return provider.Config{APIKey: s.ProviderAPIKey, BaseURL: s.BaseURL}
}

// MemoryConfig returns the memory scope and retrieval tuning.
func (s *Settings) MemoryConfig() memory.Config {
	m := s.Memory
	return memory.Config{
		Scope: memory.Scope{
			UserID:    m.UserID,
			AgentID:   m.AgentID,
			RunID:     m.RunID,
			AppID:     m.AppID,
			OrgID:     m.OrgID,
			ProjectID: m.ProjectID,
		},
		TopK:         m.TopK,
		Threshold:    m.Threshold,
		Rerank:       m.Rerank,
		EnableGraph:  m.EnableGraph,
		OutputFormat: m.OutputFormat,
	}
}

// OpenStore creates the configured memory store.
func (s *Settings) OpenStore() (memory.Store, error) {
	switch s.Store {
	case StoreLocal:
		embed := embedder.Hash(embedder.DefaultDimensions)
		if s.Embedder == EmbedderOpenAI {
			embed = embedder.OpenAI("", "", "")
		}
		options := []opts.Option[chromem.Store]{chromem.WithEmbedder(embed)}
		if s.StorePath != "" {
			options = append(options, chromem.WithPath(s.StorePath))
		}
		return chromem.New(options...)
	default:
		options := []opts.Option[hosted.Client]{hosted.WithHost(s.Memory.Host)}
		if s.Memory.APIKey != "" {
			options = append(options, hosted.WithAPIKey(s.Memory.APIKey))
		}
		return hosted.New(options...)
	}
}

// ModelOptions converts the settings into zentry.New options.
func (s *Settings) ModelOptions(store memory.Store) []opts.Option[zentry.Model] {
	options := []opts.Option[zentry.Model]{
		zentry.Provider(s.Provider),
		zentry.ModelID(s.Model),
		zentry.ProviderConfig(s.ProviderConfig()),
		zentry.Memory(s.MemoryConfig()),
		zentry.SourceURL(s.SourceURL),
	}
	if store != nil {
		options = append(options, zentry.Store(store))
	}
	return options
}
