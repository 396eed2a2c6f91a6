package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/tender/internal/common"
	"github.com/Veraticus/tender/internal/drafting"
	"github.com/Veraticus/tender/internal/llm"
	"github.com/Veraticus/tender/internal/reconcile"
	"github.com/Veraticus/tender/internal/threshold"
)

// ProviderNone disables the reasoning service. Drafting then returns the
// assembled baseline and reconciliation is unavailable.
const ProviderNone = "none"

// DefaultServerAddr is the listen address of `tender serve`.
const DefaultServerAddr = "127.0.0.1:8420"

// Settings is the resolved configuration of one process.
type Settings struct {
	DatabasePath string
	ServerAddr   string
	LLM          llm.Config
	Threshold    ThresholdSettings
	Reconcile    ReconcileSettings
	MaxRetry     int
}

// ThresholdSettings configures the published-threshold provider.
type ThresholdSettings struct {
	URL      string
	Override float64
	CacheTTL time.Duration
}

// ReconcileSettings configures template reconciliation.
type ReconcileSettings struct {
	ReferenceDir  string
	Include       []string
	Exclude       []string
	Window        time.Duration
	MaxIterations int
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("llm.provider", llm.ProviderOpenAI)
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay", time.Second)
	v.SetDefault("llm.timeout", 2*time.Minute)
	v.SetDefault("drafting.max_retry", drafting.DefaultMaxRetry)
	v.SetDefault("reconcile.max_iterations", reconcile.DefaultMaxIterations)
	v.SetDefault("reconcile.window_days", int(reconcile.DefaultWindow/(24*time.Hour)))
	v.SetDefault("threshold.cache_ttl", threshold.DefaultCacheTTL)
	v.SetDefault("server.addr", DefaultServerAddr)
}

// Load resolves Settings from v. Values set in v win over the provider
// specific environment variables (OPENAI_API_KEY, ANTHROPIC_API_KEY,
// NOTICE_AMOUNT), which win over defaults.
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		ServerAddr: v.GetString("server.addr"),
		MaxRetry:   v.GetInt("drafting.max_retry"),
	}

	s.DatabasePath = ExpandPath(v.GetString("database.path"))
	if s.DatabasePath == "" {
		path, err := DefaultDatabasePath()
		if err != nil {
			return nil, err
		}
		s.DatabasePath = path
	}

	llmConfig, err := LoadLLMConfig(v)
	if err != nil {
		return nil, err
	}
	s.LLM = llmConfig

	s.Threshold, err = loadThreshold(v)
	if err != nil {
		return nil, err
	}

	s.Reconcile, err = loadReconcile(v)
	if err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks value ranges.
func (s *Settings) Validate() error {
	if s.MaxRetry < 0 {
		return fmt.Errorf("%w: drafting.max_retry must not be negative", common.ErrInvalidConfig)
	}
	if s.Reconcile.MaxIterations <= 0 {
		return fmt.Errorf("%w: reconcile.max_iterations must be positive", common.ErrInvalidConfig)
	}
	if s.Reconcile.Window <= 0 {
		return fmt.Errorf("%w: reconcile.window_days must be positive", common.ErrInvalidConfig)
	}
	if s.Threshold.Override < 0 {
		return fmt.Errorf("%w: threshold.override must not be negative", common.ErrInvalidConfig)
	}
	return nil
}

// ReasoningEnabled reports whether a reasoning provider is configured.
func (s *Settings) ReasoningEnabled() bool {
	return !strings.EqualFold(s.LLM.Provider, ProviderNone)
}

// LoadLLMConfig builds the reasoning-service configuration. A missing API key
// is an error unless the provider is ProviderNone.
func LoadLLMConfig(v *viper.Viper) (llm.Config, error) {
	provider := strings.ToLower(strings.TrimSpace(v.GetString("llm.provider")))
	if provider == "" {
		provider = llm.ProviderOpenAI
	}

	cfg := llm.Config{
		Provider:    provider,
		Model:       v.GetString("llm.model"),
		BaseURL:     v.GetString("llm.base_url"),
		Temperature: v.GetFloat64("llm.temperature"),
		MaxTokens:   v.GetInt("llm.max_tokens"),
		MaxRetries:  v.GetInt("llm.max_retries"),
		RetryDelay:  v.GetDuration("llm.retry_delay"),
		Timeout:     v.GetDuration("llm.timeout"),
		RateLimit:   v.GetFloat64("llm.rate_limit"),
		Burst:       v.GetInt("llm.burst"),
	}
	if provider == ProviderNone {
		return cfg, nil
	}

	cfg.APIKey = v.GetString("llm.api_key")
	switch provider {
	case llm.ProviderOpenAI:
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.Model == "" {
			cfg.Model = "gpt-4o"
		}
	case llm.ProviderAnthropic:
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if cfg.Model == "" {
			cfg.Model = "claude-sonnet-4-5"
		}
	default:
		return cfg, fmt.Errorf("%w: unsupported llm.provider %q", common.ErrInvalidConfig, provider)
	}

	if cfg.APIKey == "" {
		return cfg, fmt.Errorf("%w: %s API key not found in llm.api_key or the environment", common.ErrMissingConfig, provider)
	}
	return cfg, nil
}

func loadThreshold(v *viper.Viper) (ThresholdSettings, error) {
	t := ThresholdSettings{
		URL:      v.GetString("threshold.url"),
		Override: v.GetFloat64("threshold.override"),
		CacheTTL: v.GetDuration("threshold.cache_ttl"),
	}
	if t.Override == 0 {
		if raw := strings.TrimSpace(os.Getenv("NOTICE_AMOUNT")); raw != "" {
			amount, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
			if err != nil {
				return t, fmt.Errorf("%w: NOTICE_AMOUNT %q is not a number", common.ErrInvalidConfig, raw)
			}
			t.Override = amount
		}
	}
	return t, nil
}

func loadReconcile(v *viper.Viper) (ReconcileSettings, error) {
	r := ReconcileSettings{
		ReferenceDir:  ExpandPath(v.GetString("reconcile.reference_dir")),
		Include:       v.GetStringSlice("reconcile.include"),
		Exclude:       v.GetStringSlice("reconcile.exclude"),
		Window:        time.Duration(v.GetInt("reconcile.window_days")) * 24 * time.Hour,
		MaxIterations: v.GetInt("reconcile.max_iterations"),
	}
	if r.ReferenceDir == "" {
		dir, err := DefaultReferenceDir()
		if err != nil {
			return r, err
		}
		r.ReferenceDir = dir
	}
	return r, nil
}
