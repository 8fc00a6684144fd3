package model

import "time"

// Config holds the complete configuration for a Chorus run. All heuristic
// constants (per-interview caps, weight clamps, thresholds) live here rather
// than in stage code; they were tuned on one dataset and should be validated
// before reuse.
type Config struct {
	Scoring     ScoringConfig     `yaml:"scoring" mapstructure:"scoring"`
	Assembly    AssemblyConfig    `yaml:"assembly" mapstructure:"assembly"`
	Dedup       DedupConfig       `yaml:"dedup" mapstructure:"dedup"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// ScoringConfig controls the finding confidence scorer
type ScoringConfig struct {
	MinCriteria          int     `yaml:"min_criteria" mapstructure:"min_criteria"`                       // evaluation criteria floor
	MinInterviews        int     `yaml:"min_interviews" mapstructure:"min_interviews"`                   // cross-validation floor
	MinQuoteWords        int     `yaml:"min_quote_words" mapstructure:"min_quote_words"`                 // substantial-discussion floor
	PriorityFloor        float64 `yaml:"priority_floor" mapstructure:"priority_floor"`                   // confidence for "priority" tier
	StandardFloor        float64 `yaml:"standard_floor" mapstructure:"standard_floor"`                   // confidence for "standard" tier
	AlertConfidenceFloor float64 `yaml:"alert_confidence_floor" mapstructure:"alert_confidence_floor"`   // elevated floor for single-source alerts
}

// AssemblyConfig controls the diversity-aware theme assembler
type AssemblyConfig struct {
	MaxQuotesPerInterview int     `yaml:"max_quotes_per_interview" mapstructure:"max_quotes_per_interview"` // domination guard K
	WeightFloor           float64 `yaml:"weight_floor" mapstructure:"weight_floor"`                         // diversity weight clamp, lower
	WeightCeil            float64 `yaml:"weight_ceil" mapstructure:"weight_ceil"`                           // diversity weight clamp, upper
	MinCompanies          int     `yaml:"min_companies" mapstructure:"min_companies"`                       // theme emission floor
	AlertImpactFloor      float64 `yaml:"alert_impact_floor" mapstructure:"alert_impact_floor"`             // finding impact for alert counting
	MaxAlerts             int     `yaml:"max_alerts" mapstructure:"max_alerts"`
}

// DedupConfig controls the canonical theme deduplicator
type DedupConfig struct {
	MergeThreshold float64 `yaml:"merge_threshold" mapstructure:"merge_threshold"` // top similarity required to suggest a merge
}

// LLMConfig holds external labeling collaborator configuration
type LLMConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"` // "openai", "ollama", "" (disabled)
	Model         string `yaml:"model" mapstructure:"model"`
	APIKey        string `yaml:"-" mapstructure:"api_key"` // never serialized to config files
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	Timeout       int    `yaml:"timeout" mapstructure:"timeout"` // seconds per request
	MaxTokens     int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	PromptVersion string `yaml:"prompt_version" mapstructure:"prompt_version"`

	HTTPProxy  string `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// CacheConfig controls the label cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig bounds the worker pool at the external scoring boundary
type ConcurrencyConfig struct {
	LabelWorkers      int     `yaml:"label_workers" mapstructure:"label_workers"`
	MaxRetries        int     `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// StoreConfig locates the SQLite database
type StoreConfig struct {
	DBPath string `yaml:"db_path" mapstructure:"db_path"`
}

// OutputConfig controls rendering of exports
type OutputConfig struct {
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
	Dir     string `yaml:"dir" mapstructure:"dir"`
}

// DefaultConfig returns the built-in defaults. Heuristic values match the
// dataset the pipeline was originally tuned on.
func DefaultConfig() *Config {
	return &Config{
		Scoring: ScoringConfig{
			MinCriteria:          2,
			MinInterviews:        2,
			MinQuoteWords:        15,
			PriorityFloor:        4.0,
			StandardFloor:        3.0,
			AlertConfidenceFloor: 7.0,
		},
		Assembly: AssemblyConfig{
			MaxQuotesPerInterview: 3,
			WeightFloor:           0.5,
			WeightCeil:            2.0,
			MinCompanies:          2,
			AlertImpactFloor:      4.0,
			MaxAlerts:             5,
		},
		Dedup: DedupConfig{
			MergeThreshold: 0.75,
		},
		LLM: LLMConfig{
			Provider:      "", // disabled by default: input must be pre-labeled
			Timeout:       30,
			MaxTokens:     500,
			PromptVersion: "v1",
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 1 * time.Hour,
			DiskTTL:   30 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			LabelWorkers:      8,
			MaxRetries:        3,
			RequestsPerSecond: 5,
			Burst:             5,
		},
		Store: StoreConfig{
			DBPath: "~/.chorus/chorus.db",
		},
		Output: OutputConfig{
			Dir: "./chorus-reports",
		},
	}
}

// RunContext carries the immutable per-run identity through every stage.
// Runs for different clients share no mutable state.
type RunContext struct {
	ClientID string
	Config   *Config
}
