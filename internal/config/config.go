// Package config loads the persistent pulse configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/abelbrown/pulse/internal/signals"
	"github.com/abelbrown/pulse/internal/tfidf"
)

// Config is the persistent application configuration
type Config struct {
	Data   string `yaml:"data"`   // dataset location (.jsonl, .json or .db)
	Output string `yaml:"output"` // batch artifact directory

	Rankings   RankingConfig    `yaml:"rankings"`
	Graphs     GraphConfig      `yaml:"graphs"`
	TFIDF      TFIDFConfig      `yaml:"tfidf"`
	Flashpoint FlashpointConfig `yaml:"flashpoint"`
	Narrative  NarrativeConfig  `yaml:"narrative"`
	Models     ModelConfig      `yaml:"models"`
	Server     ServerConfig     `yaml:"server"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Log        LogConfig        `yaml:"log"`
}

// RankingConfig sizes every top-N list. The _api variants serve the query
// path, the others the batch report.
type RankingConfig struct {
	Authors         int `yaml:"authors"`
	AuthorsAPI      int `yaml:"authors_api"`
	Subreddits      int `yaml:"subreddits"`
	SubredditsAPI   int `yaml:"subreddits_api"`
	Topics          int `yaml:"topics"`
	TopicsAPI       int `yaml:"topics_api"`
	Domains         int `yaml:"domains"`
	Controversy     int `yaml:"controversy"`
	KeywordExamples int `yaml:"keyword_examples"`
	PowerUsers      int `yaml:"power_users"`
}

// GraphConfig holds the network construction thresholds.
type GraphConfig struct {
	MinSubreddits int `yaml:"min_subreddits"`
	MinSharedURLs int `yaml:"min_shared_urls"`
	NetworkNodes  int `yaml:"network_nodes"` // nodes drawn in the network plot
}

// TFIDFConfig configures the topic vectorizer.
type TFIDFConfig struct {
	MaxFeatures int    `yaml:"max_features"`
	StopWords   string `yaml:"stop_words"` // "english" or "none"
}

// FlashpointConfig selects the flashpoint criterion.
type FlashpointConfig struct {
	Method string `yaml:"method"` // query-path criterion: signals.MethodMaxDay or signals.MethodStatistical
}

// NarrativeConfig shapes generated narratives.
type NarrativeConfig struct {
	Paragraphs string `yaml:"paragraphs"`
	MaxTokens  int    `yaml:"max_tokens"`
	Provider   string `yaml:"provider"` // preferred provider name
	Keyword    string `yaml:"keyword"`  // optional keyword for keyword-scoped artifacts
}

// ModelConfig holds AI model settings
type ModelConfig struct {
	Gemini ModelSettings `yaml:"gemini"`
	Ollama ModelSettings `yaml:"ollama"`
}

// ModelSettings for a single AI provider
type ModelSettings struct {
	Enabled  bool   `yaml:"enabled"`
	APIKey   string `yaml:"api_key,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Model    string `yaml:"model,omitempty"`
}

// ServerConfig configures the HTTP query endpoint.
type ServerConfig struct {
	Addr  string `yaml:"addr"`
	Watch bool   `yaml:"watch"` // reload the dataset when it changes
}

// FetchConfig configures post acquisition.
type FetchConfig struct {
	Subreddits    []string      `yaml:"subreddits"`
	Limit         int           `yaml:"limit"`
	UserAgent     string        `yaml:"user_agent"`
	RatePerSecond float64       `yaml:"rate_per_second"`
	Timeout       time.Duration `yaml:"timeout"`
	DB            string        `yaml:"db"`
	JSONL         string        `yaml:"jsonl"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"` // empty means stderr
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	home := Dir()
	return &Config{
		Data:   "reddit_data.jsonl",
		Output: "report",
		Rankings: RankingConfig{
			Authors:         20,
			AuthorsAPI:      10,
			Subreddits:      10,
			SubredditsAPI:   10,
			Topics:          10,
			TopicsAPI:       15,
			Domains:         10,
			Controversy:     5,
			KeywordExamples: 5,
			PowerUsers:      5,
		},
		Graphs: GraphConfig{
			MinSubreddits: signals.DefaultMinSubreddits,
			MinSharedURLs: signals.DefaultMinSharedURLs,
			NetworkNodes:  50,
		},
		TFIDF: TFIDFConfig{
			MaxFeatures: tfidf.DefaultMaxFeatures,
			StopWords:   "english",
		},
		Flashpoint: FlashpointConfig{Method: signals.MethodStatistical},
		Narrative: NarrativeConfig{
			Paragraphs: "4-5",
			MaxTokens:  2048,
			Provider:   "gemini",
		},
		Models: ModelConfig{
			Gemini: ModelSettings{Enabled: true, Model: "gemini-2.0-flash"},
			Ollama: ModelSettings{Enabled: false, Endpoint: "http://localhost:11434"},
		},
		Server: ServerConfig{Addr: ":8000", Watch: true},
		Fetch: FetchConfig{
			Limit:         10,
			UserAgent:     "script:pulse:v1.0",
			RatePerSecond: 1,
			Timeout:       30 * time.Second,
			DB:            filepath.Join(home, "pulse.db"),
			JSONL:         "new_reddit_posts.jsonl",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Dir returns the pulse data directory, ~/.pulse
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pulse")
}

// ConfigPath returns the default path to the config file
func ConfigPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads config from path (ConfigPath when empty), or returns defaults
// when the default file does not exist. A .env file in the working
// directory is loaded first, then environment overrides are applied.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = ConfigPath()
	}

	// missing .env is fine
	_ = godotenv.Load()

	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.AutoPopulateFromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to path (ConfigPath when empty).
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600) // may hold API keys
}

// AutoPopulateFromEnv fills in keys and paths from environment variables
func (c *Config) AutoPopulateFromEnv() {
	for _, name := range []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"} {
		if key := os.Getenv(name); key != "" {
			c.Models.Gemini.APIKey = key
		}
	}
	if endpoint := os.Getenv("OLLAMA_ENDPOINT"); endpoint != "" {
		c.Models.Ollama.Endpoint = endpoint
		c.Models.Ollama.Enabled = true
	}
	if v := os.Getenv("PULSE_DATA"); v != "" {
		c.Data = v
	}
	if v := os.Getenv("PULSE_OUTPUT"); v != "" {
		c.Output = v
	}
	if v := os.Getenv("PULSE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate rejects unusable settings.
func (c *Config) Validate() error {
	sizes := map[string]int{
		"rankings.authors":          c.Rankings.Authors,
		"rankings.authors_api":      c.Rankings.AuthorsAPI,
		"rankings.subreddits":       c.Rankings.Subreddits,
		"rankings.subreddits_api":   c.Rankings.SubredditsAPI,
		"rankings.topics":           c.Rankings.Topics,
		"rankings.topics_api":       c.Rankings.TopicsAPI,
		"rankings.domains":          c.Rankings.Domains,
		"rankings.controversy":      c.Rankings.Controversy,
		"rankings.keyword_examples": c.Rankings.KeywordExamples,
		"rankings.power_users":      c.Rankings.PowerUsers,
		"graphs.min_subreddits":     c.Graphs.MinSubreddits,
		"graphs.min_shared_urls":    c.Graphs.MinSharedURLs,
		"graphs.network_nodes":      c.Graphs.NetworkNodes,
		"tfidf.max_features":        c.TFIDF.MaxFeatures,
	}
	for name, v := range sizes {
		if v <= 0 {
			return fmt.Errorf("config: %s must be positive, got %d", name, v)
		}
	}

	switch c.Flashpoint.Method {
	case signals.MethodMaxDay, signals.MethodStatistical:
	default:
		return fmt.Errorf("config: unknown flashpoint method %q", c.Flashpoint.Method)
	}
	switch c.TFIDF.StopWords {
	case "english", "none":
	default:
		return fmt.Errorf("config: unknown stop word list %q", c.TFIDF.StopWords)
	}
	return nil
}

// Vectorizer builds the topic vectorizer described by the TF-IDF settings.
func (c *Config) Vectorizer() *tfidf.Vectorizer {
	v := tfidf.NewVectorizer(c.TFIDF.MaxFeatures)
	if c.TFIDF.StopWords == "none" {
		v.StopWords = nil
	}
	return v
}
