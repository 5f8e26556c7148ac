// Package config loads engine configuration from .sentinel/config.json.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const currentVersion = 1

// Config represents the complete engine configuration
type Config struct {
	Version       int                 `json:"version" mapstructure:"version"`
	Parsing       ParsingConfig       `json:"parsing" mapstructure:"parsing"`
	Indexing      IndexingConfig      `json:"indexing" mapstructure:"indexing"`
	Confidence    ConfidenceConfig    `json:"confidence" mapstructure:"confidence"`
	Patterns      PatternsConfig      `json:"patterns" mapstructure:"patterns"`
	CrossLanguage CrossLanguageConfig `json:"crossLanguage" mapstructure:"crossLanguage"`
	ControlFlow   ControlFlowConfig   `json:"controlFlow" mapstructure:"controlFlow"`
	Storage       StorageConfig       `json:"storage" mapstructure:"storage"`
	Watch         WatchConfig         `json:"watch" mapstructure:"watch"`
	Logging       LoggingConfig       `json:"logging" mapstructure:"logging"`
}

// ParsingConfig controls chunking and the parser fallback ladder
type ParsingConfig struct {
	ChunkThreshold     int  `json:"chunkThreshold" mapstructure:"chunkThreshold"`
	OverlapSize        int  `json:"overlapSize" mapstructure:"overlapSize"`
	MinBufferSize      int  `json:"minBufferSize" mapstructure:"minBufferSize"`
	BufferSlack        int  `json:"bufferSlack" mapstructure:"bufferSlack"`
	SnapLookahead      int  `json:"snapLookahead" mapstructure:"snapLookahead"`
	DedupLineTolerance int  `json:"dedupLineTolerance" mapstructure:"dedupLineTolerance"`
	StreamingThreshold int  `json:"streamingThreshold" mapstructure:"streamingThreshold"`
	MaxLineLength      int  `json:"maxLineLength" mapstructure:"maxLineLength"`
	UseGrammar         bool `json:"useGrammar" mapstructure:"useGrammar"`
}

// IndexingConfig controls project indexing
type IndexingConfig struct {
	BatchSize        int      `json:"batchSize" mapstructure:"batchSize"`
	Exclude          []string `json:"exclude" mapstructure:"exclude"`
	RespectGitignore bool     `json:"respectGitignore" mapstructure:"respectGitignore"`
	Languages        []string `json:"languages" mapstructure:"languages"`
	ProgressBuffer   int      `json:"progressBuffer" mapstructure:"progressBuffer"`
	MaxFileSize      int64    `json:"maxFileSize" mapstructure:"maxFileSize"`
}

// ConfidenceConfig holds the component weights of the confidence scorer
type ConfidenceConfig struct {
	SymbolDetection      float64 `json:"symbolDetection" mapstructure:"symbolDetection"`
	TypeResolution       float64 `json:"typeResolution" mapstructure:"typeResolution"`
	RelationshipAccuracy float64 `json:"relationshipAccuracy" mapstructure:"relationshipAccuracy"`
	ModernFeatureSupport float64 `json:"modernFeatureSupport" mapstructure:"modernFeatureSupport"`
	ModuleAnalysis       float64 `json:"moduleAnalysis" mapstructure:"moduleAnalysis"`
}

// PatternsConfig controls pattern detection
type PatternsConfig struct {
	CatalogPath   string  `json:"catalogPath" mapstructure:"catalogPath"`
	MinConfidence float64 `json:"minConfidence" mapstructure:"minConfidence"`
}

// CrossLanguageConfig controls linkage analysis
type CrossLanguageConfig struct {
	MaxSpawnDepth    int    `json:"maxSpawnDepth" mapstructure:"maxSpawnDepth"`
	SpawnCatalogPath string `json:"spawnCatalogPath" mapstructure:"spawnCatalogPath"`
}

// ControlFlowConfig bounds path enumeration
type ControlFlowConfig struct {
	MaxPaths    int `json:"maxPaths" mapstructure:"maxPaths"`
	MaxHotPaths int `json:"maxHotPaths" mapstructure:"maxHotPaths"`
}

// StorageConfig locates the symbol store
type StorageConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// WatchConfig controls re-indexing on file changes
type WatchConfig struct {
	PollIntervalMs int `json:"pollIntervalMs" mapstructure:"pollIntervalMs"`
	DebounceMs     int `json:"debounceMs" mapstructure:"debounceMs"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
	File   bool   `json:"file" mapstructure:"file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: currentVersion,
		Parsing: ParsingConfig{
			ChunkThreshold:     64 * 1024,
			OverlapSize:        4 * 1024,
			MinBufferSize:      256 * 1024,
			BufferSlack:        1024,
			SnapLookahead:      256,
			DedupLineTolerance: 5,
			StreamingThreshold: 8 * 1024 * 1024,
			MaxLineLength:      64 * 1024,
			UseGrammar:         true,
		},
		Indexing: IndexingConfig{
			BatchSize:        10,
			Exclude:          []string{"**/node_modules/**", "**/vendor/**", "**/target/**", "**/build/**", "**/.git/**"},
			RespectGitignore: true,
			Languages:        []string{},
			ProgressBuffer:   32,
			MaxFileSize:      32 * 1024 * 1024,
		},
		Confidence: ConfidenceConfig{
			SymbolDetection:      0.25,
			TypeResolution:       0.20,
			RelationshipAccuracy: 0.20,
			ModernFeatureSupport: 0.15,
			ModuleAnalysis:       0.20,
		},
		Patterns: PatternsConfig{
			MinConfidence: 0.3,
		},
		CrossLanguage: CrossLanguageConfig{
			MaxSpawnDepth: 10,
		},
		ControlFlow: ControlFlowConfig{
			MaxPaths:    1000,
			MaxHotPaths: 10,
		},
		Storage: StorageConfig{
			Path: "",
		},
		Watch: WatchConfig{
			PollIntervalMs: 2000,
			DebounceMs:     1000,
		},
		Logging: LoggingConfig{
			Format: "human",
			Level:  "warn",
		},
	}
}

// LoadConfig loads configuration from <root>/.sentinel/config.json, applying
// SENTINEL_* environment overrides. Missing keys keep their defaults.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(root, ".sentinel"))

	v.SetEnvPrefix("SENTINEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every field of d so env overrides and partial files
// resolve against the defaults.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("version", d.Version)

	v.SetDefault("parsing.chunkThreshold", d.Parsing.ChunkThreshold)
	v.SetDefault("parsing.overlapSize", d.Parsing.OverlapSize)
	v.SetDefault("parsing.minBufferSize", d.Parsing.MinBufferSize)
	v.SetDefault("parsing.bufferSlack", d.Parsing.BufferSlack)
	v.SetDefault("parsing.snapLookahead", d.Parsing.SnapLookahead)
	v.SetDefault("parsing.dedupLineTolerance", d.Parsing.DedupLineTolerance)
	v.SetDefault("parsing.streamingThreshold", d.Parsing.StreamingThreshold)
	v.SetDefault("parsing.maxLineLength", d.Parsing.MaxLineLength)
	v.SetDefault("parsing.useGrammar", d.Parsing.UseGrammar)

	v.SetDefault("indexing.batchSize", d.Indexing.BatchSize)
	v.SetDefault("indexing.exclude", d.Indexing.Exclude)
	v.SetDefault("indexing.respectGitignore", d.Indexing.RespectGitignore)
	v.SetDefault("indexing.languages", d.Indexing.Languages)
	v.SetDefault("indexing.progressBuffer", d.Indexing.ProgressBuffer)
	v.SetDefault("indexing.maxFileSize", d.Indexing.MaxFileSize)

	v.SetDefault("confidence.symbolDetection", d.Confidence.SymbolDetection)
	v.SetDefault("confidence.typeResolution", d.Confidence.TypeResolution)
	v.SetDefault("confidence.relationshipAccuracy", d.Confidence.RelationshipAccuracy)
	v.SetDefault("confidence.modernFeatureSupport", d.Confidence.ModernFeatureSupport)
	v.SetDefault("confidence.moduleAnalysis", d.Confidence.ModuleAnalysis)

	v.SetDefault("patterns.catalogPath", d.Patterns.CatalogPath)
	v.SetDefault("patterns.minConfidence", d.Patterns.MinConfidence)

	v.SetDefault("crossLanguage.maxSpawnDepth", d.CrossLanguage.MaxSpawnDepth)
	v.SetDefault("crossLanguage.spawnCatalogPath", d.CrossLanguage.SpawnCatalogPath)

	v.SetDefault("controlFlow.maxPaths", d.ControlFlow.MaxPaths)
	v.SetDefault("controlFlow.maxHotPaths", d.ControlFlow.MaxHotPaths)

	v.SetDefault("storage.path", d.Storage.Path)

	v.SetDefault("watch.pollIntervalMs", d.Watch.PollIntervalMs)
	v.SetDefault("watch.debounceMs", d.Watch.DebounceMs)

	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
}

// Save writes the configuration to <root>/.sentinel/config.json
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, ".sentinel")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Version != currentVersion {
		return &ConfigError{Field: "version", Message: fmt.Sprintf("unsupported config version %d", c.Version)}
	}

	p := c.Parsing
	if p.ChunkThreshold <= 0 {
		return &ConfigError{Field: "parsing.chunkThreshold", Message: "must be positive"}
	}
	if p.OverlapSize < 0 || p.OverlapSize >= p.ChunkThreshold {
		return &ConfigError{Field: "parsing.overlapSize", Message: "must be non-negative and smaller than chunkThreshold"}
	}
	if p.SnapLookahead < 0 {
		return &ConfigError{Field: "parsing.snapLookahead", Message: "must not be negative"}
	}
	if p.DedupLineTolerance < 0 {
		return &ConfigError{Field: "parsing.dedupLineTolerance", Message: "must not be negative"}
	}
	if p.StreamingThreshold < p.ChunkThreshold {
		return &ConfigError{Field: "parsing.streamingThreshold", Message: "must be at least chunkThreshold"}
	}

	if c.Indexing.BatchSize <= 0 {
		return &ConfigError{Field: "indexing.batchSize", Message: "must be positive"}
	}
	if c.Indexing.ProgressBuffer < 0 {
		return &ConfigError{Field: "indexing.progressBuffer", Message: "must not be negative"}
	}

	w := c.Confidence
	weights := []float64{w.SymbolDetection, w.TypeResolution, w.RelationshipAccuracy, w.ModernFeatureSupport, w.ModuleAnalysis}
	sum := 0.0
	for _, x := range weights {
		if x < 0 {
			return &ConfigError{Field: "confidence", Message: "weights must not be negative"}
		}
		sum += x
	}
	if math.Abs(sum-1.0) > 1e-6 {
		return &ConfigError{Field: "confidence", Message: fmt.Sprintf("weights must sum to 1.0, got %.3f", sum)}
	}

	if c.Patterns.MinConfidence < 0 || c.Patterns.MinConfidence > 1 {
		return &ConfigError{Field: "patterns.minConfidence", Message: "must be within [0, 1]"}
	}
	if c.CrossLanguage.MaxSpawnDepth <= 0 {
		return &ConfigError{Field: "crossLanguage.maxSpawnDepth", Message: "must be positive"}
	}
	if c.ControlFlow.MaxPaths <= 0 {
		return &ConfigError{Field: "controlFlow.maxPaths", Message: "must be positive"}
	}
	if c.Watch.PollIntervalMs <= 0 {
		return &ConfigError{Field: "watch.pollIntervalMs", Message: "must be positive"}
	}
	if c.Watch.DebounceMs < 0 {
		return &ConfigError{Field: "watch.debounceMs", Message: "must not be negative"}
	}
	return nil
}

// BufferSize returns the read buffer for a file of n bytes:
// max(minBufferSize, n+bufferSlack).
func (p ParsingConfig) BufferSize(n int) int {
	size := n + p.BufferSlack
	if size < p.MinBufferSize {
		return p.MinBufferSize
	}
	return size
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
