// Package config provides configuration loading and structs for the revalida server.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for a config file first.
const DefaultPath = "/usr/local/etc/revalida/config.yaml"

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Search     SearchConfig     `yaml:"search"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	MaxUploadBytes     int64         `yaml:"max_upload_bytes"`
	RequestTimeout     time.Duration `yaml:"request_timeout"`
	CORSAllowedOrigins []string      `yaml:"cors_allowed_origins"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds paths for extraction folders, the catalog and the search index.
type StorageConfig struct {
	ExtractionsDir string `yaml:"extractions_dir"`
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// ExtractionConfig tunes question parsing.
type ExtractionConfig struct {
	MaxQuestionNumber  int   `yaml:"max_question_number"`
	MaxStemChars       int   `yaml:"max_stem_chars"`
	AnswerKeyTailChars int   `yaml:"answer_key_tail_chars"`
	ExtractImages      *bool `yaml:"extract_images"`
}

// ExtractImagesOrDefault returns whether embedded images are extracted; defaults to true when unset.
func (e *ExtractionConfig) ExtractImagesOrDefault() bool {
	if e.ExtractImages != nil {
		return *e.ExtractImages
	}
	return true
}

// SearchConfig holds question search settings.
type SearchConfig struct {
	DefaultLimit int           `yaml:"default_limit"`
	MaxLimit     int           `yaml:"max_limit"`
	Ranking      RankingConfig `yaml:"ranking"`
}

// RankingConfig weights how stem and option matches adjust keyword scores.
type RankingConfig struct {
	StemWeight              float64 `yaml:"stem_weight"`               // default: 1.0
	OptionsWeight           float64 `yaml:"options_weight"`            // default: 0.5
	PhraseMatchScore        float64 `yaml:"phrase_match_score"`        // default: 1.0
	AllTermsScore           float64 `yaml:"all_terms_score"`           // default: 0.6
	InOrderBonus            float64 `yaml:"in_order_bonus"`            // default: 0.2
	PositionBoostRunes      int     `yaml:"position_boost_runes"`      // default: 120
	PositionBoostMultiplier float64 `yaml:"position_boost_multiplier"` // default: 1.2
}

// WatchConfig holds inbox directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, expands paths, applies defaults
// and finally environment overrides.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.ExtractionsDir = expandPath(cfg.Storage.ExtractionsDir, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveWatchDirectories sets watch.directories in the config file at path, creating
// the file when missing. Every other key is written back as it was read, so defaults
// and environment overrides are never frozen into the file.
func SaveWatchDirectories(path string, dirs []string) error {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read config: %w", err)
	}
	var doc yaml.Node
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("failed to parse config: %w", err)
		}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("config %s is not a mapping", path)
	}

	watch := mappingValue(root, "watch")
	if watch == nil || watch.Kind != yaml.MappingNode {
		watch = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		setMappingValue(root, "watch", watch)
	}
	if dirs == nil {
		dirs = []string{}
	}
	var list yaml.Node
	if err := list.Encode(dirs); err != nil {
		return fmt.Errorf("failed to encode watch directories: %w", err)
	}
	setMappingValue(watch, "directories", &list)

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func mappingValue(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func setMappingValue(m *yaml.Node, key string, value *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = value
			return
		}
	}
	m.Content = append(m.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, value)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
