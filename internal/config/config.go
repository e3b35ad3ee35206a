// Package config loads the engine's layered global configuration the way
// the teacher's services/config.go does: koanf defaults, then a JSON file
// under config/, then a .env file, then environment variables, merged in
// that order.
// Per-Series/per-Episode/per-Template settings are NOT handled here — that
// is internal/resolve's job; this package only produces the Global layer
// that sits at the bottom of the resolver's precedence chain (spec §4.3).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/dotenv"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "tcm_"

// Global is the bottom layer of the Settings Resolver's precedence chain
// (spec §4.3 step 1) plus the handful of process-wide knobs that are not
// part of any Recipe (root directories, retention windows, timeouts).
type Global struct {
	SourceRoot string `json:"sourceRoot" mapstructure:"sourceRoot"`
	CardRoot   string `json:"cardRoot" mapstructure:"cardRoot"`
	AssetRoot  string `json:"assetRoot" mapstructure:"assetRoot"`

	BackupRetentionDays int `json:"backupRetentionDays" mapstructure:"backupRetentionDays"`

	RequestTimeoutSeconds     int `json:"requestTimeoutSeconds" mapstructure:"requestTimeoutSeconds"`
	LibrarySyncTimeoutSeconds int `json:"librarySyncTimeoutSeconds" mapstructure:"librarySyncTimeoutSeconds"`

	Recipe map[string]any `json:"recipe" mapstructure:"recipe"` // default Recipe fields, see internal/resolve
}

// Defaults mirrors the teacher's constants.DefaultConfig confmap.Provider
// seed — a plain map loaded before anything else so every field has a
// value even with no config file present.
var Defaults = map[string]any{
	"sourceRoot":                "source",
	"cardRoot":                  "cards",
	"assetRoot":                 "assets",
	"backupRetentionDays":       21,
	"requestTimeoutSeconds":     30,
	"librarySyncTimeoutSeconds": 240,
	"recipe":                    map[string]any{},
}

// Service owns the live Global configuration and the koanf instance used
// to reload it, guarded the way teacher's configService guards its own
// koanf.Koanf under a sync.RWMutex.
type Service struct {
	mu         sync.RWMutex
	k          *koanf.Koanf
	cfg        *Global
	configPath string
}

// New creates a Service that will read/write configPath (typically
// "config/app.config.json", per spec §6's config/ directory contract).
func New(configPath string) *Service {
	return &Service{configPath: configPath}
}

// Load performs the four-layer merge: defaults, then the JSON file (if
// present), then a .env file (if present), then tcm_-prefixed environment
// variables. Grounded on
// services/config.go's InitConfig.
func (s *Service) Load() (*Global, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if err := os.MkdirAll(dirOf(s.configPath), 0o755); err != nil {
		return nil, fmt.Errorf("config: ensure config dir: %w", err)
	}

	if err := k.Load(file.Provider(s.configPath), kjson.Parser()); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: load file: %w", err)
		}
		// No file yet: write the defaults out so subsequent runs (and
		// operators inspecting config/) see a concrete starting point.
		var defaults Global
		if uerr := k.Unmarshal("", &defaults); uerr != nil {
			return nil, fmt.Errorf("config: unmarshal defaults: %w", uerr)
		}
		if werr := writeJSONFile(s.configPath, &defaults); werr != nil {
			return nil, fmt.Errorf("config: write default file: %w", werr)
		}
	}

	_ = godotenv.Load()
	if err := k.Load(file.Provider(".env"), dotenv.Parser()); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	cfg := &Global{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	s.mu.Lock()
	s.k = k
	s.cfg = cfg
	s.mu.Unlock()

	return cfg, nil
}

// Current returns the most recently loaded configuration.
func (s *Service) Current() *Global {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func envKeyReplacer(key string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, envPrefix)), "_", ".")
}

func dirOf(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return "."
	}
	return path[:idx]
}

func writeJSONFile(path string, cfg *Global) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
