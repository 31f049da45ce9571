package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

var current atomic.Pointer[Config]

var (
	onReloadMu        sync.Mutex
	onReloadCallbacks []func(*Config)
)

// Get returns the current in-memory config (hot-reloaded when the file changes).
func Get() *Config { return current.Load() }

// Set sets the current in-memory config. Used at startup and by the file watcher.
func Set(c *Config) {
	if c != nil {
		current.Store(c)
	}
}

// RegisterOnReload registers a callback that runs after config is hot-reloaded.
func RegisterOnReload(fn func(*Config)) {
	onReloadMu.Lock()
	defer onReloadMu.Unlock()
	onReloadCallbacks = append(onReloadCallbacks, fn)
}

func notifyReload(cfg *Config) {
	onReloadMu.Lock()
	cb := make([]func(*Config), len(onReloadCallbacks))
	copy(cb, onReloadCallbacks)
	onReloadMu.Unlock()
	for _, fn := range cb {
		fn(cfg)
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyLoadDefaults(&cfg)
	resolveRelativePaths(&cfg, filepath.Dir(path))

	return &cfg, nil
}

func applyLoadDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Gateway.Port <= 0 {
		cfg.Gateway.Port = def.Gateway.Port
	}
	if cfg.Gateway.ConnectionTTLMinutes <= 0 {
		cfg.Gateway.ConnectionTTLMinutes = def.Gateway.ConnectionTTLMinutes
	}
	if cfg.OpenAI.Deployment == "" {
		cfg.OpenAI.Deployment = def.OpenAI.Deployment
	}
	if cfg.Blob.Region == "" {
		cfg.Blob.Region = def.Blob.Region
	}
	if cfg.Blob.ImageBucket == "" {
		cfg.Blob.ImageBucket = def.Blob.ImageBucket
	}
	if cfg.Blob.DocumentBucket == "" {
		cfg.Blob.DocumentBucket = def.Blob.DocumentBucket
	}
	if len(cfg.Chat.Windows) == 0 {
		cfg.Chat.Windows = def.Chat.Windows
	}
	if cfg.Chat.HistorySize <= 0 {
		cfg.Chat.HistorySize = def.Chat.HistorySize
	}
	if cfg.Chat.MaxTokens <= 0 {
		cfg.Chat.MaxTokens = def.Chat.MaxTokens
	}
	if cfg.Chat.MaxImageWidth <= 0 {
		cfg.Chat.MaxImageWidth = def.Chat.MaxImageWidth
	}
	if cfg.Chat.SignedURLTTLMinutes <= 0 {
		cfg.Chat.SignedURLTTLMinutes = def.Chat.SignedURLTTLMinutes
	}
}

func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

func resolveRelativePaths(cfg *Config, baseDir string) {
	if cfg.Store.Path != "" && !filepath.IsAbs(cfg.Store.Path) {
		cfg.Store.Path = filepath.Join(baseDir, cfg.Store.Path)
	}
}
