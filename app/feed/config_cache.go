package feed

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// DefaultFeedURLs is used when neither a feeds directory nor FEED_URLS is configured.
var DefaultFeedURLs = []string{
	"https://www.reddit.com/r/MachineLearning/hot.rss",
	"https://www.reddit.com/r/artificial/hot.rss",
	"https://www.reddit.com/r/OpenAI/hot.rss",
	"https://www.reddit.com/r/ClaudeAI/hot.rss",
	"https://www.reddit.com/r/LocalLLaMA/hot.rss",
	"https://www.reddit.com/r/n8n/hot.rss",
	"https://www.reddit.com/r/automation/hot.rss",
	"https://www.reddit.com/r/nocode/hot.rss",
	"https://news.ycombinator.com/rss",
	"https://www.producthunt.com/topics/artificial-intelligence.rss",
}

// ConfigCache holds feed source configurations in the order they were loaded.
type ConfigCache struct {
	feedsDir string
	cache    map[string]*Config
	order    []string
	mu       sync.RWMutex
}

func NewConfigCache(feedsDir string) *ConfigCache {
	return &ConfigCache{
		feedsDir: feedsDir,
		cache:    make(map[string]*Config),
	}
}

// Run loads every *.yml file in the feeds directory. A missing directory is not an error.
func (cc *ConfigCache) Run() error {
	if cc.feedsDir == "" {
		return nil
	}
	if _, err := os.Stat(cc.feedsDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(cc.feedsDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		feedName := strings.TrimSuffix(filepath.Base(file), ".yml")

		config, err := cc.LoadConfig(feedName)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Source configuration loaded", "feed", feedName, "enabled", config.Settings.Enabled, "filters", len(config.Filters))
	}

	return nil
}

func (cc *ConfigCache) LoadConfig(feedName string) (*Config, error) {
	configFile := cc.getConfigFilePath(feedName)
	feedConfig, err := cc.parseConfig(configFile)
	if err != nil {
		return nil, err
	}

	feedConfig.Name = feedName

	if err := cc.validateConfig(feedConfig); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	cc.put(feedConfig)

	return feedConfig, nil
}

// AddURLs registers plain feed URLs as enabled, unfiltered sources named by URL.
func (cc *ConfigCache) AddURLs(urls []string) error {
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		feedConfig := &Config{
			Name:     raw,
			URL:      raw,
			Settings: ConfigSettings{Enabled: true},
		}
		if err := cc.validateConfig(feedConfig); err != nil {
			return fmt.Errorf("invalid feed URL %q: %w", raw, err)
		}
		cc.put(feedConfig)
	}
	return nil
}

func (cc *ConfigCache) GetConfig(feedName string) (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	feedConfig, ok := cc.cache[feedName]
	if !ok {
		return nil, fmt.Errorf("feed config with name '%s' not found", feedName)
	}
	return feedConfig, nil
}

// GetConfigs returns all sources in load order.
func (cc *ConfigCache) GetConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	configs := make([]*Config, 0, len(cc.order))
	for _, name := range cc.order {
		configs = append(configs, cc.cache[name])
	}
	return configs
}

func (cc *ConfigCache) GetEnabledConfigs() []*Config {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	enabled := make([]*Config, 0, len(cc.order))
	for _, name := range cc.order {
		if v := cc.cache[name]; v.Settings.Enabled {
			enabled = append(enabled, v)
		}
	}
	return enabled
}

func (cc *ConfigCache) GetConfigCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.cache)
}

func (cc *ConfigCache) put(feedConfig *Config) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	if _, exists := cc.cache[feedConfig.Name]; !exists {
		cc.order = append(cc.order, feedConfig.Name)
	}
	cc.cache[feedConfig.Name] = feedConfig
}

func (cc *ConfigCache) parseConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	feedConfig := Config{Settings: ConfigSettings{Enabled: true}}
	if err := yaml.Unmarshal(data, &feedConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &feedConfig, nil
}

func (cc *ConfigCache) validateConfig(feedConfig *Config) error {
	if feedConfig == nil {
		return fmt.Errorf("feedConfig is nil")
	}

	if feedConfig.Name == "" {
		return fmt.Errorf("feed name is required")
	}
	if feedConfig.URL == "" {
		return fmt.Errorf("feed URL is required")
	}
	if u, err := url.Parse(feedConfig.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("feed URL must be absolute: %s", feedConfig.URL)
	}

	if feedConfig.Settings.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative")
	}

	validFields := map[string]bool{
		"title":   true,
		"summary": true,
		"link":    true,
		"source":  true,
	}

	for i, filter := range feedConfig.Filters {
		if !validFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}

func (cc *ConfigCache) getConfigFilePath(feedName string) string {
	return filepath.Join(cc.feedsDir, feedName+".yml")
}
