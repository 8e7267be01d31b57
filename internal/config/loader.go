package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".sitesage"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// SiteConfig holds per-host overrides for crawl behavior.
// Sites with aggressive rate limiting or deep navigation chrome often
// need different bounds than the global defaults.
type SiteConfig struct {
	// Headers are extra HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global crawl depth for this site.
	// Zero means use the global value.
	Depth int `yaml:"depth,omitempty"`

	// MaxLinks overrides the per-page link fan-out cap for this site.
	// Zero means use the global value.
	MaxLinks int `yaml:"maxLinks,omitempty"`

	// Delay overrides the politeness delay for this site.
	// Zero means use the global value.
	Delay time.Duration `yaml:"delay,omitempty"`
}

// UnmarshalYAML decodes a site entry, accepting Go duration strings like
// "2s" or "500ms" for the delay field. yaml.v3 has no native
// time.Duration support.
func (sc *SiteConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Headers  map[string]string `yaml:"headers"`
		Depth    int               `yaml:"depth"`
		MaxLinks int               `yaml:"maxLinks"`
		Delay    string            `yaml:"delay"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	sc.Headers = raw.Headers
	sc.Depth = raw.Depth
	sc.MaxLinks = raw.MaxLinks

	if raw.Delay != "" {
		d, err := time.ParseDuration(raw.Delay)
		if err != nil {
			return fmt.Errorf("parse site delay %q: %w", raw.Delay, err)
		}
		sc.Delay = d
	}
	return nil
}

// File represents the structure of the .sitesage configuration file.
type File struct {
	// APIKey is the Gemini API key. The GEMINI_API_KEY environment
	// variable takes precedence when both are set.
	APIKey string `yaml:"api_key,omitempty"`

	// ChunkPolicy optionally selects the chunking strategy.
	ChunkPolicy string `yaml:"chunk_policy,omitempty"`

	// NamespaceScope optionally selects url- or domain-scoped namespaces.
	NamespaceScope string `yaml:"namespace_scope,omitempty"`

	// Sites maps hostnames to their site-specific overrides.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains overrides applied to all sites unless a
	// site-specific entry replaces them.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the effective configuration for a hostname,
// merging the site-specific entry over the defaults.
// The returned Headers map is always a fresh copy: merging into the
// defaults' map directly would leak one site's headers into every later
// lookup for other hosts.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults

	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	if site, ok := cf.Sites[host]; ok {
		if site.Depth != 0 {
			result.Depth = site.Depth
		}
		if site.MaxLinks != 0 {
			result.MaxLinks = site.MaxLinks
		}
		if site.Delay != 0 {
			result.Delay = site.Delay
		}
		if len(site.Headers) > 0 {
			if result.Headers == nil {
				result.Headers = make(map[string]string, len(site.Headers))
			}
			for k, v := range site.Headers {
				result.Headers[k] = v
			}
		}
	}

	return result
}

// LoadConfigFile loads configuration from a YAML file.
// If the file does not exist it returns ErrConfigNotFound; callers decide
// whether that matters based on whether the path was user-specified.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in order:
// the explicit path if given, then .sitesage in the current directory,
// then .sitesage in the user's home directory.
// Returns the path found, or empty string.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		homeConfig := filepath.Join(home, DefaultConfigFile)
		if _, err := os.Stat(homeConfig); err == nil {
			return homeConfig
		}
	}

	return ""
}
