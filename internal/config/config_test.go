package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sitesage/sitesage/internal/model"
)

// validConfig builds a configuration that passes Validate.
func validConfig() *Config {
	cfg := NewConfig()
	cfg.GeminiAPIKey = "test-key"
	return cfg
}

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	if cfg.MaxDepth != DefaultMaxDepth {
		t.Errorf("MaxDepth = %d, want %d", cfg.MaxDepth, DefaultMaxDepth)
	}
	if cfg.MaxLinksPerPage != DefaultMaxLinksPerPage {
		t.Errorf("MaxLinksPerPage = %d, want %d", cfg.MaxLinksPerPage, DefaultMaxLinksPerPage)
	}
	if cfg.ChunkPolicy != ChunkPolicySentence {
		t.Errorf("ChunkPolicy = %q, want sentence", cfg.ChunkPolicy)
	}
	if cfg.NamespaceScope != model.ScopeURL {
		t.Errorf("NamespaceScope = %q, want url", cfg.NamespaceScope)
	}
	if cfg.CacheTTL != DefaultCacheTTL {
		t.Errorf("CacheTTL = %v, want %v", cfg.CacheTTL, DefaultCacheTTL)
	}
	if cfg.DataDir == "" {
		t.Error("DataDir is empty, want XDG data dir")
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:   "valid config passes",
			mutate: func(*Config) {},
		},
		{
			name:    "missing API key",
			mutate:  func(c *Config) { c.GeminiAPIKey = "" },
			wantErr: ErrMissingAPIKey,
		},
		{
			name:    "non-positive fetch timeout",
			mutate:  func(c *Config) { c.FetchTimeout = 0 },
			wantErr: ErrInvalidTimeout,
		},
		{
			name:    "negative depth",
			mutate:  func(c *Config) { c.MaxDepth = -1 },
			wantErr: ErrInvalidDepth,
		},
		{
			name:   "zero depth is valid",
			mutate: func(c *Config) { c.MaxDepth = 0 },
		},
		{
			name:    "zero fan-out",
			mutate:  func(c *Config) { c.MaxLinksPerPage = 0 },
			wantErr: ErrInvalidFanOut,
		},
		{
			name:    "negative crawl delay",
			mutate:  func(c *Config) { c.CrawlDelay = -time.Second },
			wantErr: ErrInvalidCrawlDelay,
		},
		{
			name:   "zero crawl delay is valid",
			mutate: func(c *Config) { c.CrawlDelay = 0 },
		},
		{
			name:    "negative max body size",
			mutate:  func(c *Config) { c.MaxBodySize = -1 },
			wantErr: ErrInvalidMaxBodySize,
		},
		{
			name:    "unknown chunk policy",
			mutate:  func(c *Config) { c.ChunkPolicy = "paragraph" },
			wantErr: ErrInvalidChunkPolicy,
		},
		{
			name:    "unknown namespace scope",
			mutate:  func(c *Config) { c.NamespaceScope = "path" },
			wantErr: ErrInvalidNamespaceScope,
		},
		{
			name:    "non-positive top-k",
			mutate:  func(c *Config) { c.TopK = 0 },
			wantErr: ErrInvalidTopK,
		},
		{
			name:    "non-positive cache TTL",
			mutate:  func(c *Config) { c.CacheTTL = 0 },
			wantErr: ErrInvalidCacheTTL,
		},
		{
			name: "conflicting report formats",
			mutate: func(c *Config) {
				c.JSONReport = true
				c.MarkdownReport = true
			},
			wantErr: ErrConflictingReportFormats,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetSiteConfig(t *testing.T) {
	t.Parallel()

	cf := &File{
		Defaults: SiteConfig{
			Depth:   2,
			Delay:   time.Second,
			Headers: map[string]string{"Accept-Language": "en"},
		},
		Sites: map[string]SiteConfig{
			"docs.example.com": {
				Depth:   5,
				Headers: map[string]string{"Authorization": "Bearer t"},
			},
		},
	}

	t.Run("site entry overrides defaults", func(t *testing.T) {
		t.Parallel()

		got := cf.GetSiteConfig("docs.example.com")
		if got.Depth != 5 {
			t.Errorf("Depth = %d, want site override 5", got.Depth)
		}
		if got.Delay != time.Second {
			t.Errorf("Delay = %v, want inherited default", got.Delay)
		}
		if got.Headers["Authorization"] != "Bearer t" {
			t.Errorf("Headers = %v, want site header merged in", got.Headers)
		}
	})

	t.Run("unknown host gets the defaults", func(t *testing.T) {
		t.Parallel()

		got := cf.GetSiteConfig("other.example.com")
		if got.Depth != 2 || got.Delay != time.Second {
			t.Errorf("got %+v, want defaults", got)
		}
	})

	t.Run("site headers do not leak into other hosts", func(t *testing.T) {
		t.Parallel()

		leaky := &File{
			Defaults: SiteConfig{
				Headers: map[string]string{"X-Common": "1"},
			},
			Sites: map[string]SiteConfig{
				"a.example": {
					Headers: map[string]string{"Authorization": "Bearer site-a-secret"},
				},
			},
		}

		a := leaky.GetSiteConfig("a.example")
		if a.Headers["Authorization"] != "Bearer site-a-secret" || a.Headers["X-Common"] != "1" {
			t.Fatalf("a.example headers = %v, want site merged over defaults", a.Headers)
		}

		b := leaky.GetSiteConfig("b.example")
		if v, ok := b.Headers["Authorization"]; ok {
			t.Errorf("a.example's Authorization header leaked to b.example: %q", v)
		}
		if b.Headers["X-Common"] != "1" {
			t.Errorf("b.example headers = %v, want defaults only", b.Headers)
		}
		if leaky.Defaults.Headers["Authorization"] != "" {
			t.Error("defaults map was mutated by a site lookup")
		}
	})
}

func TestSiteOverrides(t *testing.T) {
	t.Parallel()

	t.Run("no config file yields the zero value", func(t *testing.T) {
		t.Parallel()

		cfg := validConfig()
		got := cfg.SiteOverrides("example.com")
		if got.Depth != 0 || got.MaxLinks != 0 || got.Delay != 0 || got.Headers != nil {
			t.Errorf("SiteOverrides() = %+v, want zero value", got)
		}
	})
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("loads sites and defaults", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".sitesage")
		content := `api_key: from-file
chunk_policy: word
defaults:
  depth: 2
sites:
  slow.example.com:
    delay: 2s
    maxLinks: 1
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile() error = %v", err)
		}
		if cf.APIKey != "from-file" {
			t.Errorf("APIKey = %q", cf.APIKey)
		}
		if cf.ChunkPolicy != "word" {
			t.Errorf("ChunkPolicy = %q, want word", cf.ChunkPolicy)
		}

		site := cf.GetSiteConfig("slow.example.com")
		if site.Delay != 2*time.Second || site.MaxLinks != 1 || site.Depth != 2 {
			t.Errorf("site config = %+v, want merged overrides", site)
		}
	})

	t.Run("missing file is ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("LoadConfigFile() error = %v, want ErrConfigNotFound", err)
		}
	})

	t.Run("malformed YAML is an error", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".sitesage")
		if err := os.WriteFile(path, []byte("sites: [not a map"), 0600); err != nil {
			t.Fatal(err)
		}

		if _, err := LoadConfigFile(path); err == nil {
			t.Fatal("LoadConfigFile() error = nil, want YAML failure")
		}
	})
}

func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("explicit existing path wins", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yml")
		if err := os.WriteFile(path, []byte("{}"), 0600); err != nil {
			t.Fatal(err)
		}

		if got := FindConfigFile(path); got != path {
			t.Errorf("FindConfigFile() = %q, want %q", got, path)
		}
	})

	t.Run("explicit missing path yields empty", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "absent")); got != "" {
			t.Errorf("FindConfigFile() = %q, want empty", got)
		}
	})
}
