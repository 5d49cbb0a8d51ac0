package providers

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed sources.yaml
var defaultSourcesYAML []byte

// sourcesFile represents the structure of the sources configuration file.
type sourcesFile struct {
	Sources []Provider `json:"sources" yaml:"sources"`
}

// Sources is the immutable source registry: region to ordered provider list.
type Sources struct {
	mu        sync.RWMutex
	providers []Provider
	byRegion  map[string][]Provider
	regions   []string
}

// DefaultSources loads the embedded source registry.
func DefaultSources() (*Sources, error) {
	return parseSources(defaultSourcesYAML, ".yaml")
}

// LoadSources loads the source registry from a YAML/JSON file.
func LoadSources(path string) (*Sources, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sources file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read sources file: %w", err)
	}

	return parseSources([]byte(os.ExpandEnv(string(raw))), filepath.Ext(path))
}

func parseSources(data []byte, ext string) (*Sources, error) {
	file, err := decodeSources(data, ext)
	if err != nil {
		return nil, err
	}
	if len(file.Sources) == 0 {
		return nil, errors.New("sources file contains no sources entries")
	}

	reg := &Sources{
		providers: make([]Provider, 0, len(file.Sources)),
		byRegion:  make(map[string][]Provider),
	}
	seen := make(map[string]struct{}, len(file.Sources))

	for i := range file.Sources {
		cfg := sanitizeProvider(file.Sources[i])
		if err := validateProvider(cfg); err != nil {
			return nil, fmt.Errorf("sources[%d]: %w", i, err)
		}
		if _, exists := seen[cfg.ID]; exists {
			return nil, fmt.Errorf("duplicate source id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}

		reg.providers = append(reg.providers, cfg)
		key := regionKey(cfg.Region)
		if _, ok := reg.byRegion[key]; !ok {
			reg.regions = append(reg.regions, cfg.Region)
		}
		reg.byRegion[key] = append(reg.byRegion[key], cfg)
	}

	return reg, nil
}

// decodeSources picks the decoder from the file extension, trying both when it is unknown.
func decodeSources(data []byte, ext string) (sourcesFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	var lastErr error
	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var file sourcesFile
		if err := d.fn(data, &file); err != nil {
			lastErr = fmt.Errorf("decode %s sources: %w", d.name, err)
			continue
		}
		return file, nil
	}
	if lastErr != nil {
		return sourcesFile{}, lastErr
	}
	return sourcesFile{}, errors.New("sources file format not recognized (expected YAML or JSON)")
}

// sanitizeProvider trims fields, lower-cases the kind and derives a missing id from the name.
func sanitizeProvider(cfg Provider) Provider {
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.ID = strings.ToLower(strings.TrimSpace(cfg.ID))
	if cfg.ID == "" {
		cfg.ID = slug(cfg.Name)
	}
	cfg.Kind = strings.ToLower(strings.TrimSpace(cfg.Kind))
	cfg.Region = strings.TrimSpace(cfg.Region)
	cfg.URL = strings.TrimSpace(cfg.URL)
	cfg.Selector = strings.TrimSpace(cfg.Selector)
	cfg.City = strings.TrimSpace(cfg.City)
	cfg.Country = strings.TrimSpace(cfg.Country)
	if cfg.Country == "" {
		cfg.Country = cfg.Region
	}
	if cfg.Enabled == nil {
		def := true
		cfg.Enabled = &def
	}
	return cfg
}

// validateProvider checks the kind-specific required fields.
func validateProvider(cfg Provider) error {
	if cfg.ID == "" {
		return errors.New("id or name is required")
	}
	if cfg.Region == "" {
		return fmt.Errorf("region is required for source %q", cfg.ID)
	}
	if cfg.URL == "" {
		return fmt.Errorf("url is required for source %q", cfg.ID)
	}
	switch cfg.Kind {
	case KindScrape:
		if cfg.Selector == "" {
			return fmt.Errorf("selector is required for scrape source %q", cfg.ID)
		}
	case KindRSS, KindAPI:
	case "":
		return fmt.Errorf("kind is required for source %q", cfg.ID)
	default:
		return fmt.Errorf("kind %q not supported for source %q", cfg.Kind, cfg.ID)
	}
	return nil
}

// ForRegion returns the enabled providers for region in configuration order.
func (s *Sources) ForRegion(region string) []Provider {
	if s == nil {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.byRegion[regionKey(region)]
	out := make([]Provider, 0, len(all))
	for _, cfg := range all {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// All returns every configured provider.
func (s *Sources) All() []Provider {
	if s == nil {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Provider, len(s.providers))
	copy(out, s.providers)
	return out
}

// Regions returns the configured regions in first-seen order.
func (s *Sources) Regions() []string {
	if s == nil {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, len(s.regions))
	copy(out, s.regions)
	return out
}

func regionKey(region string) string {
	return strings.ToLower(strings.TrimSpace(region))
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
