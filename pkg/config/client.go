package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrClientNotFound is returned when no profile exists for a client name.
	ErrClientNotFound = errors.New("client config not found")
	// ErrInvalidClientName is returned for names that are not a single
	// path element.
	ErrInvalidClientName = errors.New("invalid client name")
)

// ValidateClientName reports whether name can be used as a file and
// directory name under the clients and data directories.
func ValidateClientName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return fmt.Errorf("%w: %q", ErrInvalidClientName, name)
	}
	return nil
}

// ClientConfig is a per-organization report profile stored as
// <clients_dir>/<name>.yaml.
type ClientConfig struct {
	Name            string `yaml:"name" json:"name"`
	DisplayName     string `yaml:"display_name" json:"display_name"`
	GA4PropertyID   string `yaml:"ga4_property_id" json:"ga4_property_id"`
	GSCSiteURL      string `yaml:"gsc_site_url" json:"gsc_site_url"`
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`

	PrimaryColor   string `yaml:"primary_color" json:"primary_color"`
	SecondaryColor string `yaml:"secondary_color" json:"secondary_color"`
	LogoPath       string `yaml:"logo_path,omitempty" json:"logo_path,omitempty"`
	Timezone       string `yaml:"timezone" json:"timezone"`

	HomepagePaths []string `yaml:"homepage_paths" json:"homepage_paths"`
	ExcludePaths  []string `yaml:"exclude_paths" json:"exclude_paths"`
}

// NewClientConfig returns a profile with the default branding and paths.
func NewClientConfig(name string) *ClientConfig {
	return &ClientConfig{
		Name:           name,
		DisplayName:    name,
		PrimaryColor:   "#F4C430",
		SecondaryColor: "#2D5016",
		Timezone:       "America/New_York",
		HomepagePaths:  []string{"/", "/home"},
		ExcludePaths:   []string{"/admin", "/wp-admin"},
	}
}

// Title returns the display name, falling back to the short name.
func (c *ClientConfig) Title() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.Name
}

// Excluded reports whether a page path falls under an excluded prefix.
func (c *ClientConfig) Excluded(path string) bool {
	for _, prefix := range c.ExcludePaths {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// LoadClient reads <dir>/<name>.yaml. Missing optional fields keep their
// defaults.
func LoadClient(dir, name string) (*ClientConfig, error) {
	if err := ValidateClientName(name); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, name+".yaml")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrClientNotFound, path)
	}
	if err != nil {
		return nil, err
	}

	cfg := NewClientConfig(name)
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Name == "" {
		cfg.Name = name
	}
	return cfg, nil
}

// ListClients returns the sorted names of all profiles in dir. A missing
// directory yields no clients.
func ListClients(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".yaml" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

// SaveClient writes the profile to <dir>/<name>.yaml, creating dir.
func SaveClient(dir string, cfg *ClientConfig) (string, error) {
	if cfg.Name == "" {
		return "", errors.New("client name is required")
	}
	if err := ValidateClientName(cfg.Name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %q: %w", dir, err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, cfg.Name+".yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write client config: %w", err)
	}
	return path, nil
}
