package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Profile is one named client profile the engine can open sessions with.
type Profile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Language    string `yaml:"language"`
}

// Catalog is the set of known profiles.
type Catalog struct {
	Profiles []Profile `yaml:"profiles"`
}

// DefaultCatalog lists the profiles shipped with the client.
func DefaultCatalog() Catalog {
	return Catalog{Profiles: []Profile{
		{Name: "uni1", Description: "MRCPv1 (RTSP) client profile", Language: "en-US"},
		{Name: "uni2", Description: "MRCPv2 (SIP) client profile", Language: "en-US"},
	}}
}

// LoadCatalog reads a YAML profile catalog. An empty path or a missing file
// yields the default catalog.
func LoadCatalog(path string) (Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultCatalog(), nil
		}
		return Catalog{}, fmt.Errorf("read profiles %q: %w", path, err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(content, &catalog); err != nil {
		return Catalog{}, fmt.Errorf("parse profiles %q: %w", path, err)
	}
	if err := catalog.validate(); err != nil {
		return Catalog{}, fmt.Errorf("profiles %q: %w", path, err)
	}
	return catalog, nil
}

func (c Catalog) validate() error {
	if len(c.Profiles) == 0 {
		return errors.New("no profiles defined")
	}
	seen := make(map[string]struct{}, len(c.Profiles))
	for i, p := range c.Profiles {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return fmt.Errorf("profile %d has an empty name", i+1)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate profile %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Has reports whether name is a known profile.
func (c Catalog) Has(name string) bool {
	_, ok := c.Lookup(name)
	return ok
}

// Lookup returns the profile called name.
func (c Catalog) Lookup(name string) (Profile, bool) {
	for _, p := range c.Profiles {
		if strings.TrimSpace(p.Name) == name {
			return p, true
		}
	}
	return Profile{}, false
}

// Names returns the sorted profile names.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c.Profiles))
	for _, p := range c.Profiles {
		names = append(names, strings.TrimSpace(p.Name))
	}
	sort.Strings(names)
	return names
}
