package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	require.Equal(t, []string{"uni1", "uni2"}, catalog.Names())
	require.True(t, catalog.Has(DefaultProfile))
	require.False(t, catalog.Has("uni3"))
}

func TestLoadCatalogFallsBackToDefault(t *testing.T) {
	catalog, err := LoadCatalog("")
	require.NoError(t, err)
	require.Equal(t, DefaultCatalog(), catalog)

	catalog, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, DefaultCatalog(), catalog)
}

func TestLoadCatalogParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profiles:
  - name: uni2
    description: MRCPv2 default
    language: en-US
  - name: lumenvox
    description: LumenVox over MRCPv2
    language: pt-BR
`), 0o600))

	catalog, err := LoadCatalog(path)
	require.NoError(t, err)
	require.Equal(t, []string{"lumenvox", "uni2"}, catalog.Names())

	profile, ok := catalog.Lookup("lumenvox")
	require.True(t, ok)
	require.Equal(t, "pt-BR", profile.Language)
}

func TestLoadCatalogRejectsInvalidFiles(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "malformed", body: "profiles: [", wantErr: "parse profiles"},
		{name: "empty", body: "profiles: []", wantErr: "no profiles"},
		{name: "blank name", body: "profiles:\n  - name: ' '\n", wantErr: "empty name"},
		{name: "duplicate", body: "profiles:\n  - name: uni1\n  - name: uni1\n", wantErr: "duplicate profile"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "profiles.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.body), 0o600))

			_, err := LoadCatalog(path)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
