package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadEnvMissingFileIsIgnored(t *testing.T) {
	clearOverlayEnv(t)

	values, err := ReadEnv(filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	require.Empty(t, values)

	values, err = ReadEnv("")
	require.NoError(t, err)
	require.Empty(t, values)
}

func TestReadEnvProcessEnvironmentWins(t *testing.T) {
	clearOverlayEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(`
# engine endpoint
ASRCLIENT_ENGINE_GRPC=10.0.0.1:50061
ASRCLIENT_ENGINE_TOKEN="from-file"
UNRELATED=value
`), 0o600))
	t.Setenv(EnvEngineToken, "from-process")

	values, err := ReadEnv(path)
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		EnvEngineGRPC:  "10.0.0.1:50061",
		EnvEngineToken: "from-process",
	}, values)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	require.False(t, ApplyEnv(&cfg, nil))
	require.False(t, ApplyEnv(&cfg, map[string]string{EnvDefaultProfile: "  "}))
	require.False(t, ApplyEnv(&cfg, map[string]string{EnvDefaultProfile: DefaultProfile}))

	changed := ApplyEnv(&cfg, map[string]string{
		EnvEngineGRPC:     "10.0.0.9:1",
		EnvEngineToken:    "tok",
		EnvDefaultProfile: "uni1",
	})
	require.True(t, changed)
	require.Equal(t, "10.0.0.9:1", cfg.Engine.GRPC)
	require.Equal(t, "tok", cfg.Engine.Token)
	require.Equal(t, "uni1", cfg.Session.DefaultProfile)
}
