package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultMatchesLiteralConstants(t *testing.T) {
	cfg := Default()
	require.Equal(t, 1024, cfg.PageRowLimit)
	require.Equal(t, 0.05, cfg.BloomTargetFPP)
	require.Equal(t, 64, cfg.ShardCount)
	require.Equal(t, 1<<16, cfg.DictionaryMaxCardinality)
	require.Equal(t, 1024, cfg.ShortKeyInterval)
	require.Equal(t, 36, cfg.ShortKeyMaxBytes)
	require.Equal(t, 3, cfg.ShortKeyMaxColumns)
}

func TestLoadOverridesOnlySpecifiedFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "olapcore.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
page_row_limit = 2048
bloom_target_fpp = 0.01
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2048, cfg.PageRowLimit)
	require.Equal(t, 0.01, cfg.BloomTargetFPP)
	require.Equal(t, 64, cfg.ShardCount, "unspecified fields keep their Default() value")
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.Error(t, err)
}
