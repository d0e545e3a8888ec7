package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "localhost", cfg.Hostname)
	assert.Equal(t, "junit", cfg.Output)
	assert.Equal(t, DefaultHistory, cfg.History)
	assert.False(t, cfg.GetRecord())
	assert.False(t, cfg.GetFailOnFailure())
	assert.False(t, cfg.GetVerbose())
	assert.False(t, cfg.GetNoColor())
	assert.True(t, cfg.IsDefault())
}

func TestFindAndLoadConfig_NoFile(t *testing.T) {
	cfg, err := FindAndLoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.True(t, cfg.IsDefault())
}

func TestFindAndLoadConfig_JSON(t *testing.T) {
	dir := t.TempDir()
	content := `{"hostname": "ci-01", "output": "tap", "failOnFailure": true}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".trialxml.config.json"), []byte(content), 0644))

	cfg, err := FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "ci-01", cfg.Hostname)
	assert.Equal(t, "tap", cfg.Output)
	assert.True(t, cfg.GetFailOnFailure())
	assert.Equal(t, DefaultHistory, cfg.History, "unset fields keep defaults")
	assert.False(t, cfg.IsDefault())
}

func TestFindAndLoadConfig_YAML(t *testing.T) {
	dir := t.TempDir()
	content := "hostname: yaml-host\noutputDir: reports\nnoColor: true\nrecord: true\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trialxml.yaml"), []byte(content), 0644))

	cfg, err := FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "yaml-host", cfg.Hostname)
	assert.Equal(t, "reports", cfg.OutputDir)
	assert.True(t, cfg.GetNoColor())
	assert.True(t, cfg.GetRecord())
}

func TestFindAndLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trialxml.yml"), []byte("hostname: from-yaml\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "trialxml.config.json"), []byte(`{"hostname":"from-json"}`), 0644))

	cfg, err := FindAndLoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "from-json", cfg.Hostname)
}

func TestLoadConfig_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	base := DefaultConfig()
	base.NoColor = BoolPtr(true)

	merged := base.Merge(&Config{
		Hostname:      "override",
		FailOnFailure: BoolPtr(true),
	})

	assert.Equal(t, "override", merged.Hostname)
	assert.Equal(t, "junit", merged.Output)
	assert.True(t, merged.GetFailOnFailure())
	assert.True(t, merged.GetNoColor())
	assert.Equal(t, "localhost", base.Hostname, "base is not modified")

	assert.Same(t, base, base.Merge(nil))
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	for _, name := range []string{"out.json", "out.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := DefaultConfig()
			cfg.Hostname = "saved"
			cfg.Verbose = BoolPtr(true)

			require.NoError(t, cfg.SaveConfig(path))

			loaded, err := LoadConfig(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestMerge_Notifications(t *testing.T) {
	base := DefaultConfig()
	assert.Equal(t, "failure", base.NotifyOn)

	merged := base.Merge(&Config{
		NotifyOn:     "recovery",
		SlackWebhook: "https://hooks.slack.test/x",
		MetricsFile:  "trialxml.prom",
	})
	assert.Equal(t, "recovery", merged.NotifyOn)
	assert.Equal(t, "https://hooks.slack.test/x", merged.SlackWebhook)
	assert.Empty(t, merged.TeamsWebhook)
	assert.Equal(t, "trialxml.prom", merged.MetricsFile)
	assert.False(t, merged.IsDefault())
}
